// Package gateway publishes a planned hierarchy through the ThingsBoard
// gateway MQTT API.
//
// A single gateway session announces every planned device, pushes its
// resolved attributes and then streams generated telemetry:
//
//	v1/gateway/connect     {"device": "DW00000001", "type": "EBMPAPST_FFU"}
//	v1/gateway/attributes  {"DW00000001": {...}, "DW00000002": {...}}
//	v1/gateway/telemetry   {"DW00000001": [{"ts": 1767225600000, "values": {...}}]}
//	v1/gateway/disconnect  {"device": "DW00000001"}
//
// Attribute and telemetry payloads are batched (DefaultBatchSize devices
// per message). Telemetry samples can be mirrored to InfluxDB via SetSink.
// Run skips rounds while the session reports unhealthy and announces the
// devices again after Reconnected.
//
// Usage:
//
//	pub := gateway.NewPublisher(mqttClient)
//	pub.SetSampler("EBMPAPST_FFU", telemetry.NewGenerator(cfg, seed))
//	if err := pub.PublishPlan(plan); err != nil {
//	    return err
//	}
//	mqttClient.SetOnReconnect(pub.Reconnected)
//	err := pub.Run(ctx, gateway.Devices(plan), cfg.Rules.PublishInterval, 10)
//	pub.Disconnect(gateway.Devices(plan))
package gateway
