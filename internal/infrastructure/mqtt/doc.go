// Package mqtt provides the ThingsBoard MQTT transport for tbattrs.
//
// This package manages:
//   - A gateway session authenticated by access token
//   - Publishing with QoS and payload size checks
//   - Reconnect notification so devices can be announced again
//   - Topic builders for the gateway API
//
// # Architecture
//
// One gateway session carries every planned device. Devices are announced
// on v1/gateway/connect and then receive attributes and telemetry through
// the shared gateway topics.
//
//	tbattrs ── gateway token ──► ThingsBoard MQTT transport
//	            v1/gateway/connect     {"device","type"}
//	            v1/gateway/attributes  {"<device>": {...}}
//	            v1/gateway/telemetry   {"<device>": [{"ts","values"}]}
//	            v1/gateway/disconnect  {"device"}
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) outside a lab network
//   - The access token is a credential; keep it out of config files in
//     favour of TBATTRS_MQTT_ACCESS_TOKEN
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.GatewayConnect(),
//	    map[string]string{"device": "DW00000001", "type": "EBMPAPST_FFU"})
package mqtt
