package mqtt

// TopicPrefixGateway is the base of the ThingsBoard gateway API. A single
// gateway session publishes on behalf of many devices.
const TopicPrefixGateway = "v1/gateway"

// Topics provides builders for ThingsBoard MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.GatewayTelemetry() // "v1/gateway/telemetry"
type Topics struct{}

// GatewayConnect announces a device behind the gateway.
// Payload: {"device": "<name>", "type": "<profile>"}
func (Topics) GatewayConnect() string {
	return TopicPrefixGateway + "/connect"
}

// GatewayDisconnect removes a device from the gateway session.
// Payload: {"device": "<name>"}
func (Topics) GatewayDisconnect() string {
	return TopicPrefixGateway + "/disconnect"
}

// GatewayAttributes publishes client-side attributes for many devices.
// Payload: {"<name>": {"key": value, ...}, ...}
func (Topics) GatewayAttributes() string {
	return TopicPrefixGateway + "/attributes"
}

// GatewayTelemetry publishes time series for many devices.
// Payload: {"<name>": [{"ts": <ms>, "values": {...}}], ...}
func (Topics) GatewayTelemetry() string {
	return TopicPrefixGateway + "/telemetry"
}
