package mqttc

// Message is an inbound application message delivered via
// Callbacks.OnPublish, retained here as a value type for callers that
// prefer to queue messages rather than act on them inline.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retained  bool
	Duplicate bool
}
