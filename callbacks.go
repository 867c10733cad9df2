package mqttc

// Callbacks holds the optional hooks a Client invokes as packets arrive.
// Every field is optional; a nil hook is simply not called. All hooks run
// synchronously on the goroutine that called Run (or, before Run starts,
// on the goroutine that called Connect) - see the single-threaded
// assumption in the package doc.
type Callbacks struct {
	// OnConnack fires when a CONNACK is received. ackFlags is the raw
	// CONNACK acknowledge-flags byte (bit 0 is session-present);
	// returnCode is 0 for accepted, 1-5 for the refusal reasons in the
	// MQTT 3.1.1 spec. A non-zero returnCode is not an error from the
	// library's point of view - it is an observable broker decision.
	OnConnack func(ackFlags, returnCode uint8)

	// OnSuback fires when a SUBACK is received. grantedQoS holds one
	// entry per requested topic filter, in request order; a value of
	// 0x80 means the server refused that subscription.
	OnSuback func(packetID uint16, grantedQoS []uint8)

	// OnUnsuback fires when an UNSUBACK is received.
	OnUnsuback func(packetID uint16)

	// OnPuback fires exactly once per completed outbound QoS 1 or QoS 2
	// publication - on PUBACK for QoS 1, on PUBCOMP for QoS 2.
	OnPuback func(packetID uint16)

	// OnPublish fires once per inbound application message, after any
	// QoS handshake required to accept it (QoS 2 payload delivery is
	// deferred to PUBREL, never the original PUBLISH).
	OnPublish func(topic string, qos QoS, retain bool, payload []byte)

	// OnConnectionLost fires when the link is torn down - either a
	// protocol violation, a transport error, or a keep-alive timeout -
	// and the single reconnect attempt has also failed.
	// It is not called for a clean, locally initiated Disconnect.
	OnConnectionLost func(err error)
}
