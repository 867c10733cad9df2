package mqttc

import "fmt"

// Code is the negative-integer error taxonomy returned by the facade
// operations. Code implements error so it can be returned, compared with
// errors.Is, and passed straight through to Strerror.
type Code int

// The facade error codes. Zero means success; every failure is negative.
const (
	CodeOK                      Code = 0
	CodeInvalidHandle           Code = -1
	CodeAllocationFailure       Code = -2
	CodeInvalidQoS              Code = -3
	CodeInvalidProtocolVersion  Code = -4
	CodeConnectFailure          Code = -5
	CodeWriteFailure            Code = -6
	CodeSubscriptionCountExceed Code = -7
)

var codeStrings = map[Code]string{
	CodeOK:                      "success",
	CodeInvalidHandle:           "null or invalid handle",
	CodeAllocationFailure:       "allocation failure",
	CodeInvalidQoS:              "invalid qos",
	CodeInvalidProtocolVersion:  "invalid protocol version",
	CodeConnectFailure:          "tcp connect failure",
	CodeWriteFailure:            "tcp write failure",
	CodeSubscriptionCountExceed: "subscription count exceeded",
}

// Strerror returns the stable, human-readable message for code. Unknown
// codes produce a message noting the raw value rather than panicking.
func Strerror(code Code) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown error code %d", int(code))
}

// Error implements the error interface so a Code can be returned directly
// from any facade operation.
func (c Code) Error() string {
	return Strerror(c)
}

// ErrIDSpaceExhausted is returned by the packet-id generator when all
// 65535 non-zero 16-bit ids are already live in the outbound in-flight
// table (see the packet-id collision open question in SPEC_FULL.md).
var ErrIDSpaceExhausted = fmt.Errorf("mqttc: packet-id space exhausted")

// ErrClientDisconnected is returned by Run (and passed to the
// connection-lost hooks) when the peer closes the connection (EOF).
var ErrClientDisconnected = fmt.Errorf("mqttc: client disconnected")

// ErrLinkDead is surfaced to OnConnectionLost-style hooks when the
// keep-alive deadline elapses with no PINGRESP.
var ErrLinkDead = fmt.Errorf("mqttc: keep-alive deadline exceeded, no PINGRESP")
