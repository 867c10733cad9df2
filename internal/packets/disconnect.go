package packets

import "fmt"

// DisconnectPacket signals a graceful client-initiated disconnection.
type DisconnectPacket struct{}

func (p *DisconnectPacket) Type() uint8 { return DISCONNECT }

func (p *DisconnectPacket) Encode(dst []byte) ([]byte, error) {
	return appendFixedHeader(dst, DISCONNECT, 0, 0)
}

// DecodeDisconnect decodes a DISCONNECT packet, which carries no body.
func DecodeDisconnect(remaining []byte) (*DisconnectPacket, error) {
	if len(remaining) != 0 {
		return nil, fmt.Errorf("packets: DISCONNECT must have empty body")
	}
	return &DisconnectPacket{}, nil
}
