package packets

import "fmt"

// PingreqPacket is the keep-alive request the client sends when idle.
type PingreqPacket struct{}

func (p *PingreqPacket) Type() uint8 { return PINGREQ }

func (p *PingreqPacket) Encode(dst []byte) ([]byte, error) {
	return appendFixedHeader(dst, PINGREQ, 0, 0)
}

// DecodePingreq decodes a PINGREQ packet, which carries no body.
func DecodePingreq(remaining []byte) (*PingreqPacket, error) {
	if len(remaining) != 0 {
		return nil, fmt.Errorf("packets: PINGREQ must have empty body")
	}
	return &PingreqPacket{}, nil
}
