package packets

// PubcompPacket is the fourth and final step of the QoS 2 handshake.
type PubcompPacket struct {
	PacketID uint16
}

func (p *PubcompPacket) Type() uint8 { return PUBCOMP }

func (p *PubcompPacket) Encode(dst []byte) ([]byte, error) {
	dst, err := appendFixedHeader(dst, PUBCOMP, 0, 2)
	if err != nil {
		return nil, err
	}
	return appendU16(dst, p.PacketID), nil
}

// DecodePubcomp decodes a PUBCOMP packet from its remaining-length region.
func DecodePubcomp(remaining []byte) (*PubcompPacket, error) {
	id, err := decodePacketIDOnly(remaining, "PUBCOMP")
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{PacketID: id}, nil
}
