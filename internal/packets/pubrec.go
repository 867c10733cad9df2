package packets

// PubrecPacket is the first server response in the QoS 2 handshake, or the
// client's acknowledgement of an inbound QoS 2 PUBLISH, depending on
// direction.
type PubrecPacket struct {
	PacketID uint16
}

func (p *PubrecPacket) Type() uint8 { return PUBREC }

func (p *PubrecPacket) Encode(dst []byte) ([]byte, error) {
	dst, err := appendFixedHeader(dst, PUBREC, 0, 2)
	if err != nil {
		return nil, err
	}
	return appendU16(dst, p.PacketID), nil
}

// DecodePubrec decodes a PUBREC packet from its remaining-length region.
func DecodePubrec(remaining []byte) (*PubrecPacket, error) {
	id, err := decodePacketIDOnly(remaining, "PUBREC")
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{PacketID: id}, nil
}
