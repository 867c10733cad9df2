package packets

import "fmt"

// PubrelPacket is the third step of the QoS 2 handshake. Its fixed header
// carries the mandatory 0x02 flag nibble (QoS=1 bit set); a decoder that
// ignores this and aliases the id into a shared union field with
// PUBACK/PUBREC is a known defect in older implementations. PacketID has
// its own typed field here - there is no union to alias.
type PubrelPacket struct {
	PacketID uint16
}

func (p *PubrelPacket) Type() uint8 { return PUBREL }

func (p *PubrelPacket) Encode(dst []byte) ([]byte, error) {
	dst, err := appendFixedHeader(dst, PUBREL, 0x02, 2)
	if err != nil {
		return nil, err
	}
	return appendU16(dst, p.PacketID), nil
}

// DecodePubrel decodes a PUBREL packet. header must carry fixed-header
// flags equal to 0x02 (QoS bit 1 set); anything else is a protocol
// violation.
func DecodePubrel(remaining []byte, header *FixedHeader) (*PubrelPacket, error) {
	if header.Flags != 0x02 {
		return nil, fmt.Errorf("packets: PUBREL fixed-header flags must be 0x02, got 0x%02X", header.Flags)
	}
	id, err := decodePacketIDOnly(remaining, "PUBREL")
	if err != nil {
		return nil, err
	}
	return &PubrelPacket{PacketID: id}, nil
}
