package packets

import "fmt"

// PublishPacket carries an application message in either direction.
// PacketID is only meaningful when QoS > 0.
type PublishPacket struct {
	Dup    bool
	QoS    uint8
	Retain bool

	Topic    string
	PacketID uint16

	Payload []byte
}

func (p *PublishPacket) Type() uint8 { return PUBLISH }

func (p *PublishPacket) Encode(dst []byte) ([]byte, error) {
	if p.QoS > QoS2 {
		return nil, fmt.Errorf("packets: invalid PUBLISH qos %d", p.QoS)
	}

	variableHeader := appendUTF(nil, p.Topic)
	if p.QoS > QoS0 {
		variableHeader = appendU16(variableHeader, p.PacketID)
	}

	remainingLength := len(variableHeader) + len(p.Payload)

	var flags uint8
	if p.Dup {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}

	dst, err := appendFixedHeader(dst, PUBLISH, flags, remainingLength)
	if err != nil {
		return nil, err
	}
	dst = append(dst, variableHeader...)
	dst = append(dst, p.Payload...)
	return dst, nil
}

// DecodePublish decodes a PUBLISH packet. header carries the fixed-header
// flags (DUP/QoS/RETAIN) already split out by the caller.
func DecodePublish(remaining []byte, header *FixedHeader) (*PublishPacket, error) {
	p := &PublishPacket{
		Dup:    header.Flags&0x08 != 0,
		QoS:    (header.Flags >> 1) & 0x03,
		Retain: header.Flags&0x01 != 0,
	}
	if p.QoS > QoS2 {
		return nil, fmt.Errorf("packets: PUBLISH invalid qos %d", p.QoS)
	}

	c := newCursor(remaining)
	topic, err := c.readUTF()
	if err != nil {
		return nil, fmt.Errorf("packets: PUBLISH topic: %w", err)
	}
	p.Topic = topic

	if p.QoS > QoS0 {
		id, err := c.readU16()
		if err != nil {
			return nil, fmt.Errorf("packets: PUBLISH packet id: %w", err)
		}
		p.PacketID = id
	}

	// Whatever remains is the payload; its length is implicit.
	p.Payload = append([]byte(nil), c.rest()...)
	return p, nil
}
