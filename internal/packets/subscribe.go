package packets

import "fmt"

// SubscriptionRequest is one (topic filter, requested QoS) pair within a
// SUBSCRIBE packet.
type SubscriptionRequest struct {
	Topic string
	QoS   uint8
}

// SubscribePacket requests subscription to up to MaxTopicsPerRequest
// (topic, QoS) pairs.
type SubscribePacket struct {
	PacketID uint16
	Subs     []SubscriptionRequest
}

func (p *SubscribePacket) Type() uint8 { return SUBSCRIBE }

func (p *SubscribePacket) Encode(dst []byte) ([]byte, error) {
	if len(p.Subs) == 0 {
		return nil, fmt.Errorf("packets: SUBSCRIBE requires at least one topic filter")
	}
	if len(p.Subs) > MaxTopicsPerRequest {
		return nil, fmt.Errorf("packets: SUBSCRIBE exceeds %d topic filters", MaxTopicsPerRequest)
	}

	variableHeader := appendU16(nil, p.PacketID)
	var payload []byte
	for _, s := range p.Subs {
		if s.QoS > QoS2 {
			return nil, fmt.Errorf("packets: invalid requested qos %d", s.QoS)
		}
		payload = appendUTF(payload, s.Topic)
		payload = appendU8(payload, s.QoS&0x03)
	}

	remainingLength := len(variableHeader) + len(payload)
	dst, err := appendFixedHeader(dst, SUBSCRIBE, 0x02, remainingLength)
	if err != nil {
		return nil, err
	}
	dst = append(dst, variableHeader...)
	dst = append(dst, payload...)
	return dst, nil
}

// DecodeSubscribe decodes a SUBSCRIBE packet. header's fixed-header flags
// must be 0x02.
func DecodeSubscribe(remaining []byte, header *FixedHeader) (*SubscribePacket, error) {
	if header.Flags != 0x02 {
		return nil, fmt.Errorf("packets: SUBSCRIBE fixed-header flags must be 0x02, got 0x%02X", header.Flags)
	}

	c := newCursor(remaining)
	id, err := c.readU16()
	if err != nil {
		return nil, fmt.Errorf("packets: SUBSCRIBE packet id: %w", err)
	}
	p := &SubscribePacket{PacketID: id}

	for c.remaining() > 0 {
		topic, err := c.readUTF()
		if err != nil {
			return nil, fmt.Errorf("packets: SUBSCRIBE topic filter: %w", err)
		}
		qos, err := c.readU8()
		if err != nil {
			return nil, fmt.Errorf("packets: SUBSCRIBE requested qos: %w", err)
		}
		if qos&0xFC != 0 {
			return nil, fmt.Errorf("packets: SUBSCRIBE reserved options bits set")
		}
		if len(p.Subs) >= MaxTopicsPerRequest {
			return nil, fmt.Errorf("packets: SUBSCRIBE exceeds %d topic filters", MaxTopicsPerRequest)
		}
		p.Subs = append(p.Subs, SubscriptionRequest{Topic: topic, QoS: qos & 0x03})
	}

	if len(p.Subs) == 0 {
		return nil, fmt.Errorf("packets: SUBSCRIBE requires at least one topic filter")
	}
	return p, nil
}
