package packets

import "fmt"

// ConnectPacket is the MQTT CONNECT control packet: the first packet a
// client sends on a new connection.
type ConnectPacket struct {
	ProtocolName  string // "MQTT" (3.1.1) or "MQIsdp" (3.1)
	ProtocolLevel uint8  // Version311 or Version31

	CleanSession bool
	WillFlag     bool
	WillQoS      uint8
	WillRetain   bool
	UsernameFlag bool
	PasswordFlag bool

	KeepAlive uint16

	ClientID string

	WillTopic   string // only meaningful if WillFlag
	WillMessage []byte // only meaningful if WillFlag

	Username string // only meaningful if UsernameFlag
	Password string // only meaningful if PasswordFlag
}

func (p *ConnectPacket) Type() uint8 { return CONNECT }

// Encode serializes the CONNECT packet. The connect flag byte is
// assembled bit by bit: bit1 clean-session, bit2 will-flag, bits3-4
// will-QoS, bit5 will-retain, bit6 password-present, bit7 username-present.
func (p *ConnectPacket) Encode(dst []byte) ([]byte, error) {
	var flags uint8
	if p.CleanSession {
		flags |= 0x02
	}
	if p.WillFlag {
		flags |= 0x04
		flags |= (p.WillQoS & 0x03) << 3
		if p.WillRetain {
			flags |= 0x20
		}
	}
	if p.PasswordFlag {
		flags |= 0x40
	}
	if p.UsernameFlag {
		flags |= 0x80
	}

	variableHeader := appendUTF(nil, p.ProtocolName)
	variableHeader = appendU8(variableHeader, p.ProtocolLevel)
	variableHeader = appendU8(variableHeader, flags)
	variableHeader = appendU16(variableHeader, p.KeepAlive)

	payload := appendUTF(nil, p.ClientID)
	if p.WillFlag {
		payload = appendUTF(payload, p.WillTopic)
		payload = appendBytes(payload, p.WillMessage)
	}
	if p.UsernameFlag {
		payload = appendUTF(payload, p.Username)
	}
	if p.PasswordFlag {
		payload = appendUTF(payload, p.Password)
	}

	remainingLength := len(variableHeader) + len(payload)
	dst, err := appendFixedHeader(dst, CONNECT, 0, remainingLength)
	if err != nil {
		return nil, err
	}
	dst = append(dst, variableHeader...)
	dst = append(dst, payload...)
	return dst, nil
}

// DecodeConnect decodes a CONNECT packet from its remaining-length region.
func DecodeConnect(remaining []byte) (*ConnectPacket, error) {
	c := newCursor(remaining)
	p := &ConnectPacket{}

	name, err := c.readUTF()
	if err != nil {
		return nil, fmt.Errorf("packets: CONNECT protocol name: %w", err)
	}
	p.ProtocolName = name

	level, err := c.readU8()
	if err != nil {
		return nil, fmt.Errorf("packets: CONNECT protocol level: %w", err)
	}
	p.ProtocolLevel = level

	flags, err := c.readU8()
	if err != nil {
		return nil, fmt.Errorf("packets: CONNECT flags: %w", err)
	}
	p.CleanSession = flags&0x02 != 0
	p.WillFlag = flags&0x04 != 0
	p.WillQoS = (flags >> 3) & 0x03
	p.WillRetain = flags&0x20 != 0
	p.PasswordFlag = flags&0x40 != 0
	p.UsernameFlag = flags&0x80 != 0

	keepAlive, err := c.readU16()
	if err != nil {
		return nil, fmt.Errorf("packets: CONNECT keep-alive: %w", err)
	}
	p.KeepAlive = keepAlive

	clientID, err := c.readUTF()
	if err != nil {
		return nil, fmt.Errorf("packets: CONNECT client id: %w", err)
	}
	p.ClientID = clientID

	if p.WillFlag {
		willTopic, err := c.readUTF()
		if err != nil {
			return nil, fmt.Errorf("packets: CONNECT will topic: %w", err)
		}
		willMessage, err := c.readBytes()
		if err != nil {
			return nil, fmt.Errorf("packets: CONNECT will message: %w", err)
		}
		p.WillTopic = willTopic
		p.WillMessage = append([]byte(nil), willMessage...)
	} else if flags&0x38 != 0 {
		return nil, fmt.Errorf("packets: CONNECT will-QoS/retain set without will-flag")
	}

	if p.UsernameFlag {
		username, err := c.readUTF()
		if err != nil {
			return nil, fmt.Errorf("packets: CONNECT username: %w", err)
		}
		p.Username = username
	}

	if p.PasswordFlag {
		password, err := c.readUTF()
		if err != nil {
			return nil, fmt.Errorf("packets: CONNECT password: %w", err)
		}
		p.Password = password
	}

	if p.WillFlag && (p.WillTopic == "" || len(p.WillMessage) == 0) {
		return nil, fmt.Errorf("packets: CONNECT will-flag set with empty will-topic or will-payload")
	}

	return p, nil
}
