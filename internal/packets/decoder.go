package packets

import "fmt"

// decoderState is the incremental parser's three-state machine. State is
// preserved across Feed calls so a packet may be fed to the decoder in
// arbitrarily small fragments without losing progress.
type decoderState int

const (
	stateFixed decoderState = iota
	stateLength
	stateRemain
)

// Decoded is one fully assembled control packet handed back by Feed,
// already validated and type-asserted into its concrete variant.
type Decoded struct {
	Header *FixedHeader
	Packet Packet
}

// Decoder turns an arbitrarily fragmented byte stream into a sequence of
// decoded MQTT control packets. It is not safe for concurrent use; a
// Decoder is meant to be owned by a single session, matching the
// single-threaded reactor model the session runs under.
//
// Decoder also implements the pre-authentication gate from the wire
// protocol: after a CONNECT has gone out, the first packet received must
// be a CONNACK, and any other packet type before that is a protocol
// violation. Authenticated flips true the first time a CONNECT or CONNACK
// is decoded.
type Decoder struct {
	Authenticated bool

	state           decoderState
	typ             uint8
	flags           uint8
	remainingLength int
	multiplier      int
	bufPtr          *[]byte
	have            int
}

// NewDecoder returns a Decoder ready to parse a fresh byte stream.
func NewDecoder() *Decoder {
	return &Decoder{state: stateFixed, multiplier: 1}
}

// Feed consumes data, invoking emit once per fully assembled and validated
// packet. Feed returns as soon as emit returns a non-nil error (a protocol
// violation), leaving any undelivered trailing bytes in data unconsumed -
// the caller should treat the connection as dead at that point, exactly as
// the rest of a corrupted stream would be unparseable.
func (d *Decoder) Feed(data []byte, emit func(Decoded) error) error {
	i := 0
	for i < len(data) {
		switch d.state {
		case stateFixed:
			b := data[i]
			i++
			d.typ = b >> 4
			d.flags = b & 0x0F
			d.remainingLength = 0
			d.multiplier = 1
			d.state = stateLength

		case stateLength:
			b := data[i]
			i++
			if d.multiplier > 128*128*128 {
				return fmt.Errorf("packets: remaining length exceeds 4 bytes")
			}
			d.remainingLength += int(b&0x7F) * d.multiplier
			d.multiplier *= 128
			if b&0x80 != 0 {
				continue
			}
			if d.remainingLength > MaxRemainingLength {
				return fmt.Errorf("packets: remaining length %d exceeds spec maximum", d.remainingLength)
			}
			if d.remainingLength == 0 {
				if err := d.dispatch(nil, emit); err != nil {
					return err
				}
				d.reset()
				continue
			}
			d.bufPtr = getBuffer(d.remainingLength)
			d.have = 0
			d.state = stateRemain

		case stateRemain:
			need := d.remainingLength - d.have
			avail := len(data) - i
			n := need
			if avail < n {
				n = avail
			}
			copy((*d.bufPtr)[d.have:d.have+n], data[i:i+n])
			d.have += n
			i += n
			if d.have < d.remainingLength {
				continue
			}
			remaining := (*d.bufPtr)[:d.remainingLength]
			err := d.dispatch(remaining, emit)
			putBuffer(d.bufPtr)
			d.bufPtr = nil
			d.reset()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) reset() {
	d.state = stateFixed
	d.multiplier = 1
}

// dispatch implements spec section 4.4: gate on authentication, decode the
// concrete variant, validate its semantic invariants, and flip
// Authenticated once a valid CONNECT or CONNACK has been seen.
func (d *Decoder) dispatch(remaining []byte, emit func(Decoded) error) error {
	header := &FixedHeader{Type: d.typ, Flags: d.flags, RemainingLength: len(remaining)}

	if !d.Authenticated && d.typ != CONNECT && d.typ != CONNACK {
		return fmt.Errorf("packets: protocol violation: %s received before authentication", nameOf(d.typ))
	}

	pkt, err := decodeByType(d.typ, header, remaining)
	if err != nil {
		return err
	}

	if d.typ == CONNECT || d.typ == CONNACK {
		d.Authenticated = true
	}

	return emit(Decoded{Header: header, Packet: pkt})
}

func nameOf(typ uint8) string {
	if name, ok := Names[typ]; ok {
		return name
	}
	return fmt.Sprintf("type %d", typ)
}

// decodeByType decodes the remaining-length region into its concrete
// packet type. All per-variant bounds checking happens here, on the fully
// buffered region - never against the wire stream directly - so every
// check reduces to a simple length comparison.
func decodeByType(typ uint8, header *FixedHeader, remaining []byte) (Packet, error) {
	switch typ {
	case CONNECT:
		return DecodeConnect(remaining)
	case CONNACK:
		return DecodeConnack(remaining)
	case PUBLISH:
		return DecodePublish(remaining, header)
	case PUBACK:
		return DecodePuback(remaining)
	case PUBREC:
		return DecodePubrec(remaining)
	case PUBREL:
		return DecodePubrel(remaining, header)
	case PUBCOMP:
		return DecodePubcomp(remaining)
	case SUBSCRIBE:
		return DecodeSubscribe(remaining, header)
	case SUBACK:
		return DecodeSuback(remaining)
	case UNSUBSCRIBE:
		return DecodeUnsubscribe(remaining, header)
	case UNSUBACK:
		return DecodeUnsuback(remaining)
	case PINGREQ:
		return DecodePingreq(remaining)
	case PINGRESP:
		return DecodePingresp(remaining)
	case DISCONNECT:
		return DecodeDisconnect(remaining)
	default:
		return nil, fmt.Errorf("packets: unknown control packet type %d", typ)
	}
}
