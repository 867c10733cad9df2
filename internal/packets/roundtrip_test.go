package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeOne feeds a single fully-buffered packet's bytes through Decoder
// and returns the one packet it emits, so tests can assert
// decode(encode(p)) == p for every packet kind.
func decodeOne(t *testing.T, buf []byte) Packet {
	t.Helper()
	dec := NewDecoder()
	dec.Authenticated = true
	var got Packet
	err := dec.Feed(buf, func(d Decoded) error {
		got = d.Packet
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestRoundTripConnect(t *testing.T) {
	p := &ConnectPacket{
		ProtocolName: "MQTT", ProtocolLevel: Version311,
		CleanSession: true, KeepAlive: 60, ClientID: "clientA",
		WillFlag: true, WillTopic: "lwt/a", WillMessage: []byte("bye"), WillQoS: 1, WillRetain: true,
		UsernameFlag: true, Username: "alice", PasswordFlag: true, Password: "secret",
	}
	buf, err := p.Encode(nil)
	require.NoError(t, err)

	dec := NewDecoder()
	var got Packet
	require.NoError(t, dec.Feed(buf, func(d Decoded) error { got = d.Packet; return nil }))
	require.IsType(t, &ConnectPacket{}, got)
	assert.Equal(t, p, got)
}

func TestRoundTripConnack(t *testing.T) {
	p := &ConnackPacket{SessionPresent: true, ReturnCode: ConnAccepted}
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	got := decodeOne(t, buf)
	assert.Equal(t, p, got)
}

func TestRoundTripPublishQoS0(t *testing.T) {
	p := &PublishPacket{Topic: "a/b", Payload: []byte("hello")}
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	got := decodeOne(t, buf)
	assert.Equal(t, p, got)
}

func TestRoundTripPublishQoS2Dup(t *testing.T) {
	p := &PublishPacket{Topic: "a/b", QoS: QoS2, PacketID: 42, Dup: true, Retain: true, Payload: []byte{1, 2, 3}}
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	got := decodeOne(t, buf)
	assert.Equal(t, p, got)
}

func TestRoundTripPublishEmptyPayload(t *testing.T) {
	p := &PublishPacket{Topic: "a/b", QoS: QoS1, PacketID: 7, Payload: nil}
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	got := decodeOne(t, buf).(*PublishPacket)
	assert.Equal(t, "a/b", got.Topic)
	assert.Len(t, got.Payload, 0)
}

func TestRoundTripPuback(t *testing.T) {
	p := &PubackPacket{PacketID: 99}
	buf, _ := p.Encode(nil)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripPubrec(t *testing.T) {
	p := &PubrecPacket{PacketID: 100}
	buf, _ := p.Encode(nil)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripPubrel(t *testing.T) {
	p := &PubrelPacket{PacketID: 101}
	buf, _ := p.Encode(nil)
	assert.Equal(t, byte(0x62), buf[0], "PUBREL fixed-header flags must be 0x02")
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripPubcomp(t *testing.T) {
	p := &PubcompPacket{PacketID: 102}
	buf, _ := p.Encode(nil)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripSubscribe(t *testing.T) {
	p := &SubscribePacket{PacketID: 5, Subs: []SubscriptionRequest{
		{Topic: "a/+", QoS: 0}, {Topic: "b/#", QoS: 1}, {Topic: "c", QoS: 2},
	}}
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripSuback(t *testing.T) {
	p := &SubackPacket{PacketID: 5, ReturnCodes: []uint8{SubackQoS0, SubackQoS1, SubackFailure}}
	buf, _ := p.Encode(nil)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripUnsubscribe(t *testing.T) {
	p := &UnsubscribePacket{PacketID: 6, Topics: []string{"a/+", "b/#"}}
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripUnsuback(t *testing.T) {
	p := &UnsubackPacket{PacketID: 6}
	buf, _ := p.Encode(nil)
	assert.Equal(t, p, decodeOne(t, buf))
}

func TestRoundTripPingreqPingrespDisconnect(t *testing.T) {
	for _, p := range []Packet{&PingreqPacket{}, &PingrespPacket{}, &DisconnectPacket{}} {
		buf, err := p.Encode(nil)
		require.NoError(t, err)
		assert.Equal(t, p, decodeOne(t, buf))
	}
}

func TestConnectWillFlagRequiresWillFields(t *testing.T) {
	buf := []byte{}
	buf = appendUTF(buf, "MQTT")
	buf = appendU8(buf, Version311)
	buf = appendU8(buf, 0x04) // will-flag set, no will topic/message follows
	buf = appendU16(buf, 30)
	buf = appendUTF(buf, "c")
	_, err := DecodeConnect(buf)
	assert.Error(t, err)
}

func TestPubrelRejectsWrongFlags(t *testing.T) {
	header := &FixedHeader{Type: PUBREL, Flags: 0x00}
	buf := appendU16(nil, 1)
	_, err := DecodePubrel(buf, header)
	assert.Error(t, err)
}

func TestSubscribeRejectsReservedQoSBits(t *testing.T) {
	header := &FixedHeader{Type: SUBSCRIBE, Flags: 0x02}
	buf := appendU16(nil, 1)
	buf = appendUTF(buf, "a")
	buf = appendU8(buf, 0x04) // reserved bits set
	_, err := DecodeSubscribe(buf, header)
	assert.Error(t, err)
}
