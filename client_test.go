package mqttc

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqttc-go/mqttc/internal/packets"
)

// fakeBroker reads whatever the client writes and lets the test assert on
// it or answer with canned packets, using an in-memory net.Pipe instead of
// a real socket.
type fakeBroker struct {
	conn net.Conn
}

func newFakeBrokerPair(t *testing.T) (clientSide net.Conn, broker *fakeBroker) {
	t.Helper()
	a, b := net.Pipe()
	return a, &fakeBroker{conn: b}
}

func (f *fakeBroker) readPacket(t *testing.T) packets.Packet {
	t.Helper()
	dec := packets.NewDecoder()
	dec.Authenticated = true
	buf := make([]byte, 512)
	var got packets.Packet
	for got == nil {
		n, err := f.conn.Read(buf)
		require.NoError(t, err)
		require.NoError(t, dec.Feed(buf[:n], func(d packets.Decoded) error { got = d.Packet; return nil }))
	}
	return got
}

func (f *fakeBroker) send(t *testing.T, p packets.Packet) {
	t.Helper()
	buf, err := p.Encode(nil)
	require.NoError(t, err)
	_, err = f.conn.Write(buf)
	require.NoError(t, err)
}

func TestClientConnectHandshake(t *testing.T) {
	clientSide, broker := newFakeBrokerPair(t)
	defer clientSide.Close()
	defer broker.conn.Close()

	connacked := make(chan struct{}, 1)
	c := New(Callbacks{
		OnConnack: func(flags, returnCode uint8) {
			connacked <- struct{}{}
		},
	}, WithClientID("test-client"))

	// net.Pipe is synchronous: the broker side must be reading concurrently
	// or the client's blocking Write of CONNECT never returns.
	connectCh := make(chan *packets.ConnectPacket, 1)
	go func() { connectCh <- broker.readPacket(t).(*packets.ConnectPacket) }()

	require.NoError(t, c.ConnectConn("pipe", clientSide))

	var connectPkt *packets.ConnectPacket
	select {
	case connectPkt = <-connectCh:
	case <-time.After(2 * time.Second):
		t.Fatal("broker never received CONNECT")
	}
	assert.Equal(t, "test-client", connectPkt.ClientID)

	runDone := make(chan error, 1)
	go func() { runDone <- c.Run() }()

	broker.send(t, &packets.ConnackPacket{ReturnCode: packets.ConnAccepted})

	select {
	case <-connacked:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnConnack")
	}

	c.Destroy()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Destroy")
	}
}

func TestClientPublishReachesWire(t *testing.T) {
	clientSide, broker := newFakeBrokerPair(t)
	defer clientSide.Close()
	defer broker.conn.Close()

	var c *Client
	pubID := make(chan uint16, 1)
	c = New(Callbacks{
		OnConnack: func(flags, returnCode uint8) {
			// Per the package doc, operations that should run once the
			// link is live belong inside OnConnack - it executes on
			// Run's own goroutine, preserving the single-threaded
			// session contract.
			id, err := c.Publish("topic", AtLeastOnce, false, []byte("payload"))
			require.NoError(t, err)
			pubID <- id
		},
	}, WithClientID("pub-client"))

	connectDone := make(chan struct{})
	go func() { broker.readPacket(t); close(connectDone) }()
	require.NoError(t, c.ConnectConn("pipe", clientSide))
	<-connectDone

	go func() { _ = c.Run() }()

	pubDone := make(chan *packets.PublishPacket, 1)
	go func() { pubDone <- broker.readPacket(t).(*packets.PublishPacket) }()

	broker.send(t, &packets.ConnackPacket{ReturnCode: packets.ConnAccepted})

	var id uint16
	select {
	case id = <-pubID:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnack never fired")
	}

	var pub *packets.PublishPacket
	select {
	case pub = <-pubDone:
	case <-time.After(2 * time.Second):
		t.Fatal("broker never received PUBLISH")
	}
	assert.Equal(t, "topic", pub.Topic)
	assert.Equal(t, id, pub.PacketID)

	c.Destroy()
}

func TestClientMethodsOnNilHandleReturnError(t *testing.T) {
	var c *Client
	_, err := c.Publish("t", AtMostOnce, false, nil)
	assert.ErrorIs(t, err, CodeInvalidHandle)

	bare := &Client{}
	_, err = bare.Publish("t", AtMostOnce, false, nil)
	assert.ErrorIs(t, err, CodeInvalidHandle)
}

func TestClientPublishInvalidQoS(t *testing.T) {
	clientSide, broker := newFakeBrokerPair(t)
	defer clientSide.Close()
	defer broker.conn.Close()

	connectDone := make(chan struct{})
	go func() { broker.readPacket(t); close(connectDone) }()

	c := New(Callbacks{})
	require.NoError(t, c.ConnectConn("pipe", clientSide))
	<-connectDone

	_, err := c.Publish("t", QoS(9), false, nil)
	assert.ErrorIs(t, err, CodeInvalidQoS)
}
