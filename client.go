package mqttc

import (
	"fmt"
	"sync/atomic"
	"time"
)

// dialTimeout bounds the TCP handshake for both the initial Connect and
// the single reconnect attempt.
const dialTimeout = 10 * time.Second

// Client is the MQTT client facade: New builds one bound to a set of
// Options and Callbacks, Connect opens the transport and performs the
// CONNECT/CONNACK handshake, and Run drives the event loop until the
// link dies or Destroy is called.
//
// Every exported method except Stats and Destroy must be called from the
// same goroutine - the one that calls Run, or the one that called
// Connect before Run starts. The package trades away concurrent access
// from arbitrary goroutines for the absence of mutexes and channels in
// the hot path.
type Client struct {
	cfg *config
	cb  Callbacks

	conn Conn
	sess *session
	addr string

	stats    Stats
	stopping atomic.Bool
}

// New constructs a Client. It does not dial anything - call Connect next.
func New(cb Callbacks, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.clientID == "" {
		cfg.clientID = defaultClientID()
	}
	return &Client{cfg: cfg, cb: cb}
}

// Connect dials addr ("host:port") and performs the CONNECT/CONNACK
// handshake. The CONNACK itself arrives asynchronously, during Run, and
// is reported via Callbacks.OnConnack / the WithOnConnect hook - Connect
// only reports transport and local validation failures.
func (c *Client) Connect(addr string) error {
	if c == nil {
		return CodeInvalidHandle
	}
	conn, err := DialTCP(addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("mqttc: dial %s: %w", addr, err)
	}
	return c.attach(addr, conn)
}

// ConnectConn performs the CONNECT handshake over a caller-supplied Conn,
// for callers that need TLS or a test double instead of DialTCP.
func (c *Client) ConnectConn(addr string, conn Conn) error {
	if c == nil {
		return CodeInvalidHandle
	}
	return c.attach(addr, conn)
}

func (c *Client) attach(addr string, conn Conn) error {
	c.addr = addr
	c.conn = conn
	c.sess = newSession(c.cfg, c.cb, c.writeWire, c.onLinkDead)
	c.sess.onPacketIn = func() { c.stats.packetsReceived.Add(1) }
	if err := c.sess.connect(); err != nil {
		conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// writeWire is the session's injected writer: a short write is treated
// as a failure rather than retried, and every attempt updates wire
// stats.
func (c *Client) writeWire(data []byte) bool {
	n, err := c.conn.Write(data)
	c.stats.bytesSent.Add(uint64(n))
	if err != nil || n != len(data) {
		c.cfg.logger.WithError(err).Warn("mqtt write failed")
		return false
	}
	c.stats.packetsSent.Add(1)
	return true
}

func (c *Client) onLinkDead(err error) {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Publish sends an application message. For QoS 0 it returns 0, nil as
// soon as the first write attempt is made (success or not - QoS 0 never
// reports failure to the caller). For QoS 1/2 it returns the
// packet id assigned; Callbacks.OnPuback reports completion.
func (c *Client) Publish(topic string, qos QoS, retain bool, payload []byte) (uint16, error) {
	if c == nil || c.sess == nil {
		return 0, CodeInvalidHandle
	}
	return c.sess.publish(topic, qos, retain, payload)
}

// Subscribe requests 1-128 (topic, qos) pairs in a single SUBSCRIBE.
// Callbacks.OnSuback reports the server's grant.
func (c *Client) Subscribe(topics []string, qos []QoS) (uint16, error) {
	if c == nil || c.sess == nil {
		return 0, CodeInvalidHandle
	}
	return c.sess.subscribe(topics, qos)
}

// Unsubscribe requests removal of 1-128 topic filters.
// Callbacks.OnUnsuback reports completion.
func (c *Client) Unsubscribe(topics []string) (uint16, error) {
	if c == nil || c.sess == nil {
		return 0, CodeInvalidHandle
	}
	return c.sess.unsubscribe(topics)
}

// Disconnect sends DISCONNECT and half-closes the write side of the
// connection, then stops Run's event loop. Callbacks.OnConnectionLost is
// not invoked for this clean shutdown path.
func (c *Client) Disconnect() error {
	if c == nil || c.sess == nil {
		return CodeInvalidHandle
	}
	err := c.sess.disconnect()
	if hc, ok := c.conn.(halfCloser); ok {
		hc.CloseWrite()
	}
	c.stopping.Store(true)
	return err
}

// Destroy tears down the connection unconditionally and stops Run. It is
// the only Client method safe to call from a goroutine other than the
// one driving Run.
func (c *Client) Destroy() {
	if c == nil {
		return
	}
	c.stopping.Store(true)
	if c.conn != nil {
		c.conn.Close()
	}
}

// Run drives the event loop until the connection closes, a protocol
// violation occurs, or Destroy/Disconnect is called. On an unplanned
// link death it performs a single reconnection attempt before giving up
// and invoking Callbacks.OnConnectionLost / WithOnConnectionLost.
func (c *Client) Run() error {
	if c == nil || c.conn == nil {
		return CodeInvalidHandle
	}

	for {
		err := c.runOnce()
		if c.stopping.Load() {
			return nil
		}
		if err == nil {
			return nil
		}

		c.cfg.logger.WithError(err).Warn("mqtt link lost, attempting reconnect")
		if rerr := c.reconnect(); rerr != nil {
			if c.cb.OnConnectionLost != nil {
				c.cb.OnConnectionLost(err)
			}
			if c.cfg.onConnectionLost != nil {
				c.cfg.onConnectionLost(err)
			}
			return err
		}
		c.stats.reconnects.Add(1)
	}
}

func (c *Client) reconnect() error {
	conn, err := DialTCP(c.addr, dialTimeout)
	if err != nil {
		return err
	}
	return c.attach(c.addr, conn)
}
