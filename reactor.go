package mqttc

import (
	"errors"
	"io"
	"net"
	"time"
)

// tickInterval is the reactor's clock granularity. It doubles as the read
// deadline, so a quiet connection still drives session.onTick once a
// second even with nothing arriving on the wire - the keep-alive cycle
// and retransmission sweep depend on this.
const tickInterval = time.Second

// runOnce is the blocking read/tick loop behind Run. It returns nil only
// when the client itself initiated the stop (Destroy or a clean
// Disconnect); any other return is an unplanned link death that Run may
// retry.
func (c *Client) runOnce() error {
	buf := make([]byte, 4096)
	for {
		if c.stopping.Load() {
			return nil
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(tickInterval)); err != nil {
			return err
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.stats.bytesReceived.Add(uint64(n))
			if sessErr := c.sess.onReadable(buf[:n]); sessErr != nil {
				return sessErr
			}
			if c.sess.dead {
				return errors.New("mqttc: session terminated")
			}
		}

		if err == nil {
			continue
		}
		if isTimeout(err) {
			c.sess.onTick()
			if c.sess.dead {
				return ErrLinkDead
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			if c.stopping.Load() {
				return nil
			}
			return ErrClientDisconnected
		}
		return err
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
