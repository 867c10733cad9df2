package mqttc

import (
	"net"
	"time"
)

// Conn is the narrow transport collaborator the reactor drives. It is
// satisfied by *net.TCPConn and *tls.Conn without any adapter; tests
// substitute a net.Pipe or an in-memory fake. Socket acquisition and TLS
// setup are left to the caller, who constructs the Conn and hands it to
// Client.ConnectConn.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// halfCloser is implemented by connections that can shut down their write
// side independently of Close, such as *net.TCPConn. A clean Disconnect
// uses this when available so the peer sees EOF while we still drain any
// trailing bytes it sends us.
type halfCloser interface {
	CloseWrite() error
}

// DialTCP opens a plain TCP connection to addr (host:port), the common
// case for Client.Connect. Callers who need TLS construct their own
// tls.Dial'd Conn instead.
func DialTCP(addr string, timeout time.Duration) (Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
