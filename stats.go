package mqttc

import "sync/atomic"

// Stats are the cumulative wire counters a Client maintains for its
// lifetime. All fields are updated with atomic operations so Stats can be
// read safely from a goroutine other than the one driving Run, without
// requiring callers to synchronize with the session goroutine themselves.
type Stats struct {
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	reconnects      atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats, safe to pass by value.
type Snapshot struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	Reconnects      uint64
}

// Stats returns a snapshot of the client's cumulative wire counters.
func (c *Client) Stats() Snapshot {
	return Snapshot{
		BytesSent:       c.stats.bytesSent.Load(),
		BytesReceived:   c.stats.bytesReceived.Load(),
		PacketsSent:     c.stats.packetsSent.Load(),
		PacketsReceived: c.stats.packetsReceived.Load(),
		Reconnects:      c.stats.reconnects.Load(),
	}
}
