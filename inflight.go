package mqttc

import "container/list"

// direction distinguishes a record tracking a publication we sent
// (outbound, we are the publisher) from one tracking a publication we
// received (inbound, we are the subscriber).
type direction uint8

const (
	directionOut direction = iota
	directionIn
)

// subState is one of the nine QoS 1/2 handshake states. A SEND_* state
// means the wire write of the named packet
// failed last attempt and must be retried; a WAIT_* state means the write
// succeeded and we are waiting on the peer's next handshake packet.
type subState uint8

const (
	sendPublish subState = iota
	sendPuback
	sendPubrec
	sendPubrel
	sendPubcomp
	waitPuback
	waitPubrec
	waitPubrel
	waitPubcomp
)

// inflightRecord tracks one QoS 1 or QoS 2 publication between send (or
// receipt) and terminal acknowledgement.
type inflightRecord struct {
	packetID  uint16
	topic     string
	qos       uint8
	retain    bool
	payload   []byte // owned; nil until needed (inbound QoS2 stores it for PUBREL delivery)
	dir       direction
	state     subState
	lastTouch int64 // session clock seconds of the last wire attempt

	elem *list.Element // this record's node in the table's order list
}

// inflightKey identifies a record: at most one record may exist per
// (packet-id, direction) pair, so both fields are part of the key.
type inflightKey struct {
	id  uint16
	dir direction
}

// inflightTable is the in-flight publication table: an id-indexed map for
// O(1) lookup on ack receipt, plus an insertion-ordered list for a fair,
// oldest-first retransmission sweep.
type inflightTable struct {
	byKey map[inflightKey]*inflightRecord
	order *list.List // of *inflightRecord, oldest first

	nextID uint16 // monotonic counter for outbound packet-id generation
}

func newInflightTable() *inflightTable {
	return &inflightTable{
		byKey: make(map[inflightKey]*inflightRecord),
		order: list.New(),
	}
}

func (t *inflightTable) get(id uint16, dir direction) (*inflightRecord, bool) {
	r, ok := t.byKey[inflightKey{id, dir}]
	return r, ok
}

func (t *inflightTable) insert(r *inflightRecord) {
	key := inflightKey{r.packetID, r.dir}
	r.elem = t.order.PushBack(r)
	t.byKey[key] = r
}

func (t *inflightTable) remove(r *inflightRecord) {
	key := inflightKey{r.packetID, r.dir}
	delete(t.byKey, key)
	if r.elem != nil {
		t.order.Remove(r.elem)
		r.elem = nil
	}
}

func (t *inflightTable) len() int {
	return len(t.byKey)
}

// forEachInOrder walks records oldest-first, matching the tick-driven
// retransmission sweep's fairness rule. fn may remove the current record
// (via t.remove) or any other record safely; iteration is snapshotted.
func (t *inflightTable) forEachInOrder(fn func(*inflightRecord)) {
	snapshot := make([]*inflightRecord, 0, t.order.Len())
	for e := t.order.Front(); e != nil; e = e.Next() {
		snapshot = append(snapshot, e.Value.(*inflightRecord))
	}
	for _, r := range snapshot {
		if r.elem == nil {
			continue // removed earlier in this walk
		}
		fn(r)
	}
}

// nextOutboundID implements the packet-id generator: a monotonic 16-bit
// counter, pre-incremented, skipping both the reserved value 0 and any id
// currently live among our own outbound records. ErrIDSpaceExhausted is
// returned once all 65535 non-zero ids are live.
func (t *inflightTable) nextOutboundID() (uint16, error) {
	outboundLive := 0
	for k := range t.byKey {
		if k.dir == directionOut {
			outboundLive++
		}
	}
	if outboundLive >= 65535 {
		return 0, ErrIDSpaceExhausted
	}

	for i := 0; i < 65536; i++ {
		t.nextID++
		if t.nextID == 0 {
			t.nextID++
		}
		if _, live := t.byKey[inflightKey{t.nextID, directionOut}]; !live {
			return t.nextID, nil
		}
	}
	return 0, ErrIDSpaceExhausted
}
