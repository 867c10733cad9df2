package mqttc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mqttc-go/mqttc/internal/packets"
)

// session is the protocol state machine: the in-flight publication
// table, the QoS 1/2 sub-state transitions in both directions, the
// keep-alive two-timestamp algorithm, and the packet-id generator. It
// owns no socket; a writer func is injected by the Client facade, and
// the facade is the one that decides what "link death" means for the
// underlying connection.
//
// session is not safe for concurrent use - see the package doc's
// single-threaded assumption. Every method here is meant to be called
// from the same goroutine that drives Client.Run.
type session struct {
	cfg *config
	cb  Callbacks
	log *logrus.Logger

	dec   *packets.Decoder
	table *inflightTable

	// pendingQoS0 holds QoS 0 publications whose initial write failed.
	// They get exactly one more attempt on the next tick and are then
	// dropped, win or lose - they carry no acknowledgement and so are
	// never truly "in flight".
	pendingQoS0 []*packets.PublishPacket

	// write sends a fully encoded packet and reports whether the whole
	// buffer reached the wire. A short write is treated as a failure, not
	// a partial success.
	write func([]byte) bool

	// onLinkDead is invoked exactly once when the session gives up on the
	// connection - a protocol violation, a transport write failure on
	// SUBSCRIBE or UNSUBSCRIBE, a server-sent DISCONNECT, or a keep-alive
	// timeout. A failed CONNECT or DISCONNECT write is only returned to
	// the caller.
	onLinkDead func(error)

	// onPacketIn, if set, is called once per fully decoded inbound packet
	// - the Client facade uses it to maintain Stats.PacketsReceived.
	onPacketIn func()

	now               int64
	lastSent          int64
	pingOutstandingAt int64
	dead              bool

	keepAliveSec int64
}

func newSession(cfg *config, cb Callbacks, write func([]byte) bool, onLinkDead func(error)) *session {
	return &session{
		cfg:          cfg,
		cb:           cb,
		log:          cfg.logger,
		dec:          packets.NewDecoder(),
		table:        newInflightTable(),
		write:        write,
		onLinkDead:   onLinkDead,
		keepAliveSec: int64(cfg.keepAlive.Seconds()),
	}
}

// connect builds and writes the CONNECT packet. A write failure here is
// a connect failure, not something the retransmission sweep retries.
func (s *session) connect() error {
	if s.cfg.version != packets.Version311 && s.cfg.version != packets.Version31 {
		return CodeInvalidProtocolVersion
	}

	protocolName := "MQTT"
	if s.cfg.version == packets.Version31 {
		protocolName = "MQIsdp"
	}

	pkt := &packets.ConnectPacket{
		ProtocolName:  protocolName,
		ProtocolLevel: s.cfg.version,
		CleanSession:  s.cfg.cleanSession,
		KeepAlive:     uint16(s.cfg.keepAlive.Seconds()),
		ClientID:      s.cfg.clientID,
		UsernameFlag:  s.cfg.authSet,
		Username:      s.cfg.username,
		PasswordFlag:  s.cfg.authSet && s.cfg.password != "",
		Password:      s.cfg.password,
	}
	if s.cfg.will != nil {
		pkt.WillFlag = true
		pkt.WillTopic = s.cfg.will.topic
		pkt.WillMessage = s.cfg.will.payload
		pkt.WillQoS = s.cfg.will.qos
		pkt.WillRetain = s.cfg.will.retain
	}

	buf, err := pkt.Encode(nil)
	if err != nil {
		return fmt.Errorf("mqttc: encoding CONNECT: %w", err)
	}
	if !s.write(buf) {
		return CodeConnectFailure
	}
	s.lastSent = s.now
	return nil
}

// publish implements the outbound publisher logic.
func (s *session) publish(topic string, qos QoS, retain bool, payload []byte) (uint16, error) {
	if !qos.valid() {
		return 0, CodeInvalidQoS
	}

	if qos == AtMostOnce {
		pkt := &packets.PublishPacket{Topic: topic, QoS: uint8(AtMostOnce), Retain: retain, Payload: payload}
		buf, err := pkt.Encode(nil)
		if err != nil {
			return 0, fmt.Errorf("mqttc: encoding PUBLISH: %w", err)
		}
		if !s.write(buf) {
			s.pendingQoS0 = append(s.pendingQoS0, pkt)
		} else {
			s.lastSent = s.now
		}
		return 0, nil
	}

	id, err := s.table.nextOutboundID()
	if err != nil {
		return 0, err
	}

	pkt := &packets.PublishPacket{Topic: topic, QoS: uint8(qos), Retain: retain, Payload: payload, PacketID: id}
	buf, err := pkt.Encode(nil)
	if err != nil {
		return 0, fmt.Errorf("mqttc: encoding PUBLISH: %w", err)
	}
	ok := s.write(buf)

	rec := &inflightRecord{
		packetID:  id,
		topic:     topic,
		qos:       uint8(qos),
		retain:    retain,
		payload:   append([]byte(nil), payload...),
		dir:       directionOut,
		lastTouch: s.now,
	}
	if ok {
		s.lastSent = s.now
		if qos == AtLeastOnce {
			rec.state = waitPuback
		} else {
			rec.state = waitPubrec
		}
	} else {
		rec.state = sendPublish
	}
	s.table.insert(rec)
	return id, nil
}

// subscribe and unsubscribe are not retried by the session - the
// in-flight table and retransmission policy is scoped to QoS 1/2
// publications only. A write failure here is reported straight to the
// caller and to onLinkDead.
func (s *session) subscribe(topics []string, qos []QoS) (uint16, error) {
	if len(topics) != len(qos) {
		return 0, fmt.Errorf("mqttc: topics and qos length mismatch")
	}
	if len(topics) == 0 || len(topics) > packets.MaxTopicsPerRequest {
		return 0, CodeSubscriptionCountExceed
	}
	id, err := s.table.nextOutboundID()
	if err != nil {
		return 0, err
	}
	pkt := &packets.SubscribePacket{PacketID: id}
	for i, t := range topics {
		if !qos[i].valid() {
			return 0, CodeInvalidQoS
		}
		pkt.Subs = append(pkt.Subs, packets.SubscriptionRequest{Topic: t, QoS: uint8(qos[i])})
	}
	buf, err := pkt.Encode(nil)
	if err != nil {
		return 0, fmt.Errorf("mqttc: encoding SUBSCRIBE: %w", err)
	}
	if !s.write(buf) {
		err := fmt.Errorf("mqttc: write failure sending SUBSCRIBE: %w", CodeWriteFailure)
		s.fail(err)
		return 0, err
	}
	s.lastSent = s.now
	return id, nil
}

func (s *session) unsubscribe(topics []string) (uint16, error) {
	if len(topics) == 0 || len(topics) > packets.MaxTopicsPerRequest {
		return 0, CodeSubscriptionCountExceed
	}
	id, err := s.table.nextOutboundID()
	if err != nil {
		return 0, err
	}
	pkt := &packets.UnsubscribePacket{PacketID: id, Topics: topics}
	buf, err := pkt.Encode(nil)
	if err != nil {
		return 0, fmt.Errorf("mqttc: encoding UNSUBSCRIBE: %w", err)
	}
	if !s.write(buf) {
		err := fmt.Errorf("mqttc: write failure sending UNSUBSCRIBE: %w", CodeWriteFailure)
		s.fail(err)
		return 0, err
	}
	s.lastSent = s.now
	return id, nil
}

// disconnect writes DISCONNECT. The caller (Client.Disconnect) is
// responsible for then half-closing the socket.
func (s *session) disconnect() error {
	pkt := &packets.DisconnectPacket{}
	buf, err := pkt.Encode(nil)
	if err != nil {
		return fmt.Errorf("mqttc: encoding DISCONNECT: %w", err)
	}
	if !s.write(buf) {
		return CodeWriteFailure
	}
	s.lastSent = s.now
	return nil
}

// onReadable feeds bytes into the incremental parser, dispatching each
// fully decoded packet. A protocol violation or decode error is fatal to
// the connection.
func (s *session) onReadable(data []byte) error {
	if s.dead {
		return nil
	}
	err := s.dec.Feed(data, func(d packets.Decoded) error {
		if s.onPacketIn != nil {
			s.onPacketIn()
		}
		s.handleIncoming(d.Packet)
		return nil
	})
	if err != nil {
		s.fail(fmt.Errorf("mqttc: protocol violation: %w", err))
		return err
	}
	return nil
}

func (s *session) handleIncoming(pkt packets.Packet) {
	switch p := pkt.(type) {
	case *packets.ConnackPacket:
		if s.cb.OnConnack != nil {
			ackFlags := uint8(0)
			if p.SessionPresent {
				ackFlags = 0x01
			}
			s.cb.OnConnack(ackFlags, p.ReturnCode)
		}
		if p.ReturnCode == packets.ConnAccepted && s.cfg.onConnect != nil {
			s.cfg.onConnect()
		}
	case *packets.PublishPacket:
		s.handlePublish(p)
	case *packets.PubackPacket:
		s.handlePuback(p)
	case *packets.PubrecPacket:
		s.handlePubrec(p)
	case *packets.PubrelPacket:
		s.handlePubrel(p)
	case *packets.PubcompPacket:
		s.handlePubcomp(p)
	case *packets.SubackPacket:
		if s.cb.OnSuback != nil {
			s.cb.OnSuback(p.PacketID, p.ReturnCodes)
		}
	case *packets.UnsubackPacket:
		if s.cb.OnUnsuback != nil {
			s.cb.OnUnsuback(p.PacketID)
		}
	case *packets.PingrespPacket:
		s.pingOutstandingAt = 0
	case *packets.DisconnectPacket:
		s.fail(fmt.Errorf("mqttc: server sent DISCONNECT"))
	}
}

// handlePublish implements the inbound subscriber logic.
func (s *session) handlePublish(p *packets.PublishPacket) {
	switch p.QoS {
	case packets.QoS0:
		s.deliver(p)

	case packets.QoS1:
		s.deliver(p)
		buf, err := (&packets.PubackPacket{PacketID: p.PacketID}).Encode(nil)
		if err != nil {
			s.log.WithError(err).Error("encoding PUBACK")
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			return
		}
		s.table.insert(&inflightRecord{
			packetID: p.PacketID, qos: packets.QoS1, dir: directionIn,
			state: sendPuback, lastTouch: s.now,
		})

	case packets.QoS2:
		// The payload is delivered on PUBREL, never here, so a duplicate
		// PUBLISH ahead of PUBREL cannot double-deliver to the callback.
		if rec, ok := s.table.get(p.PacketID, directionIn); ok {
			// Retransmitted PUBLISH ahead of our PUBREC reaching the
			// peer: re-drive the handshake, do not re-store or re-queue.
			s.resendPubrec(rec)
			return
		}
		rec := &inflightRecord{
			packetID: p.PacketID, topic: p.Topic, qos: packets.QoS2,
			retain: p.Retain, payload: p.Payload, dir: directionIn,
			lastTouch: s.now,
		}
		buf, err := (&packets.PubrecPacket{PacketID: p.PacketID}).Encode(nil)
		if err != nil {
			s.log.WithError(err).Error("encoding PUBREC")
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			rec.state = waitPubrel
		} else {
			rec.state = sendPubrec
		}
		s.table.insert(rec)
	}
}

func (s *session) deliver(p *packets.PublishPacket) {
	if s.cb.OnPublish != nil {
		s.cb.OnPublish(p.Topic, QoS(p.QoS), p.Retain, p.Payload)
	}
}

func (s *session) resendPubrec(rec *inflightRecord) {
	buf, err := (&packets.PubrecPacket{PacketID: rec.packetID}).Encode(nil)
	if err != nil {
		return
	}
	rec.lastTouch = s.now
	if s.write(buf) {
		s.lastSent = s.now
	}
}

func (s *session) handlePuback(p *packets.PubackPacket) {
	rec, ok := s.table.get(p.PacketID, directionOut)
	if !ok || rec.state != waitPuback {
		return
	}
	s.table.remove(rec)
	if s.cb.OnPuback != nil {
		s.cb.OnPuback(p.PacketID)
	}
}

func (s *session) handlePubrec(p *packets.PubrecPacket) {
	rec, ok := s.table.get(p.PacketID, directionOut)
	if !ok || rec.state != waitPubrec {
		return
	}
	buf, err := (&packets.PubrelPacket{PacketID: p.PacketID}).Encode(nil)
	if err != nil {
		s.log.WithError(err).Error("encoding PUBREL")
		return
	}
	rec.lastTouch = s.now
	if s.write(buf) {
		s.lastSent = s.now
		rec.state = waitPubcomp
	} else {
		rec.state = sendPubrel
	}
}

func (s *session) handlePubrel(p *packets.PubrelPacket) {
	rec, ok := s.table.get(p.PacketID, directionIn)
	if !ok {
		return
	}
	// A record still in SEND_PUBCOMP was already delivered on an earlier
	// PUBREL; a repeated PUBREL only re-drives the PUBCOMP.
	if rec.state != sendPubcomp && s.cb.OnPublish != nil {
		s.cb.OnPublish(rec.topic, QoS(rec.qos), rec.retain, rec.payload)
	}
	buf, err := (&packets.PubcompPacket{PacketID: p.PacketID}).Encode(nil)
	if err != nil {
		s.log.WithError(err).Error("encoding PUBCOMP")
		return
	}
	rec.lastTouch = s.now
	if s.write(buf) {
		s.lastSent = s.now
		s.table.remove(rec)
		return
	}
	rec.state = sendPubcomp
}

func (s *session) handlePubcomp(p *packets.PubcompPacket) {
	rec, ok := s.table.get(p.PacketID, directionOut)
	if !ok {
		return
	}
	s.table.remove(rec)
	if s.cb.OnPuback != nil {
		s.cb.OnPuback(p.PacketID)
	}
}

// onTick advances the session clock by one second and runs the keep-alive
// algorithm followed by the retransmission sweep.
func (s *session) onTick() {
	if s.dead {
		return
	}
	s.now++

	if s.pingOutstandingAt > 0 && s.now-s.pingOutstandingAt > s.keepAliveSec {
		s.fail(ErrLinkDead)
		return
	}
	if s.pingOutstandingAt == 0 && s.now-s.lastSent >= s.keepAliveSec {
		buf, err := (&packets.PingreqPacket{}).Encode(nil)
		if err == nil && s.write(buf) {
			s.lastSent = s.now
			s.pingOutstandingAt = s.now
		}
	}

	s.sweepQoS0()
	s.sweepInflight()
}

func (s *session) sweepQoS0() {
	if len(s.pendingQoS0) == 0 {
		return
	}
	for _, pkt := range s.pendingQoS0 {
		buf, err := pkt.Encode(nil)
		if err != nil {
			continue
		}
		if s.write(buf) {
			s.lastSent = s.now
		}
	}
	s.pendingQoS0 = s.pendingQoS0[:0]
}

func (s *session) sweepInflight() {
	s.table.forEachInOrder(func(rec *inflightRecord) {
		if s.now-rec.lastTouch <= s.keepAliveSec {
			return
		}
		s.retransmit(rec)
	})
}

// retransmit re-drives one in-flight record by its sub-state: SEND_*
// retries the same send; WAIT_PUBACK/WAIT_PUBREC re-emit the original
// PUBLISH with DUP=1; WAIT_PUBREL re-emits PUBREC; WAIT_PUBCOMP re-emits
// PUBREL. lastTouch updates unconditionally.
func (s *session) retransmit(rec *inflightRecord) {
	rec.lastTouch = s.now

	switch rec.state {
	case sendPublish:
		pkt := &packets.PublishPacket{
			Topic: rec.topic, QoS: rec.qos, Retain: rec.retain,
			Payload: rec.payload, PacketID: rec.packetID,
		}
		buf, err := pkt.Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			if rec.qos == packets.QoS1 {
				rec.state = waitPuback
			} else {
				rec.state = waitPubrec
			}
		}

	case waitPuback, waitPubrec:
		pkt := &packets.PublishPacket{
			Topic: rec.topic, QoS: rec.qos, Retain: rec.retain,
			Payload: rec.payload, PacketID: rec.packetID, Dup: true,
		}
		buf, err := pkt.Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
		}

	case sendPuback:
		buf, err := (&packets.PubackPacket{PacketID: rec.packetID}).Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			s.table.remove(rec)
		}

	case sendPubrec:
		buf, err := (&packets.PubrecPacket{PacketID: rec.packetID}).Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			rec.state = waitPubrel
		}

	case waitPubrel:
		buf, err := (&packets.PubrecPacket{PacketID: rec.packetID}).Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
		}

	case sendPubrel:
		buf, err := (&packets.PubrelPacket{PacketID: rec.packetID}).Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			rec.state = waitPubcomp
		}

	case waitPubcomp:
		buf, err := (&packets.PubrelPacket{PacketID: rec.packetID}).Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
		}

	case sendPubcomp:
		buf, err := (&packets.PubcompPacket{PacketID: rec.packetID}).Encode(nil)
		if err != nil {
			return
		}
		if s.write(buf) {
			s.lastSent = s.now
			s.table.remove(rec)
		}
	}
}

func (s *session) fail(err error) {
	if s.dead {
		return
	}
	s.dead = true
	s.log.WithError(err).Warn("mqtt session terminated")
	if s.onLinkDead != nil {
		s.onLinkDead(err)
	}
}
