package session

import "github.com/NyanHelsing/MeshCore/protocol"

// SendMessage composes, seals, and hands off a text message to contact,
// arming the forwarding engine's pending-ACK bookkeeping (spec.md §4.5
// Text messaging — sender).
func (s *Session) SendMessage(contact *Contact, attempt byte, text string) (SendStatus, [protocol.AckHashSize]byte, error) {
	var zero [protocol.AckHashSize]byte
	if len(text) > s.Config.MaxTextLen {
		return SendFailed, zero, ErrUserFailed
	}

	ts := s.RTC.Get()
	flags := attempt & 0x3
	plaintext := protocol.EncodeTextPlaintext(ts, flags, text)

	expectedAck := protocol.AckHash(ts, flags, []byte(text), s.Identity.Public)

	payload, err := protocol.SealDatagram(contact.SharedSecret, s.Identity.Public, plaintext)
	if err != nil {
		return SendFailed, zero, ErrUserFailed
	}

	pkt := &protocol.Packet{PayloadType: protocol.PayloadTxtMsg, Payload: payload}
	s.armPendingSend(expectedAck, contact, attempt)

	if contact.HasOutPath() {
		pkt.RouteType = protocol.RouteDirect
		if err := s.Sender.Send(pkt, contact.OutPath, expectedAck, 0); err != nil {
			s.cancelPendingSend(expectedAck)
			return SendFailed, zero, ErrUserFailed
		}
		return SentDirect, expectedAck, nil
	}

	pkt.RouteType = protocol.RouteFlood
	if err := s.Sender.Send(pkt, nil, expectedAck, 0); err != nil {
		s.cancelPendingSend(expectedAck)
		return SendFailed, zero, ErrUserFailed
	}
	return SentFlood, expectedAck, nil
}

func (s *Session) armPendingSend(ack [protocol.AckHashSize]byte, contact *Contact, attempt byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSend[ack] = pendingSend{contact: contact, attempt: attempt}
}

func (s *Session) cancelPendingSend(ack [protocol.AckHashSize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingSend, ack)
}

// HandleSendTimeout clears the pending send armed for ack and invokes
// OnSendTimeout. The forwarding engine does not call it: an armed send
// whose retry goes unacknowledged is released without notice, and only
// a direct call to HandleSendTimeout fires OnSendTimeout. Caller policy
// (not this package) decides whether to retry with an incremented
// attempt.
func (s *Session) HandleSendTimeout(ack [protocol.AckHashSize]byte) {
	s.mu.Lock()
	pending, ok := s.pendingSend[ack]
	if ok {
		delete(s.pendingSend, ack)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if s.Callbacks.OnSendTimeout != nil {
		s.Callbacks.OnSendTimeout(pending.contact)
	}
}

// HandleAck processes a received ACK payload (the bare 4-byte truncated
// hash, sent unencrypted per spec.md §4.1). A miss is NotFound and is
// silently ignored, matching spec.md §7's propagation policy.
func (s *Session) HandleAck(payload []byte) error {
	if len(payload) < protocol.AckHashSize {
		return protocol.ErrMalformed
	}
	var ack [protocol.AckHashSize]byte
	copy(ack[:], payload[:protocol.AckHashSize])
	s.resolveAck(ack)
	return nil
}

// resolveAck clears the session-layer bookkeeping for a matched ACK and
// notifies the UI. It does not touch the forwarding engine's own
// pending-ACK/retransmit table; the engine matches that independently
// using the same hash after HandleAck returns.
func (s *Session) resolveAck(ack [protocol.AckHashSize]byte) {
	s.mu.Lock()
	pending, ok := s.pendingSend[ack]
	if ok {
		delete(s.pendingSend, ack)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if s.Callbacks.OnMessageDelivered != nil {
		s.Callbacks.OnMessageDelivered(pending.contact)
	}
}

// HandleTextMsg implements the receiver side of text messaging
// (spec.md §4.5 Text messaging — receiver). payload is the packet's raw
// TXT_MSG bytes; isFlood and traversedPath describe how the packet
// arrived (traversedPath is the hop list the packet accumulated in
// transit, needed only when isFlood, to build a path-return reply).
func (s *Session) HandleTextMsg(payload []byte, isFlood bool, traversedPath []byte) error {
	candidates, _, ok := s.candidateContacts(payload)
	if !ok {
		return protocol.ErrMalformed
	}
	contact, plaintext, ok := openAgainstContacts(candidates, payload)
	if !ok {
		return protocol.ErrAuthFail
	}

	ts, flags, text, err := protocol.DecodeTextPlaintext(plaintext)
	if err != nil {
		return err
	}
	if flags>>2 != 0 {
		return ErrUnsupported
	}
	if ts <= contact.LastMsgTimestamp {
		return ErrReplay
	}
	contact.LastMsgTimestamp = ts

	if s.Callbacks.OnMessageRecv != nil {
		s.Callbacks.OnMessageRecv(contact, isFlood, ts, text)
	}

	ackHash := protocol.AckHash(ts, flags, []byte(text), contact.PublicKey)

	if isFlood {
		return s.sendPathReturn(contact, traversedPath, protocol.PathExtraAck, ackHash[:])
	}
	return s.sendBareAck(contact, ackHash)
}

func (s *Session) sendBareAck(contact *Contact, ackHash [protocol.AckHashSize]byte) error {
	pkt := &protocol.Packet{PayloadType: protocol.PayloadAck, Payload: ackHash[:]}
	if contact.HasOutPath() {
		pkt.RouteType = protocol.RouteDirect
		return s.Sender.Send(pkt, contact.OutPath, [protocol.AckHashSize]byte{}, 0)
	}
	pkt.RouteType = protocol.RouteFlood
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}

// sendPathReturn builds and floods a path-return packet carrying the
// reversed traversed path plus an optional piggybacked payload (spec.md
// §4.5 Path learning). The new packet's own Path field starts empty —
// it accumulates its own flood journey independently of the traversed
// hop list riding inside its ciphertext.
func (s *Session) sendPathReturn(contact *Contact, traversedPath []byte, extraType byte, extra []byte) error {
	ts := s.RTC.Get()
	plaintext := protocol.EncodePathReturnPlaintext(ts, traversedPath, extraType, extra)
	payload, err := protocol.SealDatagram(contact.SharedSecret, s.Identity.Public, plaintext)
	if err != nil {
		return err
	}
	pkt := &protocol.Packet{
		RouteType:   protocol.RouteFlood,
		PayloadType: protocol.PayloadPath,
		Payload:     payload,
	}
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}

// HandlePathReturn implements path learning's receive side (spec.md
// §4.5 Path learning, §8 property 7): decrypt against candidate
// contacts, overwrite out_path unconditionally with the reversed
// traversed path, and process any piggybacked payload as if it had
// arrived standalone.
func (s *Session) HandlePathReturn(payload []byte) error {
	candidates, _, ok := s.candidateContacts(payload)
	if !ok {
		return protocol.ErrMalformed
	}
	contact, plaintext, ok := openAgainstContacts(candidates, payload)
	if !ok {
		return protocol.ErrAuthFail
	}

	_, traversedPath, extraType, extra, err := protocol.DecodePathReturnPlaintext(plaintext)
	if err != nil {
		return err
	}

	contact.OutPath = protocol.ReversePath(traversedPath)
	if s.Callbacks.OnContactPathUpdated != nil {
		s.Callbacks.OnContactPathUpdated(contact)
	}

	switch extraType {
	case protocol.PathExtraNone:
		return nil
	case protocol.PathExtraAck:
		return s.HandleAck(extra)
	default:
		return ErrUnsupported
	}
}

// HandleGroupText implements group channel receive (spec.md §4.5 Group
// channels): try every channel whose hash-prefix matches, open on each,
// notify on the first success. No ACK is ever produced.
func (s *Session) HandleGroupText(payload []byte, hopsIfFlood int) error {
	prefix, ok := protocol.DatagramHashPrefix(payload)
	if !ok {
		return protocol.ErrMalformed
	}
	for _, ch := range s.Channels.ByHashPrefix(prefix) {
		plaintext, err := protocol.OpenDatagram(ch.Key, payload)
		if err != nil {
			continue
		}
		ts, _, text, err := protocol.DecodeTextPlaintext(plaintext)
		if err != nil {
			continue
		}
		if s.Callbacks.OnChannelMessageRecv != nil {
			s.Callbacks.OnChannelMessageRecv(ch, hopsIfFlood, ts, text)
		}
		return nil
	}
	return protocol.ErrAuthFail
}

// SendGroupText seals and floods a text message under ch's channel key.
// Group frames carry no sender identity and produce no ACK (spec.md
// §4.5 Group channels), so the plaintext's flags byte is always 0.
func (s *Session) SendGroupText(ch *GroupChannel, text string) error {
	if len(text) > s.Config.MaxTextLen {
		return ErrUserFailed
	}
	ts := s.RTC.Get()
	plaintext := protocol.EncodeTextPlaintext(ts, 0, text)
	payload, err := protocol.SealDatagramWithIndex(ch.Key, ch.Hash[0], plaintext)
	if err != nil {
		return ErrUserFailed
	}
	pkt := &protocol.Packet{RouteType: protocol.RouteFlood, PayloadType: protocol.PayloadGroupTxt, Payload: payload}
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}
