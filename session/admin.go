package session

import "github.com/NyanHelsing/MeshCore/protocol"

// CommandHandler is the repeater-admin capability a Session dispatches
// authenticated REQ and CLI-text traffic to, implemented by the
// repeater package. Keeping this as an interface (rather than importing
// repeater directly) avoids a session<->repeater import cycle, per
// spec.md §9's capability-record redesign note.
type CommandHandler interface {
	// HandleBinary runs a binary REQ command (command byte + params) and
	// returns the result bytes to be wrapped as timestamp(4)||result.
	HandleBinary(command byte, params []byte) []byte
	// HandleText runs a textual CLI command and returns its reply text.
	HandleText(senderTimestamp uint32, text string) string
}

// HandleAnonReq implements the repeater's anonymous login (spec.md §4.5
// Repeater admin session). The sender is by definition not yet a known
// client, so unlike every other encrypted payload kind here it cannot
// be resolved via the hash-prefix candidate index — ANON_REQ therefore
// carries the sender's public key inline: pubkey(32) || timestamp(4) ||
// password, all in the clear (spec.md §4.5 describes the timestamp and
// password fields but is silent on identity correlation for a peer with
// no prior contact entry; see DESIGN.md). isFlood controls whether the
// "OK" reply goes back as a path-return or a direct datagram.
func (s *Session) HandleAnonReq(payload []byte, isFlood bool, traversedPath []byte) error {
	if len(payload) < protocol.PubKeySize+4 {
		return protocol.ErrMalformed
	}
	var senderPub [protocol.PubKeySize]byte
	copy(senderPub[:], payload[:protocol.PubKeySize])
	offset := protocol.PubKeySize
	ts := uint32(payload[offset]) | uint32(payload[offset+1])<<8 | uint32(payload[offset+2])<<16 | uint32(payload[offset+3])<<24
	password := payload[offset+4:]

	if !protocol.ConstantTimeCompare(password, []byte(s.Config.AdminPassword)) {
		return protocol.ErrAuthFail
	}

	secret, err := protocol.SharedSecret(s.Identity, senderPub)
	if err != nil {
		return err
	}
	client, err := s.Clients.PutClient(senderPub, secret)
	if err != nil {
		return err
	}
	if ts <= client.LastTimestamp {
		return ErrReplay
	}
	client.LastTimestamp = ts
	client.LoggedIn = true

	return s.replyToClient(client, isFlood, traversedPath, []byte("OK"))
}

// HandleReq implements the authenticated binary command path (spec.md
// §4.5 Repeater admin session / §4.6): plaintext
// timestamp(4) || command(1) || params, dispatched to s.Commands.
func (s *Session) HandleReq(payload []byte, isFlood bool, traversedPath []byte) error {
	candidates := s.Clients.ByHashPrefix(protocol.HashPrefix, mustPrefix(payload))
	client, plaintext, ok := openAgainstClients(candidates, payload)
	if !ok {
		return protocol.ErrAuthFail
	}
	if len(plaintext) < 5 {
		return protocol.ErrMalformed
	}
	ts := uint32(plaintext[0]) | uint32(plaintext[1])<<8 | uint32(plaintext[2])<<16 | uint32(plaintext[3])<<24
	if ts <= client.LastTimestamp {
		return ErrReplay
	}
	client.LastTimestamp = ts

	if s.Commands == nil {
		return ErrUnsupported
	}
	result := s.Commands.HandleBinary(plaintext[4], plaintext[5:])

	reply := make([]byte, 4, 4+len(result))
	reply[0] = byte(ts)
	reply[1] = byte(ts >> 8)
	reply[2] = byte(ts >> 16)
	reply[3] = byte(ts >> 24)
	reply = append(reply, result...)
	return s.replyToClient(client, isFlood, traversedPath, reply)
}

// HandleCLIText implements the CLI-text admin path (spec.md §4.5
// Repeater admin session): a TXT_MSG from an already-logged-in client is
// handed to the textual command parser instead of session chat, with
// its reply re-wrapped as a TXT_MSG delayed by CLIReplyDelayMillis so
// the ACK and reply don't collide on air.
func (s *Session) HandleCLIText(payload []byte, isFlood bool, traversedPath []byte) error {
	candidates := s.Clients.ByHashPrefix(protocol.HashPrefix, mustPrefix(payload))
	client, plaintext, ok := openAgainstClients(candidates, payload)
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
	if ts <= client.LastTimestamp {
		return ErrReplay
	}
	client.LastTimestamp = ts

	ackHash := protocol.AckHash(ts, flags, []byte(text), client.PublicKey)
	if isFlood {
		if err := s.sendClientPathReturn(client, traversedPath, protocol.PathExtraAck, ackHash[:]); err != nil {
			return err
		}
	} else if err := s.sendClientAck(client, ackHash); err != nil {
		return err
	}

	if s.Commands == nil {
		return ErrUnsupported
	}
	reply := s.Commands.HandleText(ts, text)

	replyTs := s.RTC.Get()
	if replyTs == ts {
		replyTs++ // avoid a degenerate reply/request timestamp collision
	}
	plaintextReply := protocol.EncodeTextPlaintext(replyTs, 0, reply)
	sealed, err := protocol.SealDatagram(client.SharedSecret, s.Identity.Public, plaintextReply)
	if err != nil {
		return err
	}
	pkt := &protocol.Packet{PayloadType: protocol.PayloadTxtMsg, Payload: sealed}
	if client.HasOutPath() {
		pkt.RouteType = protocol.RouteDirect
		return s.Sender.Send(pkt, client.OutPath, [protocol.AckHashSize]byte{}, s.Config.CLIReplyDelayMillis)
	}
	pkt.RouteType = protocol.RouteFlood
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, s.Config.CLIReplyDelayMillis)
}

func (s *Session) replyToClient(client *Client, isFlood bool, traversedPath []byte, plaintext []byte) error {
	if isFlood {
		return s.sendClientPathReturn(client, traversedPath, protocol.PathExtraNone, nil)
	}
	sealed, err := protocol.SealDatagram(client.SharedSecret, s.Identity.Public, plaintext)
	if err != nil {
		return err
	}
	pkt := &protocol.Packet{PayloadType: protocol.PayloadResponse, Payload: sealed}
	if client.HasOutPath() {
		pkt.RouteType = protocol.RouteDirect
		return s.Sender.Send(pkt, client.OutPath, [protocol.AckHashSize]byte{}, 0)
	}
	pkt.RouteType = protocol.RouteFlood
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}

func (s *Session) sendClientAck(client *Client, ackHash [protocol.AckHashSize]byte) error {
	pkt := &protocol.Packet{PayloadType: protocol.PayloadAck, Payload: ackHash[:]}
	if client.HasOutPath() {
		pkt.RouteType = protocol.RouteDirect
		return s.Sender.Send(pkt, client.OutPath, [protocol.AckHashSize]byte{}, 0)
	}
	pkt.RouteType = protocol.RouteFlood
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}

func (s *Session) sendClientPathReturn(client *Client, traversedPath []byte, extraType byte, extra []byte) error {
	ts := s.RTC.Get()
	plaintext := protocol.EncodePathReturnPlaintext(ts, traversedPath, extraType, extra)
	payload, err := protocol.SealDatagram(client.SharedSecret, s.Identity.Public, plaintext)
	if err != nil {
		return err
	}
	pkt := &protocol.Packet{RouteType: protocol.RouteFlood, PayloadType: protocol.PayloadPath, Payload: payload}
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}

// IsClientTraffic reports whether payload decrypts against a known admin
// client's shared secret, so the forwarding engine can route an inbound
// TXT_MSG to the CLI command path instead of ordinary contact chat (spec.md
// §4.5 Repeater admin session draws this same distinction in onPeerDataRecv
// before deciding how to interpret a TXT_MSG frame).
func (s *Session) IsClientTraffic(payload []byte) bool {
	candidates := s.Clients.ByHashPrefix(protocol.HashPrefix, mustPrefix(payload))
	_, _, ok := openAgainstClients(candidates, payload)
	return ok
}

func mustPrefix(payload []byte) byte {
	prefix, _ := protocol.DatagramHashPrefix(payload)
	return prefix
}

func openAgainstClients(candidates []*Client, payload []byte) (*Client, []byte, bool) {
	for _, c := range candidates {
		plaintext, err := protocol.OpenDatagram(c.SharedSecret, payload)
		if err == nil {
			return c, plaintext, true
		}
	}
	return nil, nil, false
}
