// Package session implements the mesh's connection-free session layer:
// contact discovery from advertisements, encrypted text messaging with
// ACK/timeout, path learning, group channels, and the repeater admin
// protocol (anon login, stats request, CLI commands). It holds no radio
// or scheduling state of its own — that belongs to the forwarding
// engine, reached only through the Sender capability record this
// package defines, so session never imports forwarding.
package session

import (
	"sync"

	"github.com/NyanHelsing/MeshCore/clock"
	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/protocol"
)

// SendStatus is the caller-visible outcome of SendMessage.
type SendStatus int

const (
	SendFailed SendStatus = iota
	SentFlood
	SentDirect
)

// Sender is the capability the forwarding engine exposes to the session
// layer, mirroring spec.md §9's "capability record with callbacks"
// redesign note for the source's virtual base-mesh methods. Send arms
// the engine's own retransmit/pending-ACK bookkeeping keyed by
// expectedAck; path == nil means flood. delayMillis mirrors spec.md
// §4.3's send_flood(pkt, delay)/send_direct(pkt, path, delay): the
// engine schedules the packet for now+delay+airtime_pacing(), not a raw
// deadline.
type Sender interface {
	Send(pkt *protocol.Packet, path []byte, expectedAck [protocol.AckHashSize]byte, delayMillis int64) error
}

// Callbacks mirrors the source's virtual on_* methods (on_discovered_contact,
// on_message_recv, ...) as a struct of optional function fields per
// spec.md §9. Any field left nil is simply not invoked.
type Callbacks struct {
	OnDiscoveredContact  func(contact *Contact, isNew bool)
	OnMessageRecv        func(contact *Contact, isFlood bool, timestamp uint32, text string)
	OnMessageDelivered   func(contact *Contact)
	OnSendTimeout        func(contact *Contact)
	OnChannelMessageRecv func(ch *GroupChannel, hopsIfFlood int, timestamp uint32, text string)
	OnContactPathUpdated func(contact *Contact)
	AllowPacketForward   func(pkt *protocol.Packet) bool
}

type pendingSend struct {
	contact *Contact
	attempt byte
}

// Session bundles a node's identity, bounded tables, and collaborators.
// It is mutated only from the forwarding engine's single dispatch
// goroutine, so it carries no internal locking beyond the mutex guarding
// the pendingSends map (Send/HandleAck can race against each other when
// the stub radio's background Listen goroutine is in play, per
// SPEC_FULL.md §3's counters note).
type Session struct {
	Identity protocol.Identity
	Contacts *Contacts
	Channels *Channels
	Clients  *Clients
	Config   config.Config
	RTC      clock.RTCClock
	Millis   clock.MillisecondClock
	Sender   Sender
	Commands CommandHandler // nil if this node has no repeater admin surface

	Callbacks Callbacks

	mu          sync.Mutex
	pendingSend map[[protocol.AckHashSize]byte]pendingSend
}

// New constructs a Session from its collaborators. cfg bounds the
// contact/client/channel table capacities.
func New(identity protocol.Identity, cfg config.Config, rtc clock.RTCClock, millis clock.MillisecondClock, sender Sender) *Session {
	return &Session{
		Identity:    identity,
		Contacts:    NewContacts(cfg.MaxContacts),
		Channels:    NewChannels(cfg.MaxGroupChannels),
		Clients:     NewClients(cfg.MaxClients),
		Config:      cfg,
		RTC:         rtc,
		Millis:      millis,
		Sender:      sender,
		pendingSend: make(map[[protocol.AckHashSize]byte]pendingSend),
	}
}

// candidateContacts narrows the contact table to those whose hash
// prefix matches an encrypted datagram's leading byte, the "hash-prefix
// index" spec.md §4.3 Dispatch describes.
func (s *Session) candidateContacts(payload []byte) ([]*Contact, []byte, bool) {
	prefix, ok := protocol.DatagramHashPrefix(payload)
	if !ok {
		return nil, nil, false
	}
	return s.Contacts.ByHashPrefix(protocol.HashPrefix, prefix), payload, true
}

// openAgainstContacts tries OpenDatagram against every candidate in turn,
// returning the first contact that authenticates.
func openAgainstContacts(candidates []*Contact, payload []byte) (*Contact, []byte, bool) {
	for _, c := range candidates {
		plaintext, err := protocol.OpenDatagram(c.SharedSecret, payload)
		if err == nil {
			return c, plaintext, true
		}
	}
	return nil, nil, false
}

// ComposeSelfAdvert builds a signed self-advertisement payload ready to
// be wrapped in a PayloadAdvert packet and sent as flood.
func (s *Session) ComposeSelfAdvert(appData protocol.AppData) []byte {
	data := protocol.EncodeAppData(appData)
	ts := s.RTC.Get()
	sig := protocol.SignAdvert(s.Identity, ts, data)
	var sigArr [protocol.SignatureSize]byte
	copy(sigArr[:], sig)
	return protocol.EncodeAdvert(protocol.Advert{
		PublicKey: s.Identity.Public,
		Timestamp: ts,
		Signature: sigArr,
		AppData:   data,
	})
}

// SendSelfAdvert composes and floods a self-advertisement.
func (s *Session) SendSelfAdvert(appData protocol.AppData) error {
	payload := s.ComposeSelfAdvert(appData)
	pkt := &protocol.Packet{RouteType: protocol.RouteFlood, PayloadType: protocol.PayloadAdvert, Payload: payload}
	return s.Sender.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0)
}

// HandleAdvert implements contact discovery (spec.md §4.5). payload is
// the packet's raw ADVERT bytes; DecodeAdvert both parses and verifies
// the signature, returning ErrAuthFail on a bad one.
func (s *Session) HandleAdvert(payload []byte) error {
	adv, err := protocol.DecodeAdvert(payload)
	if err != nil {
		return err
	}
	if adv.PublicKey == s.Identity.Public {
		return nil // our own advert looped back over flood
	}

	existing, found := s.Contacts.Lookup(adv.PublicKey)
	if found {
		if adv.Timestamp <= existing.LastAdvertTimestamp {
			return ErrReplay
		}
		appData, err := protocol.DecodeAppData(adv.AppData)
		if err == nil && appData.HasName {
			existing.Name = appData.Name
		}
		existing.LastAdvertTimestamp = adv.Timestamp
		if s.Callbacks.OnDiscoveredContact != nil {
			s.Callbacks.OnDiscoveredContact(existing, false)
		}
		return nil
	}

	secret, err := protocol.SharedSecret(s.Identity, adv.PublicKey)
	if err != nil {
		return err
	}
	appData, _ := protocol.DecodeAppData(adv.AppData)
	kind := byte(0)
	if len(adv.AppData) > 0 {
		// app-data has no dedicated kind field; appDataKind takes the
		// kind from the Feature1 byte when the advert carries one.
		kind = appDataKind(appData)
	}
	contact := Contact{
		PublicKey:           adv.PublicKey,
		Name:                appData.Name,
		Kind:                kind,
		LastAdvertTimestamp: adv.Timestamp,
		SharedSecret:        secret,
	}
	if err := s.Contacts.Add(contact); err != nil {
		return err
	}
	stored, _ := s.Contacts.Lookup(adv.PublicKey)
	if s.Callbacks.OnDiscoveredContact != nil {
		s.Callbacks.OnDiscoveredContact(stored, true)
	}
	return nil
}

// appDataKind returns the advert's Feature1 byte as the peer kind when
// present (the closest analogue the app-data sub-codec has to the
// source's ADV_TYPE_* tag), and AdvertTypeChat otherwise.
func appDataKind(a protocol.AppData) byte {
	if a.HasFeature1 {
		return a.Feature1
	}
	return protocol.AdvertTypeChat
}
