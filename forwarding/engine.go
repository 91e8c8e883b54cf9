// Package forwarding drives the radio: decoding inbound frames,
// deduplicating and relaying flood/direct packets, dispatching payloads
// to the session layer, and pacing outbound transmission against an
// airtime budget (spec.md §4.3). It owns the packet pool and the
// RepeaterStats-backing counters; the session layer never touches the
// radio directly (spec.md §5's shared-resource policy).
package forwarding

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/meshtables"
	"github.com/NyanHelsing/MeshCore/pool"
	"github.com/NyanHelsing/MeshCore/protocol"
	"github.com/NyanHelsing/MeshCore/radio"
	"github.com/NyanHelsing/MeshCore/session"
)

// floodBaseDelayMillis and the per-hop jitter factor shape flood
// retransmission spacing so equally-positioned relays don't collide on
// air; values are a deliberate, tunable design choice, not pinned by any
// retrieved reference.
const (
	floodBaseDelayMillis = 100
	floodJitterPerHop    = 40
	floodTimeoutMillis   = 8000
	directTimeoutBase    = 4000
	directTimeoutPerHop  = 600
)

// Counters holds the atomic fields RepeaterStats is built from
// (SPEC_FULL.md §3's counters block), owned and incremented exclusively
// by Engine.
type Counters struct {
	PacketsRecv        atomic.Uint64
	PacketsSent        atomic.Uint64
	SentFlood          atomic.Uint64
	SentDirect         atomic.Uint64
	RecvFlood          atomic.Uint64
	RecvDirect         atomic.Uint64
	FullEvents         atomic.Uint64
	TotalAirTimeMillis atomic.Uint64
}

// Engine is the forwarding/dispatch loop. It is driven by repeated calls
// to Tick from a single goroutine (spec.md §5's cooperative model); the
// radio's inbound queue (radio.Stub's mutex-guarded ring buffer, filled
// by a synchronous handoff, or a real driver's ISR-fed queue) is the
// sole suspension point.
type Engine struct {
	radio    radio.Radio
	pool     *pool.Pool
	seen     *meshtables.SeenSet
	pending  *meshtables.PendingACKs
	session  *session.Session
	cfg      config.Config
	relayID  byte
	Counters Counters

	mu            sync.Mutex
	cumulativeAir uint64
	startWallMs   int64
	nowMillis     func() int64
}

// New builds an Engine bound to r, with relayID identifying this node's
// single-byte slot in accumulated flood paths. nowMillis supplies wall
// clock milliseconds (injectable for tests).
func New(r radio.Radio, cfg config.Config, relayID byte, sess *session.Session, nowMillis func() int64) *Engine {
	e := &Engine{
		radio:       r,
		pool:        pool.New(cfg.PoolCapacity),
		seen:        meshtables.NewSeenSet(cfg.PoolCapacity * 4),
		pending:     meshtables.NewPendingACKs(cfg.PoolCapacity),
		session:     sess,
		cfg:         cfg,
		relayID:     relayID,
		nowMillis:   nowMillis,
		startWallMs: nowMillis(),
	}
	sess.Sender = e
	return e
}

// Send implements session.Sender: it enqueues pkt for transmission and,
// if expectedAck is non-zero, arms the pending-ACK table so a matching
// ACK cancels retransmission.
func (e *Engine) Send(pkt *protocol.Packet, path []byte, expectedAck [protocol.AckHashSize]byte, delayMillis int64) error {
	if path != nil {
		pkt.RouteType = protocol.RouteDirect
		pkt.Path = append([]byte(nil), path...)
	} else {
		pkt.RouteType = protocol.RouteFlood
		pkt.Path = nil
	}

	slot, err := e.pool.Allocate(pkt)
	if err != nil {
		e.Counters.FullEvents.Add(1)
		return err
	}

	var zero [protocol.AckHashSize]byte
	if expectedAck != zero {
		e.pending.Arm(expectedAck, slot)
	}

	now := e.nowMillis()
	e.pool.EnqueueOutbound(slot, now+delayMillis+e.airtimePacing())
	return nil
}

// airtimePacing returns the extra delay (ms) the airtime budget demands
// right now: 0 while under budget, growing as cumulative transmit time
// exceeds cfg.AirtimeFactor times wall-clock elapsed (spec.md §4.3
// Airtime budget).
func (e *Engine) airtimePacing() int64 {
	if e.cfg.AirtimeFactor <= 0 {
		return 0
	}
	e.mu.Lock()
	elapsed := e.nowMillis() - e.startWallMs
	cumulative := e.cumulativeAir
	e.mu.Unlock()
	if elapsed <= 0 {
		return 0
	}
	budget := float64(elapsed) * e.cfg.AirtimeFactor
	if float64(cumulative) <= budget {
		return 0
	}
	return int64((float64(cumulative) - budget) / e.cfg.AirtimeFactor)
}

// Tick drives one cooperative loop iteration: poll the radio for one
// inbound frame, process it, then pop and transmit any due outbound
// packet. It never blocks.
func (e *Engine) Tick() {
	e.pollInbound()
	e.popDueOutbound()
}

func (e *Engine) pollInbound() {
	buf := make([]byte, protocol.MaxPacketSize)
	n, err := e.radio.Recv(buf)
	if err != nil || n == 0 {
		return
	}
	e.Counters.PacketsRecv.Add(1)
	pkt, err := protocol.Decode(buf[:n])
	if err != nil {
		log.Printf("[forwarding] decode error: %v", err)
		return
	}
	e.handleInbound(pkt)
}

func (e *Engine) handleInbound(pkt *protocol.Packet) {
	hash := pkt.Hash()
	if e.seen.Contains(hash) {
		return
	}
	e.seen.Insert(hash)

	switch pkt.RouteType {
	case protocol.RouteFlood:
		e.Counters.RecvFlood.Add(1)
		traversed := append([]byte(nil), pkt.Path...)
		e.relayFlood(pkt)
		e.dispatch(pkt, true, traversed)

	case protocol.RouteDirect, protocol.RouteResponse:
		// RouteResponse is accepted but given no distinct forwarding
		// semantics from RouteDirect; see DESIGN.md.
		e.Counters.RecvDirect.Add(1)
		if len(pkt.Path) == 0 {
			e.dispatch(pkt, false, nil)
			return
		}
		if pkt.Path[0] != e.relayID {
			return // not our hop, drop
		}
		pkt.Path = pkt.Path[1:]
		if len(pkt.Path) == 0 {
			e.dispatch(pkt, false, nil)
			return
		}
		e.relayDirect(pkt)

	default:
		log.Printf("[forwarding] dropping packet with reserved route type")
	}
}

// relayFlood appends our relay-id to the path and schedules a relay
// retransmission, unless forwarding is disallowed or the path is full.
func (e *Engine) relayFlood(pkt *protocol.Packet) {
	if e.session.Callbacks.AllowPacketForward != nil && !e.session.Callbacks.AllowPacketForward(pkt) {
		return
	}
	if len(pkt.Path) >= protocol.MaxPath {
		return
	}
	relayPkt := &protocol.Packet{
		RouteType:       pkt.RouteType,
		PayloadType:     pkt.PayloadType,
		Flags:           pkt.Flags,
		TransportCode:   pkt.TransportCode,
		Path:            append(append([]byte(nil), pkt.Path...), e.relayID),
		Payload:         pkt.Payload,
		DoNotRetransmit: true, // a relay copy is sent once, never retried
	}
	slot, err := e.pool.Allocate(relayPkt)
	if err != nil {
		e.Counters.FullEvents.Add(1)
		return
	}
	delay := int64(floodBaseDelayMillis + floodJitterPerHop*len(relayPkt.Path))
	e.pool.EnqueueOutbound(slot, e.nowMillis()+delay+e.airtimePacing())
}

func (e *Engine) relayDirect(pkt *protocol.Packet) {
	if e.session.Callbacks.AllowPacketForward != nil && !e.session.Callbacks.AllowPacketForward(pkt) {
		return
	}
	relayPkt := &protocol.Packet{
		RouteType:       pkt.RouteType,
		PayloadType:     pkt.PayloadType,
		Flags:           pkt.Flags,
		TransportCode:   pkt.TransportCode,
		Path:            pkt.Path,
		Payload:         pkt.Payload,
		DoNotRetransmit: true,
	}
	slot, err := e.pool.Allocate(relayPkt)
	if err != nil {
		e.Counters.FullEvents.Add(1)
		return
	}
	e.pool.EnqueueOutbound(slot, e.nowMillis()+e.airtimePacing())
}

// dispatch routes a locally-consumed packet to the appropriate session
// method (spec.md §4.3 Dispatch).
func (e *Engine) dispatch(pkt *protocol.Packet, isFlood bool, traversedPath []byte) {
	var err error
	switch pkt.PayloadType {
	case protocol.PayloadAdvert:
		err = e.session.HandleAdvert(pkt.Payload)
	case protocol.PayloadTxtMsg:
		// A TXT_MSG may come from an already-logged-in admin client
		// (CLI command) or an ordinary contact (chat); try the client
		// table first since it's the narrower, cheaper check.
		if e.session.IsClientTraffic(pkt.Payload) {
			err = e.session.HandleCLIText(pkt.Payload, isFlood, traversedPath)
		} else {
			err = e.session.HandleTextMsg(pkt.Payload, isFlood, traversedPath)
		}
	case protocol.PayloadAck:
		err = e.session.HandleAck(pkt.Payload)
		if err == nil {
			e.cancelPendingRetransmit(pkt.Payload)
		}
	case protocol.PayloadPath:
		err = e.session.HandlePathReturn(pkt.Payload)
	case protocol.PayloadGroupTxt:
		err = e.session.HandleGroupText(pkt.Payload, len(traversedPath))
	case protocol.PayloadAnonReq:
		err = e.session.HandleAnonReq(pkt.Payload, isFlood, traversedPath)
	case protocol.PayloadReq:
		err = e.session.HandleReq(pkt.Payload, isFlood, traversedPath)
	case protocol.PayloadResponse:
		// responses to our own REQ are not modeled by a dedicated
		// session callback in this build; they are dropped here.
	default:
		err = nil
	}
	if err != nil {
		log.Printf("[forwarding] dispatch payload=%d error: %v", pkt.PayloadType, err)
	}
}

func (e *Engine) cancelPendingRetransmit(ackPayload []byte) {
	if len(ackPayload) < protocol.AckHashSize {
		return
	}
	var ack [protocol.AckHashSize]byte
	copy(ack[:], ackPayload[:protocol.AckHashSize])
	slot, err := e.pending.Match(ack)
	if err != nil {
		return
	}
	if pkt := e.pool.Get(slot); pkt != nil {
		pkt.DoNotRetransmit = true
	}
}

func (e *Engine) popDueOutbound() {
	now := e.nowMillis()
	id := e.pool.PopDue(now)
	if id < 0 {
		return
	}
	pkt := e.pool.Get(id)
	if pkt == nil {
		return
	}
	data := protocol.Encode(pkt)
	airtime, err := e.radio.Send(data)
	if err != nil {
		log.Printf("[forwarding] radio send error: %v", err)
		e.pool.Release(id)
		return
	}
	e.Counters.PacketsSent.Add(1)
	if pkt.RouteType == protocol.RouteFlood {
		e.Counters.SentFlood.Add(1)
	} else {
		e.Counters.SentDirect.Add(1)
	}
	e.mu.Lock()
	e.cumulativeAir += uint64(airtime)
	e.mu.Unlock()
	e.Counters.TotalAirTimeMillis.Add(uint64(airtime))

	if pkt.DoNotRetransmit || pkt.Retransmitted {
		e.pool.Release(id)
		return
	}
	pkt.Retransmitted = true
	timeout := e.retransmitTimeout(pkt)
	e.pool.EnqueueOutbound(id, now+timeout)
}

// retransmitTimeout implements the retransmit schedule: one retry after
// flood_timeout or direct_timeout(path_len), then the packet is released
// for good (popDueOutbound checks pkt.Retransmitted on the second pass).
func (e *Engine) retransmitTimeout(pkt *protocol.Packet) int64 {
	if pkt.RouteType == protocol.RouteFlood {
		return floodTimeoutMillis
	}
	return directTimeoutBase + directTimeoutPerHop*int64(len(pkt.Path))
}

// Poll always returns 0: it does not look at the outbound queue and does
// not report the next scheduled wakeup deadline, so a host calling it
// gets no idle time and simply ticks at its own cadence.
func (e *Engine) Poll() time.Duration {
	return 0
}

// PoolCounts exposes the packet pool's free/outbound/in-flight counts
// for telemetry (spec.md §4.2).
func (e *Engine) PoolCounts() (free, outbound, inFlight int) {
	return e.pool.Counts()
}
