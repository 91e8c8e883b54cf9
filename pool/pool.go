// Package pool implements a fixed-capacity packet-record allocator: no
// dynamic growth, ever. Allocation failure returns ErrFull and is also
// counted as a Full event.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/NyanHelsing/MeshCore/protocol"
)

// ErrFull is returned by Allocate when every slot is already in use.
var ErrFull = errors.New("pool: at capacity")

// SlotID indexes a Pool's backing array.
type SlotID int

const noSlot SlotID = -1

type slot struct {
	inUse   bool
	pkt     *protocol.Packet
	onQueue bool
}

// Pool is a fixed-capacity object pool for *protocol.Packet records.
// free+outbound+in-flight always equals capacity (spec.md §3's pool
// invariant): every slot is exactly one of unused, allocated-but-not-
// queued, or queued for send.
type Pool struct {
	mu    sync.Mutex
	slots []slot
	free  []SlotID

	fullEvents atomic.Uint64
}

// New returns a pool with the given fixed capacity.
func New(capacity int) *Pool {
	p := &Pool{
		slots: make([]slot, capacity),
		free:  make([]SlotID, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free[i] = SlotID(capacity - 1 - i)
	}
	return p
}

// Allocate reserves a slot for pkt, returning ErrFull if none are free.
func (p *Pool) Allocate(pkt *protocol.Packet) (SlotID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		p.fullEvents.Add(1)
		return noSlot, ErrFull
	}
	id := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.slots[id] = slot{inUse: true, pkt: pkt}
	return id, nil
}

// Release returns a slot to the free list.
func (p *Pool) Release(id SlotID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || int(id) >= len(p.slots) || !p.slots[id].inUse {
		return
	}
	p.slots[id] = slot{}
	p.free = append(p.free, id)
}

// Get returns the packet record held in a slot, or nil if the slot is
// not currently allocated.
func (p *Pool) Get(id SlotID) *protocol.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || int(id) >= len(p.slots) || !p.slots[id].inUse {
		return nil
	}
	return p.slots[id].pkt
}

// EnqueueOutbound marks a slot due for transmission at the given
// millisecond deadline.
func (p *Pool) EnqueueOutbound(id SlotID, when int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || int(id) >= len(p.slots) || !p.slots[id].inUse {
		return
	}
	p.slots[id].onQueue = true
	p.slots[id].pkt.ScheduledAt = when
}

// PopDue returns the first allocated, queued slot whose ScheduledAt has
// passed, or noSlot if none are due yet. It does not release the slot;
// the forwarding engine does that once the send is handed to the radio.
func (p *Pool) PopDue(now int64) SlotID {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.slots {
		s := &p.slots[id]
		if s.inUse && s.onQueue && s.pkt.ScheduledAt <= now {
			s.onQueue = false
			return SlotID(id)
		}
	}
	return noSlot
}

// Counts returns (free, outbound, inFlight) for telemetry; their sum
// always equals the pool's fixed capacity.
func (p *Pool) Counts() (free, outbound, inFlight int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		switch {
		case !s.inUse:
			free++
		case s.onQueue:
			outbound++
		default:
			inFlight++
		}
	}
	return
}

// Capacity returns the pool's fixed slot count.
func (p *Pool) Capacity() int {
	return len(p.slots)
}

// FullEvents returns the running count of allocation failures, fed to
// RepeaterStats.NFullEvents.
func (p *Pool) FullEvents() uint64 {
	return p.fullEvents.Load()
}
