package meshtables

import (
	"errors"

	"github.com/NyanHelsing/MeshCore/pool"
	"github.com/NyanHelsing/MeshCore/protocol"
)

// ErrNotFound is returned by Match when an ACK's hash has no pending
// entry — spec.md §7's NotFound kind: the ACK is simply ignored.
var ErrNotFound = errors.New("meshtables: no pending entry for ack")

// PendingACKs maps an expected ACK hash to the pool slot holding the
// outbound packet awaiting it, so a matching ACK can cancel
// retransmission (spec.md §4.3 Retransmit, §4.5 sender ACK receive).
type PendingACKs struct {
	capacity int
	bySlot   map[[protocol.AckHashSize]byte]pool.SlotID
	order    []([protocol.AckHashSize]byte)
}

// NewPendingACKs returns an empty table bounded to capacity entries.
func NewPendingACKs(capacity int) *PendingACKs {
	return &PendingACKs{
		capacity: capacity,
		bySlot:   make(map[[protocol.AckHashSize]byte]pool.SlotID, capacity),
		order:    make([]([protocol.AckHashSize]byte), 0, capacity),
	}
}

// Arm registers expectedAck as awaiting delivery proof for the packet in
// slot. Evicts the oldest pending entry on overflow, matching SeenSet's
// FIFO policy.
func (p *PendingACKs) Arm(expectedAck [protocol.AckHashSize]byte, slot pool.SlotID) {
	if _, exists := p.bySlot[expectedAck]; exists {
		return
	}
	if len(p.order) >= p.capacity {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.bySlot, oldest)
	}
	p.bySlot[expectedAck] = slot
	p.order = append(p.order, expectedAck)
}

// Match looks up the slot awaiting ackHash and removes the entry
// (an ACK cancels retransmission exactly once; duplicates are caught by
// SeenSet upstream). Returns ErrNotFound if nothing is pending.
func (p *PendingACKs) Match(ackHash [protocol.AckHashSize]byte) (pool.SlotID, error) {
	slot, ok := p.bySlot[ackHash]
	if !ok {
		return 0, ErrNotFound
	}
	delete(p.bySlot, ackHash)
	for i, h := range p.order {
		if h == ackHash {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return slot, nil
}

// Cancel removes a pending entry without treating it as a match (user
// cancel, spec.md §5).
func (p *PendingACKs) Cancel(expectedAck [protocol.AckHashSize]byte) {
	if _, ok := p.bySlot[expectedAck]; !ok {
		return
	}
	delete(p.bySlot, expectedAck)
	for i, h := range p.order {
		if h == expectedAck {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries currently pending.
func (p *PendingACKs) Len() int {
	return len(p.order)
}
