// Package meshtables holds the two small bounded tables the forwarding
// engine consults on every inbound packet: the recently-seen
// packet-hash set (duplicate suppression) and the pending-ACK table
// (cancel retransmission on delivery proof). Both use FIFO eviction by
// insertion order, per spec.md §9's explicit redesign guidance — the
// original firmware leaves retention implicit.
package meshtables

import "github.com/NyanHelsing/MeshCore/protocol"

// SeenSet is a bounded exact set of packet hashes, acting as the
// duplicate-suppression table from spec.md §3/§4.3.
type SeenSet struct {
	capacity int
	seen     map[[protocol.AckHashSize]byte]struct{}
	order    []([protocol.AckHashSize]byte)
}

// NewSeenSet returns an empty set bounded to capacity entries.
func NewSeenSet(capacity int) *SeenSet {
	return &SeenSet{
		capacity: capacity,
		seen:     make(map[[protocol.AckHashSize]byte]struct{}, capacity),
		order:    make([]([protocol.AckHashSize]byte), 0, capacity),
	}
}

// Contains reports whether hash is already in the set.
func (s *SeenSet) Contains(hash [protocol.AckHashSize]byte) bool {
	_, ok := s.seen[hash]
	return ok
}

// Insert records hash as seen, evicting the oldest entry by insertion
// order if the set is at capacity. Insert is a no-op if hash is already
// present (it must not move to the back, or replay of old traffic could
// keep itself alive indefinitely).
func (s *SeenSet) Insert(hash [protocol.AckHashSize]byte) {
	if s.Contains(hash) {
		return
	}
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
	s.seen[hash] = struct{}{}
	s.order = append(s.order, hash)
}

// Len returns the number of entries currently retained.
func (s *SeenSet) Len() int {
	return len(s.order)
}
