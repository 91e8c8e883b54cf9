package session

import "sort"

// Contact is a known peer: identity, friendly name, kind tag, last
// advert timestamp, cached shared secret, and a known out-path learned
// from path-return packets (nil means unknown; the sender must flood).
type Contact struct {
	PublicKey           [32]byte
	Name                string
	Kind                byte
	LastAdvertTimestamp uint32
	LastMsgTimestamp    uint32 // separate replay checkpoint for TXT_MSG traffic
	SharedSecret        [32]byte
	OutPath             []byte // nil == unknown, must flood
}

// HasOutPath reports whether a direct route to this contact is known.
func (c *Contact) HasOutPath() bool { return c.OutPath != nil }

// Contacts is the bounded contact table (spec.md §3, MAX_CONTACTS).
// Overflow drops new entries; it never grows past its fixed capacity.
type Contacts struct {
	capacity int
	byKey    map[[32]byte]*Contact
	order    []*Contact
}

// NewContacts returns an empty table bounded to capacity entries.
func NewContacts(capacity int) *Contacts {
	return &Contacts{
		capacity: capacity,
		byKey:    make(map[[32]byte]*Contact, capacity),
	}
}

// Lookup returns the contact matching pub, if any.
func (c *Contacts) Lookup(pub [32]byte) (*Contact, bool) {
	ct, ok := c.byKey[pub]
	return ct, ok
}

// Add inserts a fully-formed contact (e.g. from a UI-driven manual add,
// spec.md §4.5's supplemented AddContact), caching nothing extra — the
// caller is responsible for computing SharedSecret before calling Add,
// exactly as the advert-discovery path does.
func (c *Contacts) Add(contact Contact) error {
	if _, exists := c.byKey[contact.PublicKey]; exists {
		return nil
	}
	if len(c.order) >= c.capacity {
		return ErrFull
	}
	stored := contact
	c.byKey[contact.PublicKey] = &stored
	c.order = append(c.order, &stored)
	return nil
}

// Len returns the number of contacts currently stored.
func (c *Contacts) Len() int { return len(c.order) }

// ByNamePrefix returns the first contact whose name starts with prefix,
// mirroring the original's searchContactsByPrefix.
func (c *Contacts) ByNamePrefix(prefix string) (*Contact, bool) {
	for _, ct := range c.order {
		if len(ct.Name) >= len(prefix) && ct.Name[:len(prefix)] == prefix {
			return ct, true
		}
	}
	return nil, false
}

// ByHashPrefix returns every contact whose public-key hash prefix byte
// matches, the candidate-peer set the forwarding engine hands to the
// session layer for AEAD decrypt attempts (spec.md §4.3 Dispatch).
func (c *Contacts) ByHashPrefix(hashPrefix func([32]byte) byte, prefix byte) []*Contact {
	var out []*Contact
	for _, ct := range c.order {
		if hashPrefix(ct.PublicKey) == prefix {
			out = append(out, ct)
		}
	}
	return out
}

// Recent returns up to n contacts ordered by most-recent advert first.
// n == 0 returns all contacts. This replaces the original's qsort over
// a file-scope global comparator (spec.md §9) with a plain sort.Slice
// over a borrowed index slice and no package-level mutable state.
func (c *Contacts) Recent(n int) []Contact {
	idx := make([]int, len(c.order))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return c.order[idx[i]].LastAdvertTimestamp > c.order[idx[j]].LastAdvertTimestamp
	})

	if n <= 0 || n > len(idx) {
		n = len(idx)
	}
	out := make([]Contact, n)
	for i := 0; i < n; i++ {
		out[i] = *c.order[idx[i]]
	}
	return out
}
