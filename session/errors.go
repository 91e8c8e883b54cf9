package session

import "errors"

// ErrFull is returned when a contact, client, or channel table is at
// capacity (spec.md §7's Full kind, scoped to session-layer tables; the
// identically-named pool.ErrFull covers the packet pool).
var ErrFull = errors.New("session: table at capacity")

// ErrReplay is returned when an inbound timestamp does not strictly
// exceed the stored one for its contact/client.
var ErrReplay = errors.New("session: replay detected")

// ErrUnsupported is returned for a known payload kind carrying an
// unhandled variant or flag combination.
var ErrUnsupported = errors.New("session: unsupported variant")

// ErrUserFailed is the caller-visible failure spec.md §7 surfaces as
// MSG_SEND_FAILED: text too long, or compose produced no packet.
var ErrUserFailed = errors.New("session: send failed")
