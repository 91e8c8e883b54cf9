// Package clock implements the timer collaborators spec.md §6 specifies
// as external: a monotonic millisecond clock, a settable advisory RTC,
// and a crypto-grade RNG for identity generation.
package clock

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"
)

// MillisecondClock is a monotonic millisecond counter that never goes
// backward.
type MillisecondClock interface {
	Millis() int64
}

// RTCClock is a settable wall-clock seconds counter. It is advisory —
// spec.md §1 guarantees no ordering between nodes' RTCs.
type RTCClock interface {
	Get() uint32
	Set(seconds uint32)
}

// RNG is a source of cryptographically adequate randomness for identity
// generation.
type RNG interface {
	Uint32() uint32
}

// SystemMilliseconds wraps time.Now for the host build.
type SystemMilliseconds struct{}

func (SystemMilliseconds) Millis() int64 { return time.Now().UnixMilli() }

// VolatileRTC is an in-memory settable seconds counter, mirroring the
// original firmware's VolatileRTCClock (no persistent wall clock on a
// bare node until externally synced, e.g. via the repeater's "clock
// sync" command).
type VolatileRTC struct {
	seconds atomic.Uint32
}

// NewVolatileRTC returns a VolatileRTC seeded with the host's current
// wall-clock time.
func NewVolatileRTC() *VolatileRTC {
	r := &VolatileRTC{}
	r.seconds.Store(uint32(time.Now().Unix()))
	return r
}

func (r *VolatileRTC) Get() uint32 { return r.seconds.Load() }

func (r *VolatileRTC) Set(seconds uint32) { r.seconds.Store(seconds) }

// CryptoRNG wraps crypto/rand, the same source GeneratePairingKey in the
// protocol package's predecessor used.
type CryptoRNG struct{}

func (CryptoRNG) Uint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing on a host is effectively unrecoverable;
		// the original GeneratePairingKey fell back to math/rand here,
		// but identity keys are already generated via ed25519's own
		// crypto/rand path, not through this RNG, so a zero value is an
		// acceptable degraded result.
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}
