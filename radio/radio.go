// Package radio defines the half-duplex radio port the forwarding engine
// drives. Real LoRa-chip drivers (SX126x et al, via RadioLib on the
// original firmware) are an external collaborator and out of scope here;
// this package only carries the contract and a host-side stub used for
// development and tests.
package radio

import "errors"

// ErrNotConfigured is returned by Send/Recv before Begin has succeeded.
var ErrNotConfigured = errors.New("radio: not configured")

// Params is the begin() collaborator contract: the handful of knobs a
// LoRa modem needs before it can transmit or listen.
type Params struct {
	FreqMHz         float64
	BandwidthKHz    float64
	SpreadingFactor uint8
	CodingRate      uint8
	SyncWord        uint8
	TxPowerDBm      int8
	PreambleLen     uint16
	TCXOVoltage     float64
}

// Radio is the collaborator contract from spec.md §6. Send and Recv never
// block longer than the caller's own budget allows (Recv is non-blocking:
// it returns 0, nil immediately when nothing is queued, matching the
// single-threaded cooperative loop of §5).
type Radio interface {
	Begin(p Params) error
	Send(data []byte) (airtimeMillis uint32, err error)
	Recv(buf []byte) (n int, err error)
	LastRSSI() int16
	EstAirtimeFor(lenBytes int) uint32
	PacketsSent() uint32
	PacketsRecv() uint32
}
