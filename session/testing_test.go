package session

import (
	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/protocol"
)

// fakeSender records every Send call instead of actually scheduling
// anything, so tests can assert on what the session layer asked to be
// sent without pulling in the forwarding engine.
type fakeSender struct {
	calls []sentCall
	err   error
}

type sentCall struct {
	pkt         *protocol.Packet
	path        []byte
	expectedAck [protocol.AckHashSize]byte
	delayMillis int64
}

func (f *fakeSender) Send(pkt *protocol.Packet, path []byte, expectedAck [protocol.AckHashSize]byte, delayMillis int64) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, sentCall{pkt: pkt, path: path, expectedAck: expectedAck, delayMillis: delayMillis})
	return nil
}

func (f *fakeSender) last() sentCall {
	return f.calls[len(f.calls)-1]
}

// fakeRTC is a settable seconds counter matching clock.RTCClock without
// pulling in the clock package's VolatileRTC (kept minimal here so tests
// can seed an arbitrary starting value directly).
type fakeRTC struct {
	seconds uint32
}

func (r *fakeRTC) Get() uint32        { return r.seconds }
func (r *fakeRTC) Set(seconds uint32) { r.seconds = seconds }

type fakeMillis struct {
	now int64
}

func (m *fakeMillis) Millis() int64 { return m.now }

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.MaxContacts = 4
	cfg.MaxClients = 4
	cfg.MaxGroupChannels = 4
	cfg.AdminPassword = "hunter2"
	return cfg
}

func newTestSession() (*Session, *fakeSender) {
	identity, err := protocol.NewIdentity()
	if err != nil {
		panic(err)
	}
	sender := &fakeSender{}
	s := New(identity, testConfig(), &fakeRTC{seconds: 1000}, &fakeMillis{}, sender)
	return s, sender
}
