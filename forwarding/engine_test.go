package forwarding

import (
	"testing"

	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/protocol"
	"github.com/NyanHelsing/MeshCore/radio"
	"github.com/NyanHelsing/MeshCore/session"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.PoolCapacity = 8
	cfg.AirtimeFactor = 0 // disable pacing unless a test opts in
	return cfg
}

type fakeClock struct {
	now int64
}

func (c *fakeClock) Millis() int64 { return c.now }

func newEngine(t *testing.T, relayID byte) (*Engine, *radio.Stub, *fakeClock) {
	t.Helper()
	r := radio.NewStub()
	if err := r.Begin(radio.Params{SpreadingFactor: 10, BandwidthKHz: 250, CodingRate: 5, PreambleLen: 8}); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	identity, err := protocol.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	clk := &fakeClock{}
	sess := session.New(identity, testConfig(), &fixedRTC{}, clk, nil)
	e := New(r, testConfig(), relayID, sess, clk.Millis)
	return e, r, clk
}

// fixedRTC is a minimal clock.RTCClock double; forwarding tests don't
// exercise RTC-dependent session behavior directly.
type fixedRTC struct{ seconds uint32 }

func (r *fixedRTC) Get() uint32        { return r.seconds }
func (r *fixedRTC) Set(seconds uint32) { r.seconds = seconds }

func TestSendEnqueuesOutboundAndReportsInFlight(t *testing.T) {
	e, _, _ := newEngine(t, 0x01)
	pkt := &protocol.Packet{PayloadType: protocol.PayloadAdvert, Payload: []byte("advert")}

	if err := e.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	_, outbound, _ := e.PoolCounts()
	if outbound != 1 {
		t.Errorf("outbound = %d, want 1", outbound)
	}
}

func TestSendFullPoolReturnsErrAndCountsFullEvent(t *testing.T) {
	e, _, _ := newEngine(t, 0x01)
	cfg := testConfig()
	for i := 0; i < cfg.PoolCapacity; i++ {
		pkt := &protocol.Packet{PayloadType: protocol.PayloadAdvert, Payload: []byte{byte(i)}}
		if err := e.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0); err != nil {
			t.Fatalf("Send() #%d error = %v", i, err)
		}
	}
	overflow := &protocol.Packet{PayloadType: protocol.PayloadAdvert, Payload: []byte("overflow")}
	if err := e.Send(overflow, nil, [protocol.AckHashSize]byte{}, 0); err == nil {
		t.Error("Send() at pool capacity should have failed")
	}
	if got := e.Counters.FullEvents.Load(); got != 1 {
		t.Errorf("FullEvents = %d, want 1", got)
	}
}

func TestTickTransmitsDuePacketAndReleasesAfterOneRetry(t *testing.T) {
	e, r, clk := newEngine(t, 0x01)
	pkt := &protocol.Packet{RouteType: protocol.RouteFlood, PayloadType: protocol.PayloadAdvert, Payload: []byte("x")}
	if err := e.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	e.Tick() // transmits immediately, schedules a retry at +floodTimeoutMillis
	if got := r.PacketsSent(); got != 1 {
		t.Fatalf("PacketsSent() = %d, want 1", got)
	}
	_, outbound, inFlight := e.PoolCounts()
	if outbound != 0 || inFlight != 1 {
		t.Fatalf("after first send: outbound=%d inFlight=%d, want 0,1", outbound, inFlight)
	}

	clk.now += floodTimeoutMillis
	e.Tick() // retransmits once
	if got := r.PacketsSent(); got != 2 {
		t.Fatalf("PacketsSent() after retry = %d, want 2", got)
	}

	clk.now += floodTimeoutMillis
	e.Tick() // no further retry: slot is released, not resent
	if got := r.PacketsSent(); got != 2 {
		t.Errorf("PacketsSent() after second due tick = %d, want 2 (single retry only)", got)
	}
	free, outbound, inFlight := e.PoolCounts()
	if free != testConfig().PoolCapacity || outbound != 0 || inFlight != 0 {
		t.Errorf("pool not released after exhausting its single retry: free=%d outbound=%d inFlight=%d", free, outbound, inFlight)
	}
}

func TestHandleInboundDedupsBySeenSet(t *testing.T) {
	e, _, _ := newEngine(t, 0x01)
	pkt, err := protocol.Decode(protocol.Encode(&protocol.Packet{
		RouteType:   protocol.RouteFlood,
		PayloadType: protocol.PayloadAdvert,
		Payload:     []byte("dup me"),
	}))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	e.handleInbound(pkt)
	_, outboundAfterFirst, _ := e.PoolCounts()

	pkt2, _ := protocol.Decode(protocol.Encode(&protocol.Packet{
		RouteType:   protocol.RouteFlood,
		PayloadType: protocol.PayloadAdvert,
		Payload:     []byte("dup me"),
	}))
	e.handleInbound(pkt2)
	_, outboundAfterSecond, _ := e.PoolCounts()

	if outboundAfterSecond != outboundAfterFirst {
		t.Errorf("duplicate inbound packet was relayed again: outbound went from %d to %d", outboundAfterFirst, outboundAfterSecond)
	}
}

func TestHandleInboundFloodRelaysWithAppendedHop(t *testing.T) {
	e, _, _ := newEngine(t, 0x42)
	pkt, err := protocol.Decode(protocol.Encode(&protocol.Packet{
		RouteType:   protocol.RouteFlood,
		PayloadType: protocol.PayloadAdvert,
		Path:        []byte{0x01},
		Payload:     []byte("hello"),
	}))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	e.handleInbound(pkt)

	_, outbound, _ := e.PoolCounts()
	if outbound != 1 {
		t.Fatalf("outbound = %d, want 1 relay scheduled", outbound)
	}
}

func TestHandleInboundDirectDropsWhenNotOurHop(t *testing.T) {
	e, _, _ := newEngine(t, 0x42)
	pkt, err := protocol.Decode(protocol.Encode(&protocol.Packet{
		RouteType:   protocol.RouteDirect,
		PayloadType: protocol.PayloadAdvert,
		Path:        []byte{0x99}, // not our relay ID
		Payload:     []byte("hi"),
	}))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	e.handleInbound(pkt)

	_, outbound, _ := e.PoolCounts()
	if outbound != 0 {
		t.Errorf("outbound = %d, want 0 (packet is not addressed to this relay)", outbound)
	}
}

func TestHandleInboundDirectForwardsWhenOurHop(t *testing.T) {
	e, _, _ := newEngine(t, 0x42)
	pkt, err := protocol.Decode(protocol.Encode(&protocol.Packet{
		RouteType:   protocol.RouteDirect,
		PayloadType: protocol.PayloadAdvert,
		Path:        []byte{0x42, 0x01}, // us, then one more hop
		Payload:     []byte("hi"),
	}))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	e.handleInbound(pkt)

	_, outbound, _ := e.PoolCounts()
	if outbound != 1 {
		t.Errorf("outbound = %d, want 1 (forwarded to remaining hop)", outbound)
	}
}

func TestAllowPacketForwardCanVetoRelay(t *testing.T) {
	e, _, _ := newEngine(t, 0x01)
	e.session.Callbacks.AllowPacketForward = func(*protocol.Packet) bool { return false }

	pkt, err := protocol.Decode(protocol.Encode(&protocol.Packet{
		RouteType:   protocol.RouteFlood,
		PayloadType: protocol.PayloadAdvert,
		Payload:     []byte("vetoed"),
	}))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	e.handleInbound(pkt)

	_, outbound, _ := e.PoolCounts()
	if outbound != 0 {
		t.Errorf("outbound = %d, want 0 when AllowPacketForward vetoes", outbound)
	}
}

// fakeCommands is a minimal session.CommandHandler double, local to this
// package since session.stubCommands is unexported.
type fakeCommands struct {
	lastText string
	reply    string
}

func (f *fakeCommands) HandleBinary(command byte, params []byte) []byte { return nil }
func (f *fakeCommands) HandleText(senderTimestamp uint32, text string) string {
	f.lastText = text
	return f.reply
}

func TestDispatchRoutesLoggedInClientTextToCLIHandler(t *testing.T) {
	e, _, _ := newEngine(t, 0x01)
	cmds := &fakeCommands{reply: "ok"}
	e.session.Commands = cmds

	client, err := protocol.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	anonPayload := make([]byte, 0, protocol.PubKeySize+4)
	anonPayload = append(anonPayload, client.Public[:]...)
	anonPayload = append(anonPayload, 1, 0, 0, 0)
	anonPayload = append(anonPayload, []byte(e.session.Config.AdminPassword)...)
	if err := e.session.HandleAnonReq(anonPayload, false, nil); err != nil {
		t.Fatalf("HandleAnonReq() error = %v", err)
	}

	secret, err := protocol.SharedSecret(client, e.session.Identity.Public)
	if err != nil {
		t.Fatalf("SharedSecret() error = %v", err)
	}
	plaintext := protocol.EncodeTextPlaintext(2, 0, "clock sync")
	sealed, err := protocol.SealDatagram(secret, client.Public, plaintext)
	if err != nil {
		t.Fatalf("SealDatagram() error = %v", err)
	}

	e.dispatch(&protocol.Packet{PayloadType: protocol.PayloadTxtMsg, Payload: sealed}, false, nil)

	if cmds.lastText != "clock sync" {
		t.Errorf("lastText = %q, want %q: TXT_MSG from a logged-in client did not reach the CLI command handler", cmds.lastText, "clock sync")
	}
}

func TestTwoEnginesRelayAcrossAStubLink(t *testing.T) {
	nodeA, radioA, _ := newEngine(t, 0x01)
	nodeB, radioB, clkB := newEngine(t, 0x02)
	radio.Connect(radioA, radioB)

	pkt := &protocol.Packet{PayloadType: protocol.PayloadAdvert, Payload: []byte("wave")}
	if err := nodeA.Send(pkt, nil, [protocol.AckHashSize]byte{}, 0); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	nodeA.Tick() // A transmits over the stub link
	nodeB.Tick() // B receives and schedules its own relay

	_, outboundB, _ := nodeB.PoolCounts()
	if outboundB != 1 {
		t.Fatalf("B outbound = %d, want 1 (should have scheduled a relay)", outboundB)
	}

	clkB.now += 1000
	nodeB.Tick() // B transmits its relay back across the link
	if got := radioB.PacketsSent(); got != 1 {
		t.Errorf("B PacketsSent() = %d, want 1", got)
	}
}
