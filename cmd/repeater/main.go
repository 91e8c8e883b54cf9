// Command repeater runs a standalone mesh repeater node: it relays
// flood/direct traffic, answers the admin protocol (anon login, stats,
// CLI commands), and emits a self-advertisement at startup and on the
// "advert" command; it sends no periodic advertisements. It uses
// the host-side radio.Stub in place of a real LoRa chip driver.
package main

import (
	"log"
	"os"
	"time"

	"github.com/NyanHelsing/MeshCore/clock"
	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/forwarding"
	"github.com/NyanHelsing/MeshCore/protocol"
	"github.com/NyanHelsing/MeshCore/radio"
	"github.com/NyanHelsing/MeshCore/repeater"
	"github.com/NyanHelsing/MeshCore/session"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.AdminPassword = "changeme"

	identity, err := protocol.NewIdentity()
	if err != nil {
		log.Fatalf("[repeater] identity generation failed: %v", err)
	}

	r := radio.NewStub()
	if err := r.Begin(radio.Params{
		FreqMHz:         cfg.FreqMHz,
		BandwidthKHz:    cfg.BandwidthKHz,
		SpreadingFactor: cfg.SpreadingFactor,
		CodingRate:      cfg.CodingRate,
		TxPowerDBm:      cfg.TxPowerDBm,
		PreambleLen:     8,
	}); err != nil {
		log.Fatalf("[repeater] radio init failed: %v", err)
	}

	rtc := clock.NewVolatileRTC()
	millis := clock.SystemMilliseconds{}

	sess := session.New(identity, cfg, rtc, millis, nil)
	engine := forwarding.New(r, cfg, 0x01, sess, millis.Millis)

	startedAt := time.Now()
	svc := &repeater.Service{
		RTC:           rtc,
		AirtimeFactor: &cfg.AirtimeFactor,
		OnReboot: func() {
			log.Printf("[repeater] reboot requested, exiting")
			os.Exit(0)
		},
		OnAdvert: func() error {
			return sess.SendSelfAdvert(protocol.AppData{
				Name:    cfg.AdvertName,
				HasName: true,
			})
		},
		StatsSource: func() repeater.Stats {
			free, outbound, inFlight := engine.PoolCounts()
			return repeater.Stats{
				CurrTxQueueLen:   uint16(outbound),
				CurrFreeQueueLen: uint16(free + inFlight),
				LastRSSI:         r.LastRSSI(),
				NPacketsRecv:     uint32(engine.Counters.PacketsRecv.Load()),
				NPacketsSent:     uint32(engine.Counters.PacketsSent.Load()),
				TotalAirTimeSecs: uint32(engine.Counters.TotalAirTimeMillis.Load() / 1000),
				TotalUpTimeSecs:  uint32(time.Since(startedAt).Seconds()),
				NSentFlood:       uint32(engine.Counters.SentFlood.Load()),
				NSentDirect:      uint32(engine.Counters.SentDirect.Load()),
				NRecvFlood:       uint32(engine.Counters.RecvFlood.Load()),
				NRecvDirect:      uint32(engine.Counters.RecvDirect.Load()),
				NFullEvents:      uint32(engine.Counters.FullEvents.Load()),
			}
		},
	}
	sess.Commands = svc

	log.Printf("[repeater] starting, public key hash prefix = %#x", protocol.HashPrefix(identity.Public))
	if err := sess.SendSelfAdvert(protocol.AppData{Name: cfg.AdvertName, HasName: true}); err != nil {
		log.Printf("[repeater] initial advert failed: %v", err)
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		engine.Tick()
	}
}
