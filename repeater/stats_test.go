package repeater

import (
	"encoding/binary"
	"testing"
)

func TestEncodeStatsLayout(t *testing.T) {
	s := Stats{
		BattMilliVolts:   4100,
		CurrTxQueueLen:   2,
		CurrFreeQueueLen: 30,
		LastRSSI:         -77,
		NPacketsRecv:     1000,
		NPacketsSent:     900,
		TotalAirTimeSecs: 120,
		TotalUpTimeSecs:  3600,
		NSentFlood:       10,
		NSentDirect:      20,
		NRecvFlood:       30,
		NRecvDirect:      40,
		NFullEvents:      1,
	}

	out := EncodeStats(s)
	if len(out) != StatsSize {
		t.Fatalf("len(out) = %d, want %d", len(out), StatsSize)
	}

	if got := binary.LittleEndian.Uint16(out[0:2]); got != s.BattMilliVolts {
		t.Errorf("BattMilliVolts = %d, want %d", got, s.BattMilliVolts)
	}
	if got := binary.LittleEndian.Uint16(out[2:4]); got != s.CurrTxQueueLen {
		t.Errorf("CurrTxQueueLen = %d, want %d", got, s.CurrTxQueueLen)
	}
	if got := binary.LittleEndian.Uint16(out[4:6]); got != s.CurrFreeQueueLen {
		t.Errorf("CurrFreeQueueLen = %d, want %d", got, s.CurrFreeQueueLen)
	}
	if got := int16(binary.LittleEndian.Uint16(out[6:8])); got != s.LastRSSI {
		t.Errorf("LastRSSI = %d, want %d", got, s.LastRSSI)
	}
	if got := binary.LittleEndian.Uint32(out[8:12]); got != s.NPacketsRecv {
		t.Errorf("NPacketsRecv = %d, want %d", got, s.NPacketsRecv)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != s.NFullEvents {
		t.Errorf("NFullEvents = %d, want %d", got, s.NFullEvents)
	}
}

func TestEncodeStatsNegativeRSSI(t *testing.T) {
	out := EncodeStats(Stats{LastRSSI: -120})
	got := int16(binary.LittleEndian.Uint16(out[6:8]))
	if got != -120 {
		t.Errorf("LastRSSI round-trip = %d, want -120", got)
	}
}
