// Package repeater implements the admin command surface a repeater node
// exposes over the mesh: the binary CMD_GET_STATS request and the
// textual CLI command parser (spec.md §4.6), grounded on the reference
// firmware's examples/simple_repeater/main.cpp.
package repeater

import "encoding/binary"

// Binary command codes understood by HandleBinary.
const (
	CmdGetStats byte = 0x01
)

// StatsSize is the fixed wire size of an encoded Stats record:
// 3×u16 + 1×i16 + 9×u32.
const StatsSize = 2*3 + 2 + 4*9

// Stats is the fixed little-endian record CMD_GET_STATS returns
// (spec.md §6).
type Stats struct {
	BattMilliVolts   uint16
	CurrTxQueueLen   uint16
	CurrFreeQueueLen uint16
	LastRSSI         int16
	NPacketsRecv     uint32
	NPacketsSent     uint32
	TotalAirTimeSecs uint32
	TotalUpTimeSecs  uint32
	NSentFlood       uint32
	NSentDirect      uint32
	NRecvFlood       uint32
	NRecvDirect      uint32
	NFullEvents      uint32
}

// EncodeStats serialises s into its fixed StatsSize-byte little-endian
// wire layout.
func EncodeStats(s Stats) []byte {
	out := make([]byte, StatsSize)
	binary.LittleEndian.PutUint16(out[0:2], s.BattMilliVolts)
	binary.LittleEndian.PutUint16(out[2:4], s.CurrTxQueueLen)
	binary.LittleEndian.PutUint16(out[4:6], s.CurrFreeQueueLen)
	binary.LittleEndian.PutUint16(out[6:8], uint16(s.LastRSSI))
	binary.LittleEndian.PutUint32(out[8:12], s.NPacketsRecv)
	binary.LittleEndian.PutUint32(out[12:16], s.NPacketsSent)
	binary.LittleEndian.PutUint32(out[16:20], s.TotalAirTimeSecs)
	binary.LittleEndian.PutUint32(out[20:24], s.TotalUpTimeSecs)
	binary.LittleEndian.PutUint32(out[24:28], s.NSentFlood)
	binary.LittleEndian.PutUint32(out[28:32], s.NSentDirect)
	binary.LittleEndian.PutUint32(out[32:36], s.NRecvFlood)
	binary.LittleEndian.PutUint32(out[36:40], s.NRecvDirect)
	binary.LittleEndian.PutUint32(out[40:44], s.NFullEvents)
	return out
}
