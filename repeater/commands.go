package repeater

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NyanHelsing/MeshCore/clock"
)

// FirmwareVersion is the string the "ver" command reports.
const FirmwareVersion = "meshcore-go repeater v1"

// Service implements session.CommandHandler: the binary CMD_GET_STATS
// request and the textual CLI parser from examples/simple_repeater's
// handleCommand, reproduced command-for-command.
type Service struct {
	RTC           clock.RTCClock
	AirtimeFactor *float64 // shared with config.Config.AirtimeFactor
	StatsSource   func() Stats
	OnReboot      func()
	OnAdvert      func() error
}

// HandleBinary dispatches a REQ command byte. Unknown commands return
// an empty reply, matching the original's "return 0; // reply_len" for
// an unrecognised cmd.
func (s *Service) HandleBinary(command byte, params []byte) []byte {
	switch command {
	case CmdGetStats:
		return EncodeStats(s.StatsSource())
	default:
		return nil
	}
}

// HandleText runs the textual CLI parser (spec.md §4.6), exactly
// mirroring the original's case-sensitive prefix match order: "clock
// sync" is checked before the bare "clock" prefix since "clock" is a
// prefix of it.
func (s *Service) HandleText(senderTimestamp uint32, text string) string {
	switch {
	case text == "reboot":
		if s.OnReboot != nil {
			s.OnReboot()
		}
		return ""

	case text == "advert":
		if s.OnAdvert != nil {
			if err := s.OnAdvert(); err != nil {
				return fmt.Sprintf("ERR: %v", err)
			}
		}
		return "OK - Advert sent"

	case strings.HasPrefix(text, "clock sync"):
		current := s.RTC.Get()
		if senderTimestamp > current {
			s.RTC.Set(senderTimestamp + 1)
			return "OK - clock set"
		}
		return "ERR: clock cannot go backwards"

	case strings.HasPrefix(text, "clock"):
		return formatClock(s.RTC.Get())

	case strings.HasPrefix(text, "set AF "), strings.HasPrefix(text, "set af="):
		return s.setAirtimeFactor(text)

	case text == "ver":
		return FirmwareVersion

	default:
		return fmt.Sprintf("Unknown: %s (commands: reboot, advert, clock, set, ver)", text)
	}
}

func (s *Service) setAirtimeFactor(text string) string {
	var raw string
	switch {
	case strings.HasPrefix(text, "set AF "):
		raw = strings.TrimSpace(strings.TrimPrefix(text, "set AF "))
	case strings.HasPrefix(text, "set af="):
		raw = strings.TrimSpace(strings.TrimPrefix(text, "set af="))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "ERR: invalid airtime factor"
	}
	if s.AirtimeFactor != nil {
		*s.AirtimeFactor = v
	}
	return "OK"
}

// formatClock renders RTC seconds as "HH:MM - D/M/Y UTC", matching the
// original's clock-display format.
func formatClock(seconds uint32) string {
	t := time.Unix(int64(seconds), 0).UTC()
	return fmt.Sprintf("%02d:%02d - %d/%d/%d UTC", t.Hour(), t.Minute(), t.Day(), int(t.Month()), t.Year())
}
