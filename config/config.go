// Package config holds the node's tunables as a plain struct with a
// DefaultConfig constructor: no flag/viper/cobra parsing anywhere in
// this module.
package config

// Config holds every tunable spec.md §6 names.
type Config struct {
	// Radio parameters (LORA_FREQ, LORA_BW, LORA_SF, LORA_CR, LORA_TX_POWER).
	FreqMHz         float64
	BandwidthKHz    float64
	SpreadingFactor uint8
	CodingRate      uint8
	TxPowerDBm      int8

	// Repeater admin and advertisement identity.
	AdminPassword string
	AdvertName    string
	AdvertLat     float64
	AdvertLon     float64

	// Bounded table capacities.
	MaxContacts      int
	MaxClients       int
	MaxGroupChannels int
	MaxTextLen       int
	PoolCapacity     int

	// Airtime budgeting.
	AirtimeFactor float64

	// CLIReplyDelayMillis is the extra schedule delay §4.5 adds to a
	// repeater CLI reply so it doesn't collide on air with the ACK.
	CLIReplyDelayMillis int64
}

// DefaultConfig returns the tunable defaults spec.md §6 implies: a
// 32-slot packet pool, ~150-byte text messages, and an airtime factor of
// 1.0 (no throttling until the node observes real contention).
func DefaultConfig() Config {
	return Config{
		FreqMHz:         915.0,
		BandwidthKHz:    250.0,
		SpreadingFactor: 10,
		CodingRate:      5,
		TxPowerDBm:      20,

		AdminPassword: "",
		AdvertName:    "node",
		AdvertLat:     0,
		AdvertLon:     0,

		MaxContacts:      32,
		MaxClients:       8,
		MaxGroupChannels: 8,
		MaxTextLen:       150,
		PoolCapacity:     32,

		AirtimeFactor: 1.0,

		// Matches the reference repeater firmware's CLI_REPLY_DELAY_MILLIS,
		// long enough that a CLI reply doesn't collide on air with the ACK
		// the same inbound TXT_MSG triggers.
		CLIReplyDelayMillis: 1500,
	}
}
