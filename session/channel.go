package session

import "github.com/NyanHelsing/MeshCore/protocol"

// GroupChannel is a symmetric pre-shared key plus its SHA-256 hash (for
// hash-prefix lookup) and its derived AEAD key; channels have no
// per-sender state (spec.md §3).
type GroupChannel struct {
	PSK  []byte
	Hash [32]byte
	Key  [protocol.SharedSecretSize]byte
}

// Channels is the bounded group-channel table (MAX_GROUP_CHANNELS).
type Channels struct {
	capacity int
	list     []GroupChannel
}

// NewChannels returns an empty table bounded to capacity entries.
func NewChannels(capacity int) *Channels {
	return &Channels{capacity: capacity}
}

// Add hashes and stores psk, accepting raw bytes — the original's
// addChannel base64-decodes a psk_base64 string first, but that's a
// CLI/serial-layer concern out of scope here (spec.md §1); callers
// supply already-decoded bytes. Only 16- or 32-byte keys are accepted.
func (c *Channels) Add(psk []byte) (*GroupChannel, error) {
	if len(psk) != 16 && len(psk) != 32 {
		return nil, ErrUnsupported
	}
	if len(c.list) >= c.capacity {
		return nil, ErrFull
	}
	key, err := protocol.ChannelKey(psk)
	if err != nil {
		return nil, err
	}
	c.list = append(c.list, GroupChannel{
		PSK:  append([]byte(nil), psk...),
		Hash: protocol.ChannelHash(psk),
		Key:  key,
	})
	return &c.list[len(c.list)-1], nil
}

// ByHashPrefix returns every channel whose hash's first byte matches,
// the candidates the session layer tries group-decrypt against in turn
// (spec.md §4.5 Group channels).
func (c *Channels) ByHashPrefix(prefix byte) []*GroupChannel {
	var out []*GroupChannel
	for i := range c.list {
		if c.list[i].Hash[0] == prefix {
			out = append(out, &c.list[i])
		}
	}
	return out
}

// Len returns the number of channels currently stored.
func (c *Channels) Len() int { return len(c.list) }
