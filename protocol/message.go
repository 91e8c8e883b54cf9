package protocol

// EncodeTextPlaintext builds the AEAD plaintext a TXT_MSG datagram seals:
// timestamp(4) || flags(1) || text || \0, per spec.md §4.5.
func EncodeTextPlaintext(timestamp uint32, flags byte, text string) []byte {
	out := make([]byte, 4, 4+1+len(text)+1)
	out[0] = byte(timestamp)
	out[1] = byte(timestamp >> 8)
	out[2] = byte(timestamp >> 16)
	out[3] = byte(timestamp >> 24)
	out = append(out, flags)
	out = append(out, text...)
	out = append(out, 0)
	return out
}

// DecodeTextPlaintext reverses EncodeTextPlaintext. ErrMalformed covers
// anything shorter than the minimum 6-byte frame (timestamp+flags+nul).
func DecodeTextPlaintext(plaintext []byte) (timestamp uint32, flags byte, text string, err error) {
	if len(plaintext) < 6 {
		return 0, 0, "", ErrMalformed
	}
	timestamp = uint32(plaintext[0]) | uint32(plaintext[1])<<8 | uint32(plaintext[2])<<16 | uint32(plaintext[3])<<24
	flags = plaintext[4]
	body := plaintext[5:]
	end := 0
	for end < len(body) && body[end] != 0 {
		end++
	}
	text = string(body[:end])
	return timestamp, flags, text, nil
}

// EncodePathReturnPlaintext builds the AEAD plaintext a path-return
// packet seals: timestamp(4) || traversed_path_len(1) ||
// traversed_path[] || extra_type(1) || extra[]. The path-return packet
// itself travels as a genuine FLOOD with its own fresh Path field (per
// the reference firmware's literal sendFlood(path) call); the hop list
// that needs to reach the original sender rides inside this ciphertext
// instead of the packet's own Path bytes, which only ever describe the
// path-return packet's own outward journey.
func EncodePathReturnPlaintext(timestamp uint32, traversedPath []byte, extraType byte, extra []byte) []byte {
	if len(traversedPath) > MaxPath {
		traversedPath = traversedPath[:MaxPath]
	}
	out := make([]byte, 4, 4+1+len(traversedPath)+1+len(extra))
	out[0] = byte(timestamp)
	out[1] = byte(timestamp >> 8)
	out[2] = byte(timestamp >> 16)
	out[3] = byte(timestamp >> 24)
	out = append(out, byte(len(traversedPath)))
	out = append(out, traversedPath...)
	out = append(out, extraType)
	out = append(out, extra...)
	return out
}

// DecodePathReturnPlaintext reverses EncodePathReturnPlaintext.
func DecodePathReturnPlaintext(plaintext []byte) (timestamp uint32, traversedPath []byte, extraType byte, extra []byte, err error) {
	if len(plaintext) < 4+1+1 {
		return 0, nil, 0, nil, ErrMalformed
	}
	timestamp = uint32(plaintext[0]) | uint32(plaintext[1])<<8 | uint32(plaintext[2])<<16 | uint32(plaintext[3])<<24
	pathLen := int(plaintext[4])
	offset := 5
	if pathLen > MaxPath || len(plaintext) < offset+pathLen+1 {
		return 0, nil, 0, nil, ErrMalformed
	}
	if pathLen > 0 {
		traversedPath = append([]byte(nil), plaintext[offset:offset+pathLen]...)
	}
	offset += pathLen
	extraType = plaintext[offset]
	offset++
	if offset < len(plaintext) {
		extra = append([]byte(nil), plaintext[offset:]...)
	}
	return timestamp, traversedPath, extraType, extra, nil
}

// ReversePath returns a new slice with path's bytes in reverse order,
// the hop-list transform path learning applies (spec.md §8 property 7).
func ReversePath(path []byte) []byte {
	out := make([]byte, len(path))
	for i, b := range path {
		out[len(path)-1-i] = b
	}
	return out
}
