package protocol

// SealDatagram wraps Seal with a leading sender hash-prefix byte, so a
// receiver with no other addressing information (every encrypted
// payload kind here travels over FLOOD or DIRECT routing with no
// explicit sender field of its own) can narrow the contacts it tries to
// decrypt against before paying for an AEAD attempt on each — the
// "hash-prefix index" spec.md §4.3's Dispatch section describes.
func SealDatagram(secret [SharedSecretSize]byte, senderPub [PubKeySize]byte, plaintext []byte) ([]byte, error) {
	return SealDatagramWithIndex(secret, HashPrefix(senderPub), plaintext)
}

// SealDatagramWithIndex is SealDatagram with an explicit index byte
// instead of one derived from a sender's public key. Group channels have
// no per-sender identity to index by — every recipient narrows candidate
// channels by the PSK's own hash prefix instead, so the index byte here
// must be that channel hash, not a sender's.
func SealDatagramWithIndex(secret [SharedSecretSize]byte, index byte, plaintext []byte) ([]byte, error) {
	ciphertext, err := Seal(secret, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(ciphertext))
	out = append(out, index)
	out = append(out, ciphertext...)
	return out, nil
}

// OpenDatagram reverses SealDatagram.
func OpenDatagram(secret [SharedSecretSize]byte, payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, ErrMalformed
	}
	return Open(secret, payload[1:])
}

// DatagramHashPrefix extracts the leading hash-prefix byte without
// attempting decryption, for candidate-peer filtering.
func DatagramHashPrefix(payload []byte) (byte, bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return payload[0], true
}
