package protocol

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Identity is a local long-term keypair. The same 32-byte seed backs both
// Ed25519 signing (advertisement authentication) and, via a birational
// Edwards->Montgomery conversion, X25519 ECDH (per-contact shared
// secrets) — spec.md §9's "Ed25519 on the same curve as the ECDH key,
// with key conversion" option.
type Identity struct {
	Public  [PubKeySize]byte // Ed25519 public key
	Private ed25519.PrivateKey
}

// PeerIdentity is the public half of an Identity, as carried on the wire.
type PeerIdentity struct {
	Public [PubKeySize]byte
}

// NewIdentity generates a fresh identity from a cryptographically secure
// source.
func NewIdentity() (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	copy(id.Public[:], pub)
	id.Private = priv
	return id, nil
}

// HashPrefix returns the first byte of SHA-256(pub), a cheap routing
// lookup key for candidate-peer matching (spec.md §3).
func HashPrefix(pub [PubKeySize]byte) byte {
	sum := sha256.Sum256(pub[:])
	return sum[0]
}

// edwardsPrivateToX25519 derives the X25519 scalar from an Ed25519
// private key's seed, exactly as ed25519 itself does internally, so the
// same 32-byte seed yields consistent keys for both signing and ECDH.
func edwardsPrivateToX25519(priv ed25519.PrivateKey) [32]byte {
	h := sha512.Sum512(priv.Seed())
	var scalar [32]byte
	copy(scalar[:], h[:32])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar
}

var fieldPrime = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))

// montgomeryUFromEdwardsY converts an Ed25519 public point's y-coordinate
// to the Montgomery u-coordinate X25519 expects: u = (1+y)/(1-y) mod p,
// the standard birational map between curve25519's twisted-Edwards and
// Montgomery forms.
func montgomeryUFromEdwardsY(edY [32]byte) ([32]byte, error) {
	buf := make([]byte, 32)
	copy(buf, edY[:])
	buf[31] &= 0x7f // clear the sign bit, not part of y
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	y := new(big.Int).SetBytes(buf)

	one := big.NewInt(1)
	numerator := new(big.Int).Mod(new(big.Int).Add(one, y), fieldPrime)
	denominator := new(big.Int).Mod(new(big.Int).Sub(one, y), fieldPrime)
	denomInv := new(big.Int).ModInverse(denominator, fieldPrime)
	if denomInv == nil {
		return [32]byte{}, ErrMalformed
	}
	u := new(big.Int).Mod(new(big.Int).Mul(numerator, denomInv), fieldPrime)

	var out [32]byte
	uBytes := u.Bytes()
	for i := 0; i < len(uBytes); i++ {
		out[len(uBytes)-1-i] = uBytes[i]
	}
	return out, nil
}

// ed25519PublicToX25519 converts an Ed25519 public key to its Montgomery
// u-coordinate for use as an X25519 peer key.
func ed25519PublicToX25519(pub [PubKeySize]byte) ([32]byte, error) {
	return montgomeryUFromEdwardsY(pub)
}

// SharedSecret computes the ECDH shared secret between a local identity
// and a peer's public key, then runs it through HKDF-SHA256 to derive
// the final 32-byte AEAD key — spec.md §4.4's KeyAgreement.shared_secret,
// strengthened per the module's key-derivation policy so the raw DH
// output is never used directly as a key.
func SharedSecret(local Identity, peerPub [PubKeySize]byte) ([SharedSecretSize]byte, error) {
	scalar := edwardsPrivateToX25519(local.Private)
	peerX, err := ed25519PublicToX25519(peerPub)
	if err != nil {
		return [SharedSecretSize]byte{}, err
	}

	dh, err := curve25519.X25519(scalar[:], peerX[:])
	if err != nil {
		return [SharedSecretSize]byte{}, err
	}

	var out [SharedSecretSize]byte
	kdf := hkdf.New(sha256.New, dh, nil, []byte("meshcore shared secret"))
	if _, err := kdf.Read(out[:]); err != nil {
		return [SharedSecretSize]byte{}, err
	}
	return out, nil
}

// Seal wraps plaintext (which MUST begin with the 4-byte sender
// timestamp per spec.md §4.4) under secret, returning nonce||ciphertext||tag.
// secret is a long-lived per-contact or per-channel key reused across many
// calls, so the nonce must be fresh every time; it is drawn from a
// cryptographically secure source and prepended so Open can recover it.
func Seal(secret [SharedSecretSize]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open unwraps a datagram sealed by Seal, returning ErrAuthFail if the
// tag does not verify.
func Open(secret [SharedSecretSize]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrMalformed
	}
	nonce, ct := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrAuthFail
	}
	return plaintext, nil
}

// SignAdvert signs public_key||timestamp||app_data under the identity's
// long-term key, per spec.md §4.1/§4.4.
func SignAdvert(local Identity, timestamp uint32, appData []byte) []byte {
	msg := advertSignedMessage(local.Public, timestamp, appData)
	return ed25519.Sign(local.Private, msg)
}

// VerifyAdvert checks an advertisement signature.
func VerifyAdvert(pub [PubKeySize]byte, timestamp uint32, appData, sig []byte) bool {
	msg := advertSignedMessage(pub, timestamp, appData)
	return ed25519.Verify(pub[:], msg, sig)
}

func advertSignedMessage(pub [PubKeySize]byte, timestamp uint32, appData []byte) []byte {
	msg := make([]byte, 0, PubKeySize+4+len(appData))
	msg = append(msg, pub[:]...)
	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], timestamp)
	msg = append(msg, tsBuf[:]...)
	msg = append(msg, appData...)
	return msg
}

// AckHash computes the truncated ACK hash of spec.md §4.4:
// SHA-256(timestamp || flags || text || sender_pub)[0:4].
func AckHash(timestamp uint32, flags byte, text []byte, senderPub [PubKeySize]byte) [AckHashSize]byte {
	buf := make([]byte, 0, 4+1+len(text)+PubKeySize)
	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], timestamp)
	buf = append(buf, tsBuf[:]...)
	buf = append(buf, flags)
	buf = append(buf, text...)
	buf = append(buf, senderPub[:]...)

	sum := sha256.Sum256(buf)
	var out [AckHashSize]byte
	copy(out[:], sum[:AckHashSize])
	return out
}

// PacketHash computes the duplicate-suppression hash over payload kind
// and payload bytes (path excluded), spec.md §3.
func PacketHash(payloadKind byte, payload []byte) [AckHashSize]byte {
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, payloadKind)
	buf = append(buf, payload...)
	sum := sha256.Sum256(buf)
	var out [AckHashSize]byte
	copy(out[:], sum[:AckHashSize])
	return out
}

// ChannelHash returns the SHA-256 hash of a group-channel PSK, used as
// the channel's hash-prefix index key for candidate lookup. It is never
// used as the encryption key itself — see ChannelKey — so leaking a
// hash-prefix byte never leaks key material.
func ChannelHash(psk []byte) [32]byte {
	return sha256.Sum256(psk)
}

// ChannelKey derives the 32-byte AEAD key for a group channel from its
// PSK via HKDF-SHA256, with an info string distinct from the per-contact
// ECDH derivation so the two never collide. A 32-byte PSK is accepted
// directly by AEAD ciphers on the original firmware; HKDF here just
// normalises the 16-byte case up to the width chacha20poly1305 needs.
func ChannelKey(psk []byte) ([SharedSecretSize]byte, error) {
	var out [SharedSecretSize]byte
	kdf := hkdf.New(sha256.New, psk, nil, []byte("meshcore channel key"))
	if _, err := kdf.Read(out[:]); err != nil {
		return [SharedSecretSize]byte{}, err
	}
	return out, nil
}

// ConstantTimeCompare does a constant-time password compare for the
// repeater's anonymous admin login (spec.md §4.5).
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
