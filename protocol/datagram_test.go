package protocol

import (
	"bytes"
	"testing"
)

func TestSealOpenDatagramRoundTrip(t *testing.T) {
	a, _ := NewIdentity()
	b, _ := NewIdentity()
	secret, err := SharedSecret(a, b.Public)
	if err != nil {
		t.Fatalf("SharedSecret() error = %v", err)
	}

	plaintext := append([]byte{1, 2, 3, 4}, []byte("payload")...)
	payload, err := SealDatagram(secret, a.Public, plaintext)
	if err != nil {
		t.Fatalf("SealDatagram() error = %v", err)
	}

	prefix, ok := DatagramHashPrefix(payload)
	if !ok || prefix != HashPrefix(a.Public) {
		t.Errorf("DatagramHashPrefix() = (%v,%v), want (%v,true)", prefix, ok, HashPrefix(a.Public))
	}

	opened, err := OpenDatagram(secret, payload)
	if err != nil {
		t.Fatalf("OpenDatagram() error = %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("OpenDatagram() = %v, want %v", opened, plaintext)
	}
}

func TestSealDatagramWithIndexUsesGivenIndex(t *testing.T) {
	a, _ := NewIdentity()
	psk := []byte("a 16-byte psk!!!")
	key, err := ChannelKey(psk)
	if err != nil {
		t.Fatalf("ChannelKey() error = %v", err)
	}
	hash := ChannelHash(psk)

	plaintext := append([]byte{1, 2, 3, 4}, []byte("group payload")...)
	payload, err := SealDatagramWithIndex(key, hash[0], plaintext)
	if err != nil {
		t.Fatalf("SealDatagramWithIndex() error = %v", err)
	}

	prefix, ok := DatagramHashPrefix(payload)
	if !ok || prefix != hash[0] {
		t.Errorf("DatagramHashPrefix() = (%v,%v), want (%v,true)", prefix, ok, hash[0])
	}
	if prefix == HashPrefix(a.Public) {
		t.Skip("coincidental collision between channel hash and identity hash-prefix")
	}

	opened, err := OpenDatagram(key, payload)
	if err != nil {
		t.Fatalf("OpenDatagram() error = %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("OpenDatagram() = %v, want %v", opened, plaintext)
	}
}
