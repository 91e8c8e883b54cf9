package protocol

import (
	"bytes"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  *Packet
	}{
		{
			name: "flood txt msg",
			pkt: &Packet{
				RouteType:   RouteFlood,
				PayloadType: PayloadTxtMsg,
				Path:        []byte{1, 2, 3},
				Payload:     []byte("hello"),
			},
		},
		{
			name: "direct ack empty path",
			pkt: &Packet{
				RouteType:   RouteDirect,
				PayloadType: PayloadAck,
				Payload:     bytes.Repeat([]byte{0xAA}, AckHashSize),
			},
		},
		{
			name: "has return path flag",
			pkt: &Packet{
				RouteType:   RouteResponse,
				PayloadType: PayloadPath,
				Flags:       FlagHasReturnPath,
				Path:        []byte{9},
				Payload:     []byte{1, 2, 3, 4},
			},
		},
		{
			name: "with transport code",
			pkt: &Packet{
				RouteType:     RouteFlood,
				PayloadType:   PayloadTxtMsg,
				Flags:         FlagHasTransportCodes,
				TransportCode: 0xBEEF,
				Path:          []byte{4, 5},
				Payload:       []byte("hi"),
			},
		},
		{
			name: "max path and payload",
			pkt: &Packet{
				RouteType:   RouteFlood,
				PayloadType: PayloadAdvert,
				Path:        bytes.Repeat([]byte{0x01}, MaxPath),
				Payload:     bytes.Repeat([]byte{0x02}, MaxPayload),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.pkt)
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if decoded.RouteType != tt.pkt.RouteType {
				t.Errorf("RouteType = %v, want %v", decoded.RouteType, tt.pkt.RouteType)
			}
			if decoded.PayloadType != tt.pkt.PayloadType {
				t.Errorf("PayloadType = %v, want %v", decoded.PayloadType, tt.pkt.PayloadType)
			}
			if decoded.Flags != tt.pkt.Flags {
				t.Errorf("Flags = %v, want %v", decoded.Flags, tt.pkt.Flags)
			}
			if decoded.TransportCode != tt.pkt.TransportCode {
				t.Errorf("TransportCode = %v, want %v", decoded.TransportCode, tt.pkt.TransportCode)
			}
			if !bytes.Equal(decoded.Path, tt.pkt.Path) {
				t.Errorf("Path = %v, want %v", decoded.Path, tt.pkt.Path)
			}
			if !bytes.Equal(decoded.Payload, tt.pkt.Payload) {
				t.Errorf("Payload = %v, want %v", decoded.Payload, tt.pkt.Payload)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{
			name: "reserved route type",
			data: []byte{0xC0, 0x00}, // route bits 11 = reserved
		},
		{
			name: "path len exceeds buffer",
			data: []byte{0x00, 0x05, 0x01, 0x02}, // path_len=5 but only 2 bytes follow
		},
		{
			name: "path len exceeds MaxPath",
			data: append([]byte{0x00, byte(MaxPath + 1)}, bytes.Repeat([]byte{0}, MaxPath+1)...),
		},
		{
			name: "payload exceeds MaxPayload",
			data: append([]byte{0x00, 0x00}, bytes.Repeat([]byte{0xFF}, MaxPayload+1)...),
		},
		{
			name: "transport code flag but truncated",
			data: []byte{0x02}, // flags = has_transport_codes, no bytes follow
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err != ErrMalformed {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestPacketHashStableOverPath(t *testing.T) {
	a := &Packet{PayloadType: PayloadTxtMsg, Path: []byte{1, 2}, Payload: []byte("hi")}
	b := &Packet{PayloadType: PayloadTxtMsg, Path: []byte{9, 9, 9}, Payload: []byte("hi")}

	if a.Hash() != b.Hash() {
		t.Error("Hash() should be invariant to path, varying only payload kind and bytes")
	}

	c := &Packet{PayloadType: PayloadTxtMsg, Payload: []byte("bye")}
	if a.Hash() == c.Hash() {
		t.Error("Hash() should differ for different payload bytes")
	}
}

func TestHeaderBitPacking(t *testing.T) {
	pkt := &Packet{RouteType: RouteDirect, PayloadType: PayloadReq, Flags: FlagHasReturnPath}
	encoded := Encode(pkt)
	want := byte(RouteDirect)<<6 | byte(PayloadReq)<<2 | FlagHasReturnPath
	if encoded[0] != want {
		t.Errorf("header byte = %08b, want %08b", encoded[0], want)
	}
}
