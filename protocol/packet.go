package protocol

// Packet is an in-memory mesh packet record: header, path, payload, plus
// the transient bookkeeping the forwarding engine needs. Wire layout
// (bytes in order):
//
//	header(1) | transport_codes(2?) | path_len(1) | path[path_len] | payload[]
//
// The header byte packs route_type (top 2 bits), payload_type (next 4
// bits) and flags (low 2 bits: has_return_path, has_transport_codes).
// transport_codes is present only when FlagHasTransportCodes is set; it
// carries a 16-bit code that is encoded, decoded and copied onto relays,
// but takes no part in the packet hash, so it does not affect duplicate
// suppression.
type Packet struct {
	RouteType     byte
	PayloadType   byte
	Flags         byte
	TransportCode uint16
	Path          []byte
	Payload       []byte

	// DoNotRetransmit suppresses the forwarding engine's scheduled
	// retransmission of this outbound packet (set on ACK match or user
	// cancel).
	DoNotRetransmit bool
	// Retransmitted marks that this packet's single allowed retry has
	// already been sent, so the next time it comes due it is released
	// rather than requeued again.
	Retransmitted bool
	// ScheduledAt is the wall-clock millisecond deadline this packet's
	// next (re)transmission is due.
	ScheduledAt int64
}

func (p *Packet) hasTransportCodes() bool { return p.Flags&FlagHasTransportCodes != 0 }

// HasReturnPath reports whether the header's has_return_path bit is set.
func (p *Packet) HasReturnPath() bool { return p.Flags&FlagHasReturnPath != 0 }

// Hash computes the duplicate-suppression / ACK-matching hash over
// payload kind and payload bytes, excluding path (spec.md §3).
func (p *Packet) Hash() [AckHashSize]byte {
	return PacketHash(p.PayloadType, p.Payload)
}

// Encode serialises p into on-air bytes. Encode is infallible given
// validated inputs (path and payload already bounded to MaxPath /
// MaxPayload by the caller); it truncates rather than panics if asked to
// encode an over-long path or payload.
func Encode(p *Packet) []byte {
	path := p.Path
	if len(path) > MaxPath {
		path = path[:MaxPath]
	}
	payload := p.Payload
	if len(payload) > MaxPayload {
		payload = payload[:MaxPayload]
	}

	header := (p.RouteType&0x3)<<6 | (p.PayloadType&0xF)<<2 | (p.Flags & 0x3)

	size := HeaderSize + PathLenFieldSize + len(path) + len(payload)
	if p.hasTransportCodes() {
		size += 2
	}
	out := make([]byte, 0, size)
	out = append(out, header)
	if p.hasTransportCodes() {
		out = append(out, byte(p.TransportCode), byte(p.TransportCode>>8))
	}
	out = append(out, byte(len(path)))
	out = append(out, path...)
	out = append(out, payload...)
	return out
}

// Decode parses on-air bytes into a Packet. It fails with ErrMalformed
// on short buffers, an unknown mandatory flag, or a path/payload length
// that does not fit within the buffer.
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, ErrMalformed
	}
	header := data[0]
	route := (header >> 6) & 0x3
	payloadType := (header >> 2) & 0xF
	flags := header & 0x3

	if route == routeReserved {
		return nil, ErrMalformed
	}

	offset := HeaderSize
	p := &Packet{RouteType: route, PayloadType: payloadType, Flags: flags}

	if p.hasTransportCodes() {
		if len(data) < offset+2 {
			return nil, ErrMalformed
		}
		p.TransportCode = uint16(data[offset]) | uint16(data[offset+1])<<8
		offset += 2
	}

	if len(data) < offset+PathLenFieldSize {
		return nil, ErrMalformed
	}
	pathLen := int(data[offset])
	offset += PathLenFieldSize
	if pathLen > MaxPath || len(data) < offset+pathLen {
		return nil, ErrMalformed
	}
	if pathLen > 0 {
		p.Path = append([]byte(nil), data[offset:offset+pathLen]...)
	}
	offset += pathLen

	if len(data)-offset > MaxPayload {
		return nil, ErrMalformed
	}
	if len(data) > offset {
		p.Payload = append([]byte(nil), data[offset:]...)
	}

	return p, nil
}
