package protocol

import "encoding/binary"

// AppData is the advertisement app-data sub-codec contents (spec.md
// §4.1): a presence-flag byte followed by whichever fields it names, in
// fixed order — lat, lon, feature1, feature2, then the null-padded name.
type AppData struct {
	Name           string // up to MaxAdvertName bytes
	HasName        bool
	Lat, Lon       int32 // fixed-point coordinates
	HasLat, HasLon bool
	Feature1       byte
	HasFeature1    bool
	Feature2       byte
	HasFeature2    bool
}

// EncodeAppData serialises app-data, infallible given a Name already
// within bounds (it truncates an over-long name rather than panic).
func EncodeAppData(a AppData) []byte {
	var flags byte
	if a.HasName {
		flags |= AppFlagHasName
	}
	if a.HasLat {
		flags |= AppFlagHasLat
	}
	if a.HasLon {
		flags |= AppFlagHasLon
	}
	if a.HasFeature1 {
		flags |= AppFlagHasFeature1
	}
	if a.HasFeature2 {
		flags |= AppFlagHasFeature2
	}

	out := make([]byte, 1, MaxAdvertDataSize)
	out[0] = flags
	if a.HasLat {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(a.Lat))
		out = append(out, b[:]...)
	}
	if a.HasLon {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(a.Lon))
		out = append(out, b[:]...)
	}
	if a.HasFeature1 {
		out = append(out, a.Feature1)
	}
	if a.HasFeature2 {
		out = append(out, a.Feature2)
	}
	if a.HasName {
		name := a.Name
		if len(name) > MaxAdvertName {
			name = name[:MaxAdvertName]
		}
		nameField := make([]byte, MaxAdvertName+1)
		copy(nameField, name)
		out = append(out, nameField...)
	}
	return out
}

// DecodeAppData parses app-data, rejecting truncated or over-long
// records with ErrMalformed.
func DecodeAppData(data []byte) (AppData, error) {
	if len(data) < 1 {
		return AppData{}, ErrMalformed
	}
	flags := data[0]
	offset := 1

	a := AppData{
		HasLat:      flags&AppFlagHasLat != 0,
		HasLon:      flags&AppFlagHasLon != 0,
		HasFeature1: flags&AppFlagHasFeature1 != 0,
		HasFeature2: flags&AppFlagHasFeature2 != 0,
		HasName:     flags&AppFlagHasName != 0,
	}

	if a.HasLat {
		if len(data) < offset+4 {
			return AppData{}, ErrMalformed
		}
		a.Lat = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4
	}
	if a.HasLon {
		if len(data) < offset+4 {
			return AppData{}, ErrMalformed
		}
		a.Lon = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4
	}
	if a.HasFeature1 {
		if len(data) < offset+1 {
			return AppData{}, ErrMalformed
		}
		a.Feature1 = data[offset]
		offset++
	}
	if a.HasFeature2 {
		if len(data) < offset+1 {
			return AppData{}, ErrMalformed
		}
		a.Feature2 = data[offset]
		offset++
	}
	if a.HasName {
		if len(data) < offset+MaxAdvertName+1 {
			return AppData{}, ErrMalformed
		}
		nameField := data[offset : offset+MaxAdvertName+1]
		end := 0
		for end < len(nameField) && nameField[end] != 0 {
			end++
		}
		a.Name = string(nameField[:end])
		offset += MaxAdvertName + 1
	}

	if offset != len(data) {
		return AppData{}, ErrMalformed
	}
	return a, nil
}

// Advert is a decoded advertisement: public_key(32) || timestamp(4) ||
// signature(64) || app_data(variable).
type Advert struct {
	PublicKey [PubKeySize]byte
	Timestamp uint32
	Signature [SignatureSize]byte
	AppData   []byte
}

// EncodeAdvert serialises an advertisement's ADVERT payload bytes (the
// header/path wrapping is the caller's concern via Packet).
func EncodeAdvert(a Advert) []byte {
	out := make([]byte, 0, PubKeySize+4+SignatureSize+len(a.AppData))
	out = append(out, a.PublicKey[:]...)
	var ts [4]byte
	binary.LittleEndian.PutUint32(ts[:], a.Timestamp)
	out = append(out, ts[:]...)
	out = append(out, a.Signature[:]...)
	out = append(out, a.AppData...)
	return out
}

// DecodeAdvert parses and verifies an advertisement payload, returning
// ErrMalformed on a short buffer and ErrAuthFail on a bad signature.
func DecodeAdvert(data []byte) (Advert, error) {
	const fixed = PubKeySize + 4 + SignatureSize
	if len(data) < fixed {
		return Advert{}, ErrMalformed
	}
	var a Advert
	copy(a.PublicKey[:], data[:PubKeySize])
	a.Timestamp = binary.LittleEndian.Uint32(data[PubKeySize : PubKeySize+4])
	copy(a.Signature[:], data[PubKeySize+4:fixed])
	a.AppData = append([]byte(nil), data[fixed:]...)

	if !VerifyAdvert(a.PublicKey, a.Timestamp, a.AppData, a.Signature[:]) {
		return Advert{}, ErrAuthFail
	}
	return a, nil
}
