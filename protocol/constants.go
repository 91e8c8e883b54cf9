// Package protocol implements the mesh wire format: packet header, path,
// payload, and the advertisement app-data sub-codec. All higher layers
// depend on this package for on-air layout rather than hard-coding field
// widths of their own.
package protocol

// Sizing and routing constants.
const (
	// HeaderSize is the single routing/type/flags byte at the front of
	// every packet.
	HeaderSize = 1

	// PathLenFieldSize is the one byte giving the number of relay-id
	// bytes that follow in Path.
	PathLenFieldSize = 1

	// MaxPath bounds how many single-byte relay identifiers a path can
	// carry, for both flood-accumulated and direct source-routed paths.
	MaxPath = 64

	// MaxPayload bounds the payload blob, independent of path length.
	MaxPayload = 184

	// MaxPacketSize is the largest encoded packet this codec will ever
	// produce or accept, including the optional 2-byte transport code.
	MaxPacketSize = HeaderSize + 2 + PathLenFieldSize + MaxPath + MaxPayload

	// PubKeySize is the size of an identity's public key (and, after
	// Edwards->Montgomery conversion, its X25519 ECDH key).
	PubKeySize = 32

	// SignatureSize is the Ed25519 signature size.
	SignatureSize = 64

	// SharedSecretSize is the derived per-contact AEAD key size.
	SharedSecretSize = 32

	// AckHashSize is the truncated ACK / packet-hash width used for
	// duplicate suppression and delivery proof.
	AckHashSize = 4

	// MaxAdvertName bounds the advert app-data name field.
	MaxAdvertName = 31

	// MaxAdvertDataSize bounds the whole advert app-data blob.
	MaxAdvertDataSize = 1 + 4 + 4 + 1 + 1 + (MaxAdvertName + 1)
)

// Route types occupy the top 2 bits of the header byte.
const (
	RouteFlood byte = iota
	RouteDirect
	RouteResponse
	routeReserved
)

// Payload kinds occupy the next 4 bits of the header byte.
const (
	PayloadAdvert byte = iota
	PayloadReq
	PayloadResponse
	PayloadTxtMsg
	PayloadAck
	PayloadPath
	PayloadGroupTxt
	PayloadAnonReq
)

// Header flag bits occupy the low 2 bits.
const (
	FlagHasReturnPath     byte = 1 << 0
	FlagHasTransportCodes byte = 1 << 1
)

// Advertisement kinds (the original firmware's ADV_TYPE_*). App-data has
// no dedicated type byte; the session layer reads the kind from app-data's
// Feature1 byte when present and assumes AdvertTypeChat otherwise.
const (
	AdvertTypeChat     byte = 1
	AdvertTypeRepeater byte = 2
	AdvertTypeRoom     byte = 3
)

// App-data presence-flag bits, in the fixed order the wire format demands.
const (
	AppFlagHasName byte = 1 << iota
	AppFlagHasLat
	AppFlagHasLon
	AppFlagHasFeature1
	AppFlagHasFeature2
)

// Path-return extra-payload tags. A path-return packet's decrypted
// plaintext may carry a piggybacked payload after the traversed-path
// list; this byte says what kind it is. Only PathExtraAck exists today,
// but the tag leaves room for future piggyback kinds without a wire
// break.
const (
	PathExtraNone byte = iota
	PathExtraAck
)
