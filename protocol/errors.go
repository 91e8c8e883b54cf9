package protocol

import "errors"

// ErrMalformed is returned by Decode/Parse on short buffers or unknown
// mandatory flags — spec.md §7's Malformed kind, scoped to wire decoding.
// A bad advertisement signature is ErrAuthFail, not ErrMalformed.
var ErrMalformed = errors.New("protocol: malformed packet")

// ErrAuthFail is returned by Open when the AEAD tag does not verify, and
// by advertisement verification when the Ed25519 signature does not
// match. Distinct from ErrMalformed: the bytes were well-formed, they
// just didn't authenticate.
var ErrAuthFail = errors.New("protocol: authentication failed")
