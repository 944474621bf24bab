package allocator

import "errors"

// Sentinel errors returned by the public surface. Every public method
// reports failures locally through one of these (wrapped with fmt.Errorf
// where extra context helps) or through a nil/zero return; there is no
// retry and no out-of-band error channel.
var (
	ErrNilBuffer      = errors.New("allocator: buffer is nil")
	ErrBufferTooSmall = errors.New("allocator: buffer too small for arena header and one region")
	ErrNoPayloadRoom  = errors.New("allocator: aligned first region leaves no payload room")
	ErrBadAlignment   = errors.New("allocator: minimum alignment must be a power of two")
	ErrBadMagic       = errors.New("allocator: buffer magic does not match configured magic")
	ErrCorrupt        = errors.New("allocator: arena failed validation")
)

// InitCode mirrors the reference implementation's negative status-code
// contract (see §6 of the design: 0 on success, negative codes for
// specific init failures). New reports its failures as the errors above
// and does not return these negative codes.
type InitCode int

const (
	CodeOK            InitCode = 0
	CodeNullBuffer    InitCode = -1
	CodeTooSmall      InitCode = -2
	CodeNoPayloadRoom InitCode = -3
)
