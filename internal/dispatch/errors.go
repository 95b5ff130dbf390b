package dispatch

import "errors"

// Sentinel errors surfaced to clients as structured responses. None of
// these are fatal to the connection — only a transport-level I/O
// failure is (see cmd/matchd, which owns the connection lifecycle).
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateUsername    = errors.New("username already joined this session")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
)

// There is no ErrSymbolNotFound: Session.CreateBook is get-or-create, so
// a new-order request auto-vivifies a book for any symbol on first use
// rather than rejecting unknown ones. A sell against a symbol the
// session has never traded naturally fails ErrInsufficientPosition
// instead (the user's position in it is zero), which covers the same
// case spec.md's error table describes.
