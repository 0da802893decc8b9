package domain

import (
	"errors"
	"fmt"
)

// ErrKind categorizes failures so callers branch on kind rather than on
// concrete types.
type ErrKind uint8

const (
	KindKeyAgreement ErrKind = iota + 1
	KindPairing
	KindProtocol
	KindCipherOperation
	KindRepositoryNotInitialized
	KindRepositoryOperation
	KindNotFound
	KindTransport
)

var kindNames = map[ErrKind]string{
	KindKeyAgreement:             "key agreement",
	KindPairing:                  "pairing",
	KindProtocol:                 "protocol",
	KindCipherOperation:          "cipher operation",
	KindRepositoryNotInitialized: "repository not initialized",
	KindRepositoryOperation:      "repository operation",
	KindNotFound:                 "not found",
	KindTransport:                "transport",
}

// String returns a short human name for k.
func (k ErrKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrKind(%d)", uint8(k))
}

// Error is the error type returned by every public operation.
type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error from a message.
func NewError(kind ErrKind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// WrapError attaches kind and operation context to err.
func WrapError(kind ErrKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// StatusError reports a non-success engine status as a cipher operation
// failure.
func StatusError(op string, s Status, name string) *Error {
	return &Error{Kind: KindCipherOperation, Op: op, Err: fmt.Errorf("engine status %d (%s)", int(s), name)}
}

// IsKind reports whether err or anything it wraps is an *Error of kind.
// The outermost *Error decides.
func IsKind(err error, kind ErrKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or 0.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
