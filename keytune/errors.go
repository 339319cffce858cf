package keytune

import (
	"errors"
	"fmt"
)

// Kind classifies user-facing failures.
type Kind int

const (
	// KindUnknown marks errors that are not one of the kinds below.
	KindUnknown Kind = iota
	// KindInvalidAudio: empty or corrupt samples, or a non-positive rate.
	KindInvalidAudio
	// KindDecode: the container or codec could not produce samples.
	KindDecode
	// KindUnknownKey: the requested key is not a pitch class name.
	KindUnknownKey
	// KindNotAnalyzed: retuning was requested without an analysis.
	KindNotAnalyzed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAudio:
		return "InvalidAudio"
	case KindDecode:
		return "DecodeError"
	case KindUnknownKey:
		return "UnknownKey"
	case KindNotAnalyzed:
		return "NotAnalyzed"
	default:
		return "Unknown"
	}
}

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is; any *Error of the same kind matches.
var (
	ErrInvalidAudio = &Error{Kind: KindInvalidAudio, Msg: "invalid audio"}
	ErrDecode       = &Error{Kind: KindDecode, Msg: "could not decode audio"}
	ErrUnknownKey   = &Error{Kind: KindUnknownKey, Msg: "unknown key"}
	ErrNotAnalyzed  = &Error{Kind: KindNotAnalyzed, Msg: "no analysis available"}
)

// NewError returns an *Error of kind wrapping err.
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keytune: %s: %v", e.Msg, e.Err)
	}
	return "keytune: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
