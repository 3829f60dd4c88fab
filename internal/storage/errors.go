package storage

import "fmt"

// Kind identifies the conceptual category of a storage failure, mirrored
// one-to-one onto the dispatcher's error envelope.
type Kind string

const (
	KindInvalidPath      Kind = "InvalidPath"
	KindInvalidName      Kind = "InvalidName"
	KindNotFound         Kind = "NotFound"
	KindAlreadyExists    Kind = "AlreadyExists"
	KindIsDirectory      Kind = "IsDirectory"
	KindNotADirectory    Kind = "NotADirectory"
	KindUnsupportedKind  Kind = "UnsupportedKind"
	KindInvalidOperation Kind = "InvalidOperation"
	KindDecodeError      Kind = "DecodeError"
	KindBackend          Kind = "Backend"
)

// Error is the storage engine's error type. It never wraps a caller into
// having to string-match messages: callers switch on Kind.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Msg, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s (%s)", e.Msg, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindLabel exposes Kind as a bare string for metrics labelling without
// giving internal/metrics a dependency on the storage package's types.
func (e *Error) KindLabel() string { return string(e.Kind) }

func newErr(kind Kind, path, msg string) *Error {
	return &Error{Kind: kind, Path: path, Msg: msg}
}

func wrapBackend(msg string, err error) *Error {
	return &Error{Kind: KindBackend, Msg: msg, Err: err}
}

// NewDecodeError wraps a caller-side decode failure (such as invalid
// base64 content on write_file) as a KindDecodeError so it travels
// through the same error projection as every other storage failure
// instead of short-circuiting as a bare string. The decoder's own message
// is kept in Msg. The dispatcher rejects such content before any engine
// call, so no write_file operation is recorded in metrics for it.
func NewDecodeError(path string, err error) *Error {
	return &Error{Kind: KindDecodeError, Path: path, Msg: "could not decode content (" + err.Error() + ")", Err: err}
}
