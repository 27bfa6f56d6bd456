package types

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Kind classifies an operation failure.
type Kind string

const (
	KindOutsideRoot       Kind = "outside_root"
	KindNotFound          Kind = "not_found"
	KindAlreadyExists     Kind = "already_exists"
	KindNotADirectory     Kind = "not_a_directory"
	KindNotAFile          Kind = "not_a_file"
	KindPermissionDenied  Kind = "permission_denied"
	KindFormatUnsupported Kind = "archive_format_unsupported"
	KindEmptyDirectory    Kind = "empty_directory"
	KindNoValidEntries    Kind = "no_valid_entries"
	KindTransport         Kind = "transport_error"
	KindInvalidArgument   Kind = "invalid_argument"
	KindInternal          Kind = "internal"
)

// Error is a classified operation failure. Path is always relative to the
// storage root and safe to show to clients.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the error text without the op/path prefix.
func (e *Error) Message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return defaultMessages[e.Kind]
}

var defaultMessages = map[Kind]string{
	KindOutsideRoot:       "path is outside the storage root",
	KindNotFound:          "not found",
	KindAlreadyExists:     "already exists",
	KindNotADirectory:     "not a directory",
	KindNotAFile:          "not a file",
	KindPermissionDenied:  "permission denied",
	KindFormatUnsupported: "archive format not supported",
	KindEmptyDirectory:    "directory is empty",
	KindNoValidEntries:    "no valid entries",
	KindTransport:         "malformed request",
	KindInvalidArgument:   "invalid argument",
	KindInternal:          "internal error",
}

// E builds a classified error.
func E(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds a classified error with a formatted cause.
func Errorf(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// New builds a classified error carrying the kind's default message.
func New(kind Kind, op, path string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: errors.New(defaultMessages[kind])}
}

// KindOf reports the Kind of err. Untyped filesystem errors are mapped by
// their sentinel; anything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return osKind(err)
}

// FromOS classifies an error returned by the os package. Already classified
// errors pass through unchanged.
func FromOS(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := osKind(err)
	cause := errors.Unwrap(err)
	var pe *fs.PathError
	if errors.As(err, &pe) {
		// Drop the absolute host path carried by *fs.PathError.
		cause = pe.Err
	}
	var le *os.LinkError
	if errors.As(err, &le) {
		cause = le.Err
	}
	if cause == nil {
		cause = err
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

func osKind(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, syscall.ENOTDIR):
		return KindNotADirectory
	case errors.Is(err, syscall.EISDIR):
		return KindNotAFile
	default:
		return KindInternal
	}
}

// MessageOf renders err for a client. Classified errors lose their op and
// path prefix; internal and unclassified errors collapse to a generic text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message()
	}
	return defaultMessages[KindInternal]
}
