package mp4

import "fmt"

// Code tags the kind of failure that occurred while reading, writing, or
// mutating an atom tree.
type Code int

const (
	// CodeOK indicates success.
	CodeOK Code = iota
	// CodeFileFormatError means the byte stream violates the ISO-BMFF
	// structure: a header declares a size smaller than the header itself,
	// a child atom count is inconsistent with the declared data size, a
	// payload failed to parse, or a required child/track is missing.
	CodeFileFormatError
	// CodeUnexpectedEOF means the underlying reader returned fewer bytes
	// than requested.
	CodeUnexpectedEOF
	// CodeWriteError means the underlying writer failed.
	CodeWriteError
	// CodeUnexpectedError means an impossible-state assertion failed (nil
	// stream, malformed UUID length, and similar invariant violations).
	CodeUnexpectedError
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeFileFormatError:
		return "FileFormatError"
	case CodeUnexpectedEOF:
		return "FileUnexpectedEof"
	case CodeWriteError:
		return "FileWriteError"
	case CodeUnexpectedError:
		return "UnexpectedError"
	default:
		return "UnknownCode"
	}
}

// Status is the atom-path error type: a tagged code plus the wrapped cause.
// Every read/write/mutate primitive in this package returns a Status instead
// of a bare error so callers can branch on Code without string matching.
type Status struct {
	Code Code
	err  error
}

// OK returns the zero-value success Status.
func OK() Status { return Status{Code: CodeOK} }

// Errorf builds a Status of the given kind from a format string.
func Errorf(code Code, format string, args ...interface{}) Status {
	return Status{Code: code, err: fmt.Errorf(format, args...)}
}

// Wrap builds a Status of the given kind around an existing error.
func Wrap(code Code, err error) Status {
	if err == nil {
		return OK()
	}
	return Status{Code: code, err: err}
}

// Ok reports whether the status represents success.
func (s Status) Ok() bool { return s.Code == CodeOK || s.err == nil }

// Error implements the error interface so a Status can be returned wherever
// plain errors are expected.
func (s Status) Error() string {
	if s.err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", s.Code, s.err)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (s Status) Unwrap() error { return s.err }
