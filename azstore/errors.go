package azstore

import "fmt"

// Kind classifies an Error for callers and for the retry loop.
type Kind int

// Error kinds
const (
	KindUnknown Kind = iota
	KindTransient
	KindPermanent
	KindAuth
	KindNotFound
	KindConflict
	KindMalformed
	KindTimeout
	KindNetwork
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "Transient"
	case KindPermanent:
		return "Permanent"
	case KindAuth:
		return "Auth"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindMalformed:
		return "Malformed"
	case KindTimeout:
		return "Timeout"
	case KindNetwork:
		return "Network"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the uniform error type surfaced by this package. It
// implements Temporary()/Timeout() so callers (and the retry loop) can
// use the same duck-typed interface retry policies conventionally
// check against.
type Error struct {
	Kind       Kind
	Code       string // e.g. "InternalError", "ServerBusy", "ErrorWithoutCode"
	Message    string
	StatusCode int // 0 if the HTTP layer was never reached
	Retries    int // retries made (attempts after the first) at the point of failure
	Detail     string
	Err        error // wrapped lower-level error, if any
}

// Name is Code+"Error"
func (e *Error) Name() string { return e.Code + "Error" }

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("azstore: %s (code=%s, status=%d, retries=%d): %s", e.Kind, e.Code, e.StatusCode, e.Retries, e.Message)
	}
	return fmt.Sprintf("azstore: %s (code=%s, retries=%d): %s", e.Kind, e.Code, e.Retries, e.Message)
}

// Unwrap exposes the wrapped lower-level error for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether a retry is ever worth attempting for this
// kind of error in isolation (the actual retry decision also consults
// the configured transient-code set; see shouldRetryClassified).
func (e *Error) Temporary() bool {
	return e.Kind == KindTransient || e.Kind == KindTimeout || e.Kind == KindNetwork
}

// Timeout reports whether this error represents a client-side timeout.
func (e *Error) Timeout() bool { return e.Kind == KindTimeout }

// newError is a small constructor helper.
func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// withErr attaches a wrapped lower-level cause to e, returning e.
func withErr(e *Error, cause error) *Error {
	e.Err = cause
	return e
}
