// Package errkind defines the error kinds every bridge operation reports.
package errkind

import "errors"

var (
	// ErrNotFound implies a monitor id did not match any enumerated display.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument implies a caller-supplied value is outside the accepted set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPlatform implies the underlying OS display or input call failed.
	ErrPlatform = errors.New("platform error")

	// ErrEncode implies image serialization failed.
	ErrEncode = errors.New("encode error")

	// ErrBusy implies the capture queue is full.
	ErrBusy = errors.New("busy, please retry")
)

// Kind names reported across the IPC boundary.
const (
	KindNotFound        = "not_found"
	KindInvalidArgument = "invalid_argument"
	KindPlatform        = "platform_error"
	KindEncode          = "encode_error"
	KindBusy            = "busy"
	KindUnknown         = "error"
)

// Of classifies err into one of the Kind names.
func Of(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrPlatform):
		return KindPlatform
	case errors.Is(err, ErrEncode):
		return KindEncode
	case errors.Is(err, ErrBusy):
		return KindBusy
	default:
		return KindUnknown
	}
}

// FromKind returns the sentinel for a Kind name, or nil if the name is unknown.
func FromKind(kind string) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindPlatform:
		return ErrPlatform
	case KindEncode:
		return ErrEncode
	case KindBusy:
		return ErrBusy
	default:
		return nil
	}
}
