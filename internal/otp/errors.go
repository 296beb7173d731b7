package otp

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected RequestCode or VerifyCode call.
type Kind int

const (
	// KindUnknown is reported by KindOf for nil and foreign errors.
	KindUnknown Kind = iota
	KindLocked
	KindCoolingOff
	KindInvalidCode
	KindStoreUnavailable
	KindDeliveryError
)

func (k Kind) String() string {
	switch k {
	case KindLocked:
		return "locked"
	case KindCoolingOff:
		return "cooling_off"
	case KindInvalidCode:
		return "invalid_code"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindDeliveryError:
		return "delivery_error"
	default:
		return "unknown"
	}
}

// Error is returned by the Engine. Err holds the underlying cause, if any.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "otp: " + e.Kind.String()
	}
	return fmt.Sprintf("otp: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so
// errors.Is(err, ErrLocked) holds for any locked error regardless of cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrLocked           = &Error{Kind: KindLocked}
	ErrCoolingOff       = &Error{Kind: KindCoolingOff}
	ErrInvalidCode      = &Error{Kind: KindInvalidCode}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrDeliveryError    = &Error{Kind: KindDeliveryError}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func storeErr(err error) error {
	return &Error{Kind: KindStoreUnavailable, Err: err}
}
