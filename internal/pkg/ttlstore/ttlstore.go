// Package ttlstore is a key-value store with per-entry expiry.
//
// Store is the narrow port the OTP engine depends on. Redis is the production
// adapter; it also implements Admitter, which runs the whole request admission
// check as one server-side script.
package ttlstore

import (
	"context"
	"time"
)

// Store is a key-value store whose entries expire.
type Store interface {
	// Get returns the value for key. found is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set writes value and replaces any previous expiry with ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// TTL returns the time left before key expires. found is false when the key
	// is absent or has no expiry.
	TTL(ctx context.Context, key string) (remaining time.Duration, found bool, err error)
	// DeleteAll removes every key in one operation. Missing keys are ignored.
	DeleteAll(ctx context.Context, keys ...string) error
}

// Decision is the outcome of an admission check.
type Decision int

const (
	// Admitted means the request may proceed; the counter was incremented.
	Admitted Decision = iota
	// Locked means the identity is locked, either already or by this call.
	Locked
	// CoolingOff means a request was served too recently.
	CoolingOff
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Locked:
		return "locked"
	case CoolingOff:
		return "cooling_off"
	default:
		return "unknown"
	}
}

// AdmitRequest names the keys and limits of one admission check.
type AdmitRequest struct {
	LockKey    string
	CooloffKey string
	CounterKey string
	// MaxRequests is the number of admitted requests allowed per window.
	MaxRequests int
	// Window is the counter lifetime, started by the first admitted request.
	Window time.Duration
	// LockFor is the lock lifetime set when MaxRequests is reached.
	LockFor time.Duration
}

// Admitter runs an admission check atomically:
//
//  1. lock present: Locked
//  2. counter >= MaxRequests: set the lock, Locked
//  3. cooloff present: CoolingOff
//  4. increment the counter, keeping its expiry or starting a fresh Window: Admitted
type Admitter interface {
	Admit(ctx context.Context, req AdmitRequest) (Decision, error)
}
