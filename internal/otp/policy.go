package otp

import (
	"errors"
	"time"

	"github.com/souqify/auth-service/internal/pkg/config"
)

// Policy holds the throttling limits and the I/O timeouts of an Engine.
type Policy struct {
	CodeTTL     time.Duration
	Cooloff     time.Duration
	Window      time.Duration
	MaxRequests int
	LockFor     time.Duration

	// StoreTimeout bounds each store call. Zero means the caller context only.
	StoreTimeout time.Duration
	// NotifyTimeout bounds the Notifier call. Zero means the caller context only.
	NotifyTimeout time.Duration

	// AtomicAdmission runs the admission checks as one store-side operation
	// when the store implements ttlstore.Admitter. With it off, concurrent
	// requests for one email may each read the same counter and the limit
	// becomes approximate.
	AtomicAdmission bool
}

// DefaultPolicy returns 5 minute codes, a 1 minute cooloff and 3 requests per
// 15 minute window followed by a 1 hour lock.
func DefaultPolicy() Policy {
	return Policy{
		CodeTTL:         5 * time.Minute,
		Cooloff:         time.Minute,
		Window:          15 * time.Minute,
		MaxRequests:     3,
		LockFor:         time.Hour,
		StoreTimeout:    3 * time.Second,
		NotifyTimeout:   15 * time.Second,
		AtomicAdmission: true,
	}
}

// NewPolicy reads the policy from the modules.otp section of cfg.
func NewPolicy(cfg config.Config) Policy {
	return Policy{
		CodeTTL:         cfg.GetSecond("modules.otp.code_ttl_seconds"),
		Cooloff:         cfg.GetSecond("modules.otp.cooloff_seconds"),
		Window:          cfg.GetSecond("modules.otp.request_window_seconds"),
		MaxRequests:     cfg.GetInt("modules.otp.max_requests_per_window"),
		LockFor:         cfg.GetSecond("modules.otp.lock_seconds"),
		StoreTimeout:    cfg.GetSecond("modules.otp.store_timeout_seconds"),
		NotifyTimeout:   cfg.GetSecond("modules.otp.notify_timeout_seconds"),
		AtomicAdmission: cfg.GetBool("modules.otp.atomic_admission"),
	}
}

func (p Policy) validate() error {
	var errs []error
	if p.CodeTTL <= 0 {
		errs = append(errs, errors.New("code ttl must be positive"))
	}
	if p.Cooloff <= 0 {
		errs = append(errs, errors.New("cooloff must be positive"))
	}
	if p.Window <= 0 {
		errs = append(errs, errors.New("request window must be positive"))
	}
	if p.MaxRequests <= 0 {
		errs = append(errs, errors.New("max requests must be positive"))
	}
	if p.LockFor <= 0 {
		errs = append(errs, errors.New("lock duration must be positive"))
	}
	if p.StoreTimeout < 0 || p.NotifyTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
