package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/ttlstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const flagValue = "true"

// Dependency lists what an Engine needs.
type Dependency struct {
	Store      ttlstore.Store
	Notifier   Notifier
	Generator  CodeGenerator
	Instrument instrument.Instrumentation
	Policy     Policy
}

// RequestInput is a request for a new code.
type RequestInput struct {
	Email   string
	Purpose Purpose
	// Name and Data are passed through to the Notifier.
	Name string
	Data map[string]any
}

// Engine issues and verifies codes. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	store    ttlstore.Store
	admitter ttlstore.Admitter
	notifier Notifier
	gen      CodeGenerator
	policy   Policy
	tracer   trace.Tracer

	requests      metric.Int64Counter
	verifications metric.Int64Counter
}

// New builds an Engine. The atomic admission path is used when the policy asks
// for it and the store implements ttlstore.Admitter.
func New(dep Dependency) (*Engine, error) {
	if dep.Store == nil || dep.Notifier == nil || dep.Generator == nil {
		return nil, errors.New("otp: store, notifier and generator are required")
	}
	if err := dep.Policy.validate(); err != nil {
		return nil, fmt.Errorf("otp: invalid policy: %w", err)
	}

	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}
	meter := ins.Meter("otp.engine")

	requests, err := meter.Int64Counter("otp.requests", metric.WithDescription("OTP requests by outcome"))
	if err != nil {
		return nil, err
	}
	verifications, err := meter.Int64Counter("otp.verifications", metric.WithDescription("OTP verifications by outcome"))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:         dep.Store,
		notifier:      dep.Notifier,
		gen:           dep.Generator,
		policy:        dep.Policy,
		tracer:        ins.Tracer("otp.engine"),
		requests:      requests,
		verifications: verifications,
	}
	if a, ok := dep.Store.(ttlstore.Admitter); ok && dep.Policy.AtomicAdmission {
		e.admitter = a
	}

	return e, nil
}

// RequestCode issues a code for in.Email and hands it to the Notifier.
//
// It returns nil when the code was issued and delivered, or an *Error of kind
// KindLocked, KindCoolingOff, KindStoreUnavailable or KindDeliveryError. On
// KindDeliveryError the code, cooloff and counter are already written.
func (e *Engine) RequestCode(ctx context.Context, in RequestInput) (err error) {
	email := NormalizeEmail(in.Email)

	ctx, span := e.tracer.Start(ctx, "otp.RequestCode", trace.WithAttributes(
		attribute.String("otp.purpose", string(in.Purpose)),
	))
	defer func() {
		outcome := outcomeOf(err, "accepted")
		e.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		endSpan(span, outcome, err)
	}()

	k := keysFor(email)

	var decision ttlstore.Decision
	if e.admitter != nil {
		decision, err = e.admitAtomic(ctx, k)
	} else {
		decision, err = e.admitStepwise(ctx, k)
	}
	if err != nil {
		return err
	}

	switch decision {
	case ttlstore.Locked:
		return ErrLocked
	case ttlstore.CoolingOff:
		return ErrCoolingOff
	}

	return e.issue(ctx, k, email, in)
}

func (e *Engine) admitAtomic(ctx context.Context, k keys) (ttlstore.Decision, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	d, err := e.admitter.Admit(sctx, ttlstore.AdmitRequest{
		LockKey:     k.lock,
		CooloffKey:  k.cooloff,
		CounterKey:  k.counter,
		MaxRequests: e.policy.MaxRequests,
		Window:      e.policy.Window,
		LockFor:     e.policy.LockFor,
	})
	if err != nil {
		return d, storeErr(err)
	}
	if d == ttlstore.Locked {
		slog.DebugContext(ctx, "otp request rejected by lock", "key", k.lock)
	}
	return d, nil
}

// admitStepwise runs the same checks as ttlstore.Admitter with separate store
// calls. Two callers may read the same counter value and both be admitted.
func (e *Engine) admitStepwise(ctx context.Context, k keys) (ttlstore.Decision, error) {
	locked, err := e.exists(ctx, k.lock)
	if err != nil {
		return ttlstore.Admitted, err
	}
	if locked {
		return ttlstore.Locked, nil
	}

	count, err := e.counter(ctx, k.counter)
	if err != nil {
		return ttlstore.Admitted, err
	}
	if count >= e.policy.MaxRequests {
		if err := e.set(ctx, k.lock, flagValue, e.policy.LockFor); err != nil {
			return ttlstore.Admitted, err
		}
		slog.InfoContext(ctx, "otp lock engaged", "key", k.lock, "count", count)
		return ttlstore.Locked, nil
	}

	coolingOff, err := e.exists(ctx, k.cooloff)
	if err != nil {
		return ttlstore.Admitted, err
	}
	if coolingOff {
		return ttlstore.CoolingOff, nil
	}

	window := e.policy.Window
	if count > 0 {
		remaining, found, err := e.ttl(ctx, k.counter)
		if err != nil {
			return ttlstore.Admitted, err
		}
		if found {
			window = remaining
		}
	}

	if err := e.set(ctx, k.counter, strconv.Itoa(count+1), window); err != nil {
		return ttlstore.Admitted, err
	}
	return ttlstore.Admitted, nil
}

func (e *Engine) issue(ctx context.Context, k keys, email string, in RequestInput) error {
	code, err := e.gen.Generate()
	if err != nil {
		return fmt.Errorf("otp: generate code: %w", err)
	}

	if err := e.set(ctx, k.code, code, e.policy.CodeTTL); err != nil {
		return err
	}
	if err := e.set(ctx, k.cooloff, flagValue, e.policy.Cooloff); err != nil {
		return err
	}

	nctx, cancel := withTimeout(ctx, e.policy.NotifyTimeout)
	defer cancel()

	err = e.notifier.Notify(nctx, Notification{
		Destination: email,
		Code:        code,
		Email:       email,
		Purpose:     in.Purpose,
		Name:        in.Name,
		TTL:         e.policy.CodeTTL,
		Data:        in.Data,
	})
	if err != nil {
		return &Error{Kind: KindDeliveryError, Err: err}
	}
	return nil
}

// VerifyCode checks code against the active code for email.
//
// It returns nil and clears every key of email on a match, or an *Error of kind
// KindInvalidCode (wrong or expired code) or KindStoreUnavailable.
func (e *Engine) VerifyCode(ctx context.Context, email, code string) (err error) {
	email = NormalizeEmail(email)

	ctx, span := e.tracer.Start(ctx, "otp.VerifyCode")
	defer func() {
		outcome := outcomeOf(err, "verified")
		e.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		endSpan(span, outcome, err)
	}()

	k := keysFor(email)

	stored, found, err := e.get(ctx, k.code)
	if err != nil {
		return err
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.store.DeleteAll(sctx, k.all()...); err != nil {
		return storeErr(err)
	}
	return nil
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, e.policy.StoreTimeout)
}

func (e *Engine) get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := e.storeCtx(ctx)
	defer cancel()

	v, found, err := e.store.Get(ctx, key)
	if err != nil {
		return "", false, storeErr(err)
	}
	return v, found, nil
}

func (e *Engine) exists(ctx context.Context, key string) (bool, error) {
	_, found, err := e.get(ctx, key)
	return found, err
}

func (e *Engine) counter(ctx context.Context, key string) (int, error) {
	v, found, err := e.get(ctx, key)
	if err != nil || !found {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, storeErr(fmt.Errorf("corrupt counter %q: %w", key, err))
	}
	return n, nil
}

func (e *Engine) ttl(ctx context.Context, key string) (time.Duration, bool, error) {
	ctx, cancel := e.storeCtx(ctx)
	defer cancel()

	d, found, err := e.store.TTL(ctx, key)
	if err != nil {
		return 0, false, storeErr(err)
	}
	return d, found, nil
}

func (e *Engine) set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.store.Set(ctx, key, value, ttl); err != nil {
		return storeErr(err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func outcomeOf(err error, success string) string {
	if err == nil {
		return success
	}
	if k := KindOf(err); k != KindUnknown {
		return k.String()
	}
	return "error"
}

func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("otp.outcome", outcome))

	switch KindOf(err) {
	case KindStoreUnavailable, KindDeliveryError, KindUnknown:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}
	span.End()
}
