// Package idempotency guards an operation so that concurrent or repeated
// calls for the same key run it at most once while its state is remembered.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrInvalidState      = errors.New("invalid idempotency state")
)

// State is the remembered status of a keyed operation.
type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

// Idempotency runs fn once per key.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// Option tunes Exec.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress marker survives a crashed caller.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long a completed marker is kept.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

// StateTracker is a Redis-backed Idempotency.
//
// A failed fn releases the key so the caller can retry.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a StateTracker using keys prefixed with "idempotency:".
func New(client redis.UniversalClient) *StateTracker {
	return &StateTracker{client: client, prefix: "idempotency:"}
}

func (s *StateTracker) acquire(ctx context.Context, key string, lock time.Duration) (State, error) {
	fk := s.prefix + key

	ok, err := s.client.SetNX(ctx, fk, string(StateInProgress), lock).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return StateNone, nil
	}

	current, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.acquire(ctx, key, lock)
	}
	if err != nil {
		return "", err
	}

	switch State(current) {
	case StateInProgress, StateCompleted:
		return State(current), nil
	default:
		return "", ErrInvalidState
	}
}

// Exec runs fn unless another call for key is in progress or already completed.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, err := s.acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		return errors.Join(err, s.client.Del(context.WithoutCancel(ctx), s.prefix+key).Err())
	}

	return s.client.Set(ctx, s.prefix+key, string(StateCompleted), o.stateTTL).Err()
}
