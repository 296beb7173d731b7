package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/ttlstore"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

type sequenceGenerator struct {
	codes []string
	i     int
}

func (g *sequenceGenerator) Generate() (string, error) {
	if g.i >= len(g.codes) {
		return "", errors.New("out of codes")
	}
	c := g.codes[g.i]
	g.i++
	return c, nil
}

// stepwiseStore hides the Admitter method of the Redis adapter.
type stepwiseStore struct {
	ttlstore.Store
}

// failingDeleteStore keeps Admit but fails DeleteAll.
type failingDeleteStore struct {
	*ttlstore.Redis
}

func (failingDeleteStore) DeleteAll(context.Context, ...string) error {
	return errors.New("connection reset by peer")
}

type fixture struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	notifier *recordingNotifier
}

type modeCase struct {
	name  string
	store func(*ttlstore.Redis) ttlstore.Store
}

var admissionModes = []modeCase{
	{name: "atomic", store: func(r *ttlstore.Redis) ttlstore.Store { return r }},
	{name: "stepwise", store: func(r *ttlstore.Redis) ttlstore.Store { return stepwiseStore{r} }},
}

func newFixture(t *testing.T, wrap func(*ttlstore.Redis) ttlstore.Store, codes ...string) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	if len(codes) == 0 {
		codes = []string{"111111", "222222", "333333", "444444", "555555", "666666"}
	}

	notifier := &recordingNotifier{}
	engine, err := New(Dependency{
		Store:      wrap(ttlstore.NewRedis(client)),
		Notifier:   notifier,
		Generator:  &sequenceGenerator{codes: codes},
		Instrument: instrument.NewNoop(),
		Policy:     DefaultPolicy(),
	})
	require.NoError(t, err)

	return &fixture{engine: engine, mr: mr, notifier: notifier}
}

func (f *fixture) request(email string) error {
	return f.engine.RequestCode(context.Background(), RequestInput{Email: email, Purpose: PurposeRegister})
}

func TestEngine_ThrottleScenario(t *testing.T) {
	for _, mode := range admissionModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.store)
			email := "a@x.com"

			require.NoError(t, f.request(email), "t=0")

			f.mr.FastForward(70 * time.Second)
			require.NoError(t, f.request(email), "t=70s")

			f.mr.FastForward(70 * time.Second)
			require.NoError(t, f.request(email), "t=140s")

			f.mr.FastForward(10 * time.Second)
			err := f.request(email)
			assert.ErrorIs(t, err, ErrLocked, "t=150s")
			assert.Equal(t, time.Hour, f.mr.TTL("otp:locked:a@x.com"))

			f.mr.FastForward(3600 * time.Second)
			assert.NoError(t, f.request(email), "t=3750s")
			assert.Len(t, f.notifier.sent, 4)
		})
	}
}

func TestEngine_CooloffDoesNotCount(t *testing.T) {
	for _, mode := range admissionModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.store)
			email := "b@x.com"

			require.NoError(t, f.request(email))

			f.mr.FastForward(30 * time.Second)
			assert.ErrorIs(t, f.request(email), ErrCoolingOff)
			assert.ErrorIs(t, f.request(email), ErrCoolingOff)

			count, err := f.mr.Get("otp:requests:b@x.com")
			require.NoError(t, err)
			assert.Equal(t, "1", count)
			assert.Len(t, f.notifier.sent, 1)
		})
	}
}

func TestEngine_LockWinsOverCooloff(t *testing.T) {
	for _, mode := range admissionModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.store)

			require.NoError(t, f.mr.Set("otp:locked:d@x.com", "true"))
			require.NoError(t, f.mr.Set("otp:cooloff:d@x.com", "true"))

			assert.ErrorIs(t, f.request("d@x.com"), ErrLocked)
			assert.Empty(t, f.notifier.sent)
		})
	}
}

func TestEngine_CounterWindowNotExtended(t *testing.T) {
	for _, mode := range admissionModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.store)

			require.NoError(t, f.request("e@x.com"))
			assert.Equal(t, 15*time.Minute, f.mr.TTL("otp:requests:e@x.com"))

			f.mr.FastForward(70 * time.Second)
			require.NoError(t, f.request("e@x.com"))

			assert.Equal(t, 15*time.Minute-70*time.Second, f.mr.TTL("otp:requests:e@x.com"))
			assert.Equal(t, 5*time.Minute, f.mr.TTL("otp:e@x.com"))
			assert.Equal(t, time.Minute, f.mr.TTL("otp:cooloff:e@x.com"))
		})
	}
}

func TestEngine_NormalizesEmail(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)

	require.NoError(t, f.request("  Mixed@X.com "))

	n := f.notifier.last(t)
	assert.Equal(t, "mixed@x.com", n.Destination)
	assert.Equal(t, "mixed@x.com", n.Email)
	assert.Equal(t, PurposeRegister, n.Purpose)
	assert.Equal(t, 5*time.Minute, n.TTL)
	assert.True(t, f.mr.Exists("otp:mixed@x.com"))

	assert.NoError(t, f.engine.VerifyCode(context.Background(), "MIXED@x.com", n.Code))
}

func TestEngine_VerifyOnceThenInvalid(t *testing.T) {
	for _, mode := range admissionModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.store)
			ctx := context.Background()

			require.NoError(t, f.request("c@x.com"))
			code := f.notifier.last(t).Code

			require.NoError(t, f.engine.VerifyCode(ctx, "c@x.com", code))
			for _, key := range []string{"otp:c@x.com", "otp:cooloff:c@x.com", "otp:requests:c@x.com", "otp:locked:c@x.com"} {
				assert.False(t, f.mr.Exists(key), key)
			}

			assert.ErrorIs(t, f.engine.VerifyCode(ctx, "c@x.com", code), ErrInvalidCode)

			// a verified email starts over with no cooloff
			assert.NoError(t, f.request("c@x.com"))
		})
	}
}

func TestEngine_VerifyClearsLock(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)
	ctx := context.Background()

	require.NoError(t, f.request("l@x.com"))
	code := f.notifier.last(t).Code
	require.NoError(t, f.mr.Set("otp:locked:l@x.com", "true"))

	require.NoError(t, f.engine.VerifyCode(ctx, "l@x.com", code))
	assert.NoError(t, f.request("l@x.com"))
}

func TestEngine_SupersededCodeIsInvalid(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)
	ctx := context.Background()

	require.NoError(t, f.request("s@x.com"))
	first := f.notifier.last(t).Code

	f.mr.FastForward(61 * time.Second)
	require.NoError(t, f.request("s@x.com"))
	second := f.notifier.last(t).Code
	require.NotEqual(t, first, second)

	assert.ErrorIs(t, f.engine.VerifyCode(ctx, "s@x.com", first), ErrInvalidCode)
	assert.NoError(t, f.engine.VerifyCode(ctx, "s@x.com", second))
}

func TestEngine_ExpiredCodeIsInvalid(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)

	require.NoError(t, f.request("x@x.com"))
	code := f.notifier.last(t).Code

	f.mr.FastForward(5 * time.Minute)
	err := f.engine.VerifyCode(context.Background(), "x@x.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, KindInvalidCode, KindOf(err))
}

func TestEngine_WrongCodes(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)
	ctx := context.Background()

	require.NoError(t, f.request("w@x.com"))

	for _, code := range []string{"", "000000", "11111", "1111111"} {
		assert.ErrorIs(t, f.engine.VerifyCode(ctx, "w@x.com", code), ErrInvalidCode, "code %q", code)
	}
	assert.True(t, f.mr.Exists("otp:w@x.com"), "failed attempts keep the code")
}

func TestEngine_VerifyStoreOutage(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)

	require.NoError(t, f.request("o@x.com"))
	code := f.notifier.last(t).Code

	f.mr.SetError("LOADING Redis is loading the dataset in memory")

	err := f.engine.VerifyCode(context.Background(), "o@x.com", code)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
}

func TestEngine_VerifyDeleteFailure(t *testing.T) {
	f := newFixture(t, func(r *ttlstore.Redis) ttlstore.Store { return failingDeleteStore{r} })

	require.NoError(t, f.request("f@x.com"))
	code := f.notifier.last(t).Code

	err := f.engine.VerifyCode(context.Background(), "f@x.com", code)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorContains(t, err, "connection reset by peer")
	assert.True(t, f.mr.Exists("otp:f@x.com"))
}

func TestEngine_RequestStoreOutage(t *testing.T) {
	for _, mode := range admissionModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFixture(t, mode.store)
			f.mr.SetError("LOADING")

			err := f.request("o@x.com")
			assert.ErrorIs(t, err, ErrStoreUnavailable)
			assert.Empty(t, f.notifier.sent)
		})
	}
}

func TestEngine_DeliveryFailureKeepsState(t *testing.T) {
	f := newFixture(t, admissionModes[0].store)
	f.notifier.err = errors.New("smtp: 421 too busy")

	err := f.request("n@x.com")
	assert.ErrorIs(t, err, ErrDeliveryError)
	assert.ErrorContains(t, err, "421 too busy")

	assert.True(t, f.mr.Exists("otp:n@x.com"))
	assert.True(t, f.mr.Exists("otp:cooloff:n@x.com"))
	assert.ErrorIs(t, f.request("n@x.com"), ErrCoolingOff)
}

func TestEngine_GeneratorFailure(t *testing.T) {
	f := newFixture(t, admissionModes[0].store, "111111")
	require.NoError(t, f.request("g@x.com"))

	f.mr.FastForward(time.Minute)
	err := f.request("g@x.com")
	assert.ErrorContains(t, err, "out of codes")
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestEngine_CorruptCounter(t *testing.T) {
	f := newFixture(t, admissionModes[1].store)
	require.NoError(t, f.mr.Set("otp:requests:z@x.com", "not-a-number"))

	assert.ErrorIs(t, f.request("z@x.com"), ErrStoreUnavailable)
}

func TestEngine_StepwiseUsesPolicyFlag(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	policy := DefaultPolicy()
	policy.AtomicAdmission = false

	engine, err := New(Dependency{
		Store:     ttlstore.NewRedis(client),
		Notifier:  &recordingNotifier{},
		Generator: &sequenceGenerator{codes: []string{"123456"}},
		Policy:    policy,
	})
	require.NoError(t, err)
	assert.Nil(t, engine.admitter)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Dependency{})
	assert.Error(t, err)

	policy := DefaultPolicy()
	policy.MaxRequests = 0
	_, err = New(Dependency{
		Store:     stepwiseStore{},
		Notifier:  &recordingNotifier{},
		Generator: &sequenceGenerator{},
		Policy:    policy,
	})
	assert.ErrorContains(t, err, "max requests must be positive")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, KindLocked, KindOf(ErrLocked))

	wrapped := &Error{Kind: KindStoreUnavailable, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.NotErrorIs(t, wrapped, ErrInvalidCode)
	assert.Equal(t, "otp: store_unavailable: context deadline exceeded", wrapped.Error())
	assert.Equal(t, "otp: locked", ErrLocked.Error())
}
