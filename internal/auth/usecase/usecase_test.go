package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/souqify/auth-service/internal/auth/entity"
	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
	"github.com/souqify/auth-service/internal/pkg/hash"
	"github.com/souqify/auth-service/internal/pkg/idempotency"
	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/validator"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockRepo) CreateUser(ctx context.Context, in entity.NewUser) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockRepo) UpdateUserPassword(ctx context.Context, email, hash string) error {
	return m.Called(ctx, email, hash).Error(0)
}

type mockOTP struct{ mock.Mock }

func (m *mockOTP) RequestCode(ctx context.Context, in otp.RequestInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockOTP) VerifyCode(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

type fixedID int64

func (f fixedID) Generate() int64 { return int64(f) }

type fixture struct {
	uc    *Usecase
	repo  *mockRepo
	otp   *mockOTP
	redis *miniredis.Miniredis
	hash  hash.Hash
}

func setup(t *testing.T) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		repo:  &mockRepo{},
		otp:   &mockOTP{},
		redis: mr,
		hash:  hash.NewBcrypt(bcrypt.MinCost, "pepper"),
	}
	f.uc = New(Dependency{
		RepoDB:      f.repo,
		OTP:         f.otp,
		Idempotency: idempotency.New(client),
		Validator:   v,
		Bcrypt:      f.hash,
		UID:         fixedID(99),
		Instrument:  instrument.NewNoop(),
	})
	t.Cleanup(func() {
		f.repo.AssertExpectations(t)
		f.otp.AssertExpectations(t)
	})
	return f
}

func assertStatus(t *testing.T, err error, status int, msg string) {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, status, gerr.StatusCode())
	if msg != "" {
		assert.Equal(t, msg, gerr.Msg())
	}
}

func TestMapOTPError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"locked", otp.ErrLocked, http.StatusTooManyRequests, msgLocked},
		{"cooling off", otp.ErrCoolingOff, http.StatusTooManyRequests, msgCoolingOff},
		{"invalid code", otp.ErrInvalidCode, http.StatusBadRequest, msgInvalidOTP},
		{"store unavailable", &otp.Error{Kind: otp.KindStoreUnavailable, Err: errors.New("dial tcp")}, http.StatusServiceUnavailable, msgCacheUnavailable},
		{"delivery", &otp.Error{Kind: otp.KindDeliveryError, Err: errors.New("smtp 421")}, http.StatusInternalServerError, ""},
		{"unknown", errors.New("rand failed"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertStatus(t, mapOTPError(ctx, tt.err), tt.status, tt.msg)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Run("sends code to normalized email", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, goerror.ErrNotFound)
		f.otp.On("RequestCode", mock.Anything, otp.RequestInput{
			Email: "ann@x.com", Purpose: otp.PurposeRegister, Name: "Ann",
		}).Return(nil)

		err := f.uc.Register(context.Background(), RegisterInput{Name: " Ann ", Email: "  Ann@X.com "})
		assert.NoError(t, err)
	})

	t.Run("existing user", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(&entity.User{ID: 1}, nil)

		err := f.uc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "ann@x.com"})
		assertStatus(t, err, http.StatusConflict, msgUserExists)
	})

	t.Run("validation", func(t *testing.T) {
		f := setup(t)

		err := f.uc.Register(context.Background(), RegisterInput{Name: "", Email: "not-an-email"})
		assertStatus(t, err, http.StatusUnprocessableEntity, "")

		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Values(), "email")
		assert.Contains(t, verr.Values(), "name")
	})

	t.Run("repo failure", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, errors.New("conn reset"))

		err := f.uc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "ann@x.com"})
		assertStatus(t, err, http.StatusInternalServerError, "")
	})

	t.Run("throttled", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, goerror.ErrNotFound)
		f.otp.On("RequestCode", mock.Anything, mock.Anything).Return(otp.ErrCoolingOff)

		err := f.uc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "ann@x.com"})
		assertStatus(t, err, http.StatusTooManyRequests, msgCoolingOff)
	})
}

func verifyInput() RegisterVerifyInput {
	return RegisterVerifyInput{Name: "Ann", Email: "Ann@x.com", Password: "secret1", OTP: "123456"}
}

func TestRegisterVerify(t *testing.T) {
	t.Run("creates user", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, goerror.ErrNotFound)
		f.otp.On("VerifyCode", mock.Anything, "ann@x.com", "123456").Return(nil)
		f.repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(in entity.NewUser) bool {
			return in.ID == 99 && in.Email == "ann@x.com" && in.Name == "Ann" &&
				f.hash.Verify(in.PasswordHash, "secret1")
		})).Return(nil).Once()

		require.NoError(t, f.uc.RegisterVerify(context.Background(), verifyInput()))

		err := f.uc.RegisterVerify(context.Background(), verifyInput())
		assertStatus(t, err, http.StatusConflict, msgUserExists)
	})

	t.Run("wrong code releases guard", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, goerror.ErrNotFound)
		f.otp.On("VerifyCode", mock.Anything, "ann@x.com", "123456").Return(otp.ErrInvalidCode)

		err := f.uc.RegisterVerify(context.Background(), verifyInput())
		assertStatus(t, err, http.StatusBadRequest, msgInvalidOTP)
		assert.False(t, f.redis.Exists("idempotency:register:ann@x.com"))
	})

	t.Run("in progress", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.redis.Set("idempotency:register:ann@x.com", "in_progress"))

		err := f.uc.RegisterVerify(context.Background(), verifyInput())
		assertStatus(t, err, http.StatusConflict, "")
	})

	t.Run("insert conflict", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, goerror.ErrNotFound)
		f.otp.On("VerifyCode", mock.Anything, "ann@x.com", "123456").Return(nil)
		f.repo.On("CreateUser", mock.Anything, mock.Anything).Return(goerror.ErrConflict)

		err := f.uc.RegisterVerify(context.Background(), verifyInput())
		assertStatus(t, err, http.StatusConflict, msgUserExists)
	})

	t.Run("guard store down", func(t *testing.T) {
		f := setup(t)
		f.redis.SetError("LOADING")

		err := f.uc.RegisterVerify(context.Background(), verifyInput())
		assertStatus(t, err, http.StatusServiceUnavailable, msgCacheUnavailable)
	})

	t.Run("validation", func(t *testing.T) {
		f := setup(t)
		in := verifyInput()
		in.Password = "12345"
		in.OTP = "12ab56"

		err := f.uc.RegisterVerify(context.Background(), in)
		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Values(), "password")
		assert.Contains(t, verr.Values(), "otp")
	})
}

func TestLogin(t *testing.T) {
	f := setup(t)
	hashed, err := f.hash.Hash("secret1")
	require.NoError(t, err)

	ann := &entity.User{ID: 7, Email: "ann@x.com", Name: "Ann", Password: string(hashed)}
	f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(ann, nil)
	f.repo.On("GetUserByEmail", mock.Anything, "bob@x.com").Return(&entity.User{ID: 8, Email: "bob@x.com"}, nil)
	f.repo.On("GetUserByEmail", mock.Anything, "nobody@x.com").Return(nil, goerror.ErrNotFound)

	out, err := f.uc.Login(context.Background(), LoginInput{Email: "ANN@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, &LoginOutput{ID: 7, Name: "Ann", Email: "ann@x.com"}, out)

	for _, in := range []LoginInput{
		{Email: "ann@x.com", Password: "wrong00"},
		{Email: "bob@x.com", Password: "secret1"},
		{Email: "nobody@x.com", Password: "secret1"},
	} {
		_, err := f.uc.Login(context.Background(), in)
		assertStatus(t, err, http.StatusUnauthorized, msgInvalidLogin)
	}
}

func TestPasswordForgot(t *testing.T) {
	t.Run("unknown email succeeds silently", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "nobody@x.com").Return(nil, goerror.ErrNotFound)

		assert.NoError(t, f.uc.PasswordForgot(context.Background(), PasswordForgotInput{Email: "nobody@x.com"}))
		f.otp.AssertNotCalled(t, "RequestCode", mock.Anything, mock.Anything)
	})

	t.Run("sends reset code", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").
			Return(&entity.User{ID: 7, Email: "ann@x.com", Name: "Ann"}, nil)
		f.otp.On("RequestCode", mock.Anything, otp.RequestInput{
			Email: "ann@x.com", Purpose: otp.PurposePasswordReset, Name: "Ann",
		}).Return(nil)

		assert.NoError(t, f.uc.PasswordForgot(context.Background(), PasswordForgotInput{Email: "ann@x.com"}))
	})

	t.Run("locked", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").
			Return(&entity.User{ID: 7, Email: "ann@x.com", Name: "Ann"}, nil)
		f.otp.On("RequestCode", mock.Anything, mock.Anything).Return(otp.ErrLocked)

		err := f.uc.PasswordForgot(context.Background(), PasswordForgotInput{Email: "ann@x.com"})
		assertStatus(t, err, http.StatusTooManyRequests, msgLocked)
	})
}

func TestPasswordReset(t *testing.T) {
	in := PasswordResetInput{Email: "ann@x.com", OTP: "654321", Password: "newpass"}
	ann := &entity.User{ID: 7, Email: "ann@x.com", Name: "Ann"}

	t.Run("updates password", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(ann, nil)
		f.otp.On("VerifyCode", mock.Anything, "ann@x.com", "654321").Return(nil)
		f.repo.On("UpdateUserPassword", mock.Anything, "ann@x.com", mock.MatchedBy(func(h string) bool {
			return f.hash.Verify(h, "newpass")
		})).Return(nil)

		assert.NoError(t, f.uc.PasswordReset(context.Background(), in))
	})

	t.Run("unknown email", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(nil, goerror.ErrNotFound)

		err := f.uc.PasswordReset(context.Background(), in)
		assertStatus(t, err, http.StatusBadRequest, msgInvalidReset)
	})

	t.Run("wrong code", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(ann, nil)
		f.otp.On("VerifyCode", mock.Anything, "ann@x.com", "654321").Return(otp.ErrInvalidCode)

		err := f.uc.PasswordReset(context.Background(), in)
		assertStatus(t, err, http.StatusBadRequest, msgInvalidOTP)
	})

	t.Run("store down", func(t *testing.T) {
		f := setup(t)
		f.repo.On("GetUserByEmail", mock.Anything, "ann@x.com").Return(ann, nil)
		f.otp.On("VerifyCode", mock.Anything, "ann@x.com", "654321").
			Return(&otp.Error{Kind: otp.KindStoreUnavailable, Err: context.DeadlineExceeded})

		err := f.uc.PasswordReset(context.Background(), in)
		assertStatus(t, err, http.StatusServiceUnavailable, msgCacheUnavailable)
	})
}
