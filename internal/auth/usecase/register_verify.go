package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/souqify/auth-service/internal/auth/entity"
	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
	"github.com/souqify/auth-service/internal/pkg/idempotency"
)

type RegisterVerifyInput struct {
	Name     string `validate:"required,min=1,max=120"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	OTP      string `validate:"required,otp"`
}

// RegisterVerify checks the code sent by Register and creates the account.
// Concurrent submissions for one email create the account at most once.
func (s *Usecase) RegisterVerify(ctx context.Context, in RegisterVerifyInput) error {
	ctx, span := s.startSpan(ctx, "RegisterVerify")
	defer span.End()

	in.Email = otp.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.idemp.Exec(ctx, "register:"+in.Email, func(ctx context.Context) error {
		return s.registerVerify(ctx, in)
	}, idempotency.WithLockDuration(30*time.Second), idempotency.WithStateTTL(time.Minute))

	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return goerror.NewBusiness("Registration is already being processed", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		return goerror.NewBusiness(msgUserExists, goerror.CodeConflict)
	case err == nil:
		return nil
	}

	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		return gerr
	}

	slog.ErrorContext(ctx, "failed to guard registration", "email", in.Email, "error", err)
	return goerror.NewUnavailable(err, msgCacheUnavailable)
}

func (s *Usecase) registerVerify(ctx context.Context, in RegisterVerifyInput) error {
	_, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return goerror.NewBusiness(msgUserExists, goerror.CodeConflict)
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.otp.VerifyCode(ctx, in.Email, in.OTP); err != nil {
		return mapOTPError(ctx, err)
	}

	hashed, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	err = s.repoDB.CreateUser(ctx, entity.NewUser{
		ID:           s.uid.Generate(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hashed),
	})
	if errors.Is(err, goerror.ErrConflict) {
		return goerror.NewBusiness(msgUserExists, goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
