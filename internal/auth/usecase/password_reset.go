package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
)

type PasswordResetInput struct {
	Email    string `validate:"required,email"`
	OTP      string `validate:"required,otp"`
	Password string `validate:"required,password"`
}

func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	in.Email = otp.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewInvalidFormat(msgInvalidReset)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.otp.VerifyCode(ctx, user.Email, in.OTP); err != nil {
		return mapOTPError(ctx, err)
	}

	hashed, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.UpdateUserPassword(ctx, user.Email, string(hashed)); err != nil {
		slog.ErrorContext(ctx, "failed to repo update user password", "email", user.Email, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
