package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
)

type PasswordForgotInput struct {
	Email string `validate:"required,email"`
}

// PasswordForgot sends a reset code when an account exists. Unknown emails
// succeed without sending anything, so the response does not reveal accounts.
func (s *Usecase) PasswordForgot(ctx context.Context, in PasswordForgotInput) error {
	ctx, span := s.startSpan(ctx, "PasswordForgot")
	defer span.End()

	in.Email = otp.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.otp.RequestCode(ctx, otp.RequestInput{
		Email:   user.Email,
		Purpose: otp.PurposePasswordReset,
		Name:    user.Name,
	}); err != nil {
		return mapOTPError(ctx, err)
	}

	return nil
}
