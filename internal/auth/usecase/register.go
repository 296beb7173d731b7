package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
)

type RegisterInput struct {
	Name  string `validate:"required,min=1,max=120"`
	Email string `validate:"required,email"`
}

// Register sends a verification code to an email that has no account yet.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) error {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = otp.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	_, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return goerror.NewBusiness(msgUserExists, goerror.CodeConflict)
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.otp.RequestCode(ctx, otp.RequestInput{
		Email:   in.Email,
		Purpose: otp.PurposeRegister,
		Name:    in.Name,
	}); err != nil {
		return mapOTPError(ctx, err)
	}

	return nil
}
