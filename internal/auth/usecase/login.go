package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
)

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	ID    int64
	Name  string
	Email string
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = otp.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness(msgInvalidLogin, goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !user.HasPassword() || !s.bcrypt.Verify(user.Password, in.Password) {
		slog.WarnContext(ctx, "login rejected", "email", in.Email)
		return nil, goerror.NewBusiness(msgInvalidLogin, goerror.CodeUnauthorized)
	}

	return &LoginOutput{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}
