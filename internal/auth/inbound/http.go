package inbound

import (
	"context"

	"github.com/souqify/auth-service/internal/auth/usecase"
	"github.com/souqify/auth-service/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) error
	RegisterVerify(ctx context.Context, in usecase.RegisterVerifyInput) error

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)

	PasswordForgot(ctx context.Context, in usecase.PasswordForgotInput) error
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/auth/register", end.Register)
	r.POST("/api/v1/auth/register/verify", end.RegisterVerify)
	r.POST("/api/v1/auth/login", end.Login)

	// Password Management
	r.POST("/api/v1/auth/password/forgot", end.PasswordForgot)
	r.POST("/api/v1/auth/password/reset", end.PasswordReset)
}
