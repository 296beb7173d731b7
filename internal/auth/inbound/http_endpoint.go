package inbound

import (
	"github.com/souqify/auth-service/internal/auth/usecase"
	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/router"
)

// HTTPEndpoint exposes the registration, login and password reset handlers.
type HTTPEndpoint struct {
	uc uc
}

// Register sends a verification code for a new account.
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Name:  req.Name,
		Email: req.Email,
	}); err != nil {
		return nil, err
	}

	return RegisterResponse{email: otp.NormalizeEmail(req.Email)}, nil
}

// RegisterVerify creates the account once the code checks out.
func (h *HTTPEndpoint) RegisterVerify(r *router.Request) (any, error) {
	var req RegisterVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	err := h.uc.RegisterVerify(r.Context(), usecase.RegisterVerifyInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		return nil, err
	}

	return RegisterVerifyResponse{}, nil
}

func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		ID:    resp.ID,
		Name:  resp.Name,
		Email: resp.Email,
	}, nil
}

// PasswordForgot answers the same way whether or not the account exists.
func (h *HTTPEndpoint) PasswordForgot(r *router.Request) (any, error) {
	var req PasswordForgotRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordForgot(r.Context(), usecase.PasswordForgotInput{
		Email: req.Email,
	}); err != nil {
		return nil, err
	}

	return PasswordForgotResponse{}, nil
}

func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:    req.Email,
		OTP:      req.OTP,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return PasswordResetResponse{}, nil
}
