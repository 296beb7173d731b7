package inbound

import (
	"fmt"
	"net/http"
)

type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RegisterResponse struct {
	email string
}

func (r RegisterResponse) Message() string {
	return fmt.Sprintf("OTP sent to %s. Please verify your email.", r.email)
}

type RegisterVerifyRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type RegisterVerifyResponse struct{}

func (RegisterVerifyResponse) Message() string {
	return "Registration complete. You can now log in."
}

func (RegisterVerifyResponse) StatusCode() int {
	return http.StatusCreated
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID    int64  `json:"id,string"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (LoginResponse) Message() string {
	return "Login successful"
}

type PasswordForgotRequest struct {
	Email string `json:"email"`
}

type PasswordForgotResponse struct{}

func (PasswordForgotResponse) Message() string {
	return "If an account exists for this email, you will receive a reset code."
}

type PasswordResetRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type PasswordResetResponse struct{}

func (PasswordResetResponse) Message() string {
	return "Password has been reset. You can now log in."
}
