package usecase

import (
	"context"
	"log/slog"

	"github.com/souqify/auth-service/internal/auth/entity"
	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/goerror"
	"github.com/souqify/auth-service/internal/pkg/hash"
	"github.com/souqify/auth-service/internal/pkg/idempotency"
	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/uid"
	"github.com/souqify/auth-service/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgLocked           = "Too many OTP requests. You are temporarily locked. Try again in 1 hour."
	msgCoolingOff       = "Please wait 1 minute before requesting another OTP."
	msgInvalidOTP       = "Invalid OTP"
	msgCacheUnavailable = "Cache temporarily unavailable. Please try again shortly."
	msgUserExists       = "User already exists"
	msgInvalidLogin     = "Invalid email or password"
	msgInvalidReset     = "Invalid or expired reset code."
)

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, in entity.NewUser) error
	UpdateUserPassword(ctx context.Context, email, hash string) error
}

type otpEngine interface {
	RequestCode(ctx context.Context, in otp.RequestInput) error
	VerifyCode(ctx context.Context, email, code string) error
}

type Usecase struct {
	repoDB    repoDB
	otp       otpEngine
	idemp     idempotency.Idempotency
	validator validator.Validator
	bcrypt    hash.Hash
	uid       uid.NumberID
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB      repoDB
	OTP         otpEngine
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Bcrypt      hash.Hash
	UID         uid.NumberID
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		otp:       dep.OTP,
		idemp:     dep.Idempotency,
		validator: dep.Validator,
		bcrypt:    dep.Bcrypt,
		uid:       dep.UID,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

// mapOTPError translates an engine rejection into the client-facing error.
func mapOTPError(ctx context.Context, err error) error {
	switch otp.KindOf(err) {
	case otp.KindLocked:
		return goerror.NewBusiness(msgLocked, goerror.CodeTooManyRequest)
	case otp.KindCoolingOff:
		return goerror.NewBusiness(msgCoolingOff, goerror.CodeTooManyRequest)
	case otp.KindInvalidCode:
		return goerror.NewInvalidFormat(msgInvalidOTP)
	case otp.KindStoreUnavailable:
		slog.ErrorContext(ctx, "otp store unavailable", "error", err)
		return goerror.NewUnavailable(err, msgCacheUnavailable)
	case otp.KindDeliveryError:
		slog.ErrorContext(ctx, "failed to deliver otp", "error", err)
		return goerror.NewServer(err)
	default:
		slog.ErrorContext(ctx, "failed to process otp", "error", err)
		return goerror.NewServer(err)
	}
}
