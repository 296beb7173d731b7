package auth

import (
	"fmt"

	"github.com/souqify/auth-service/internal/auth/inbound"
	"github.com/souqify/auth-service/internal/auth/outbound/db"
	"github.com/souqify/auth-service/internal/auth/outbound/email"
	"github.com/souqify/auth-service/internal/auth/usecase"
	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/clock"
	"github.com/souqify/auth-service/internal/pkg/config"
	"github.com/souqify/auth-service/internal/pkg/hash"
	"github.com/souqify/auth-service/internal/pkg/idempotency"
	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/mail"
	"github.com/souqify/auth-service/internal/pkg/router"
	"github.com/souqify/auth-service/internal/pkg/ttlstore"
	"github.com/souqify/auth-service/internal/pkg/uid"
	"github.com/souqify/auth-service/internal/pkg/validator"
)

type Dependency struct {
	DBConn        db.Conn                    `validate:"required"`
	Store         ttlstore.Store             `validate:"required"`
	Router        *router.Router             `validate:"required"`
	Idempotency   idempotency.Idempotency    `validate:"required"`
	Mail          mail.Mail                  `validate:"required"`
	Config        config.Config              `validate:"required"`
	Instrument    instrument.Instrumentation `validate:"required"`
	UID           uid.NumberID               `validate:"required"`
	Bcrypt        hash.Hash                  `validate:"required"`
	Clock         clock.Clocker              `validate:"required"`
	CodeGenerator otp.CodeGenerator          `validate:"required"`
	Validator     validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	notifier, err := email.New(dep.Mail, dep.Instrument, dep.Clock, dep.Config.GetString("app.name"))
	if err != nil {
		return fmt.Errorf("auth: init email notifier: %w", err)
	}

	engine, err := otp.New(otp.Dependency{
		Store:      dep.Store,
		Notifier:   notifier,
		Generator:  dep.CodeGenerator,
		Instrument: dep.Instrument,
		Policy:     otp.NewPolicy(dep.Config),
	})
	if err != nil {
		return fmt.Errorf("auth: init otp engine: %w", err)
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:      db.NewDB(dep.DBConn, dep.Instrument),
		OTP:         engine,
		Idempotency: dep.Idempotency,
		Validator:   dep.Validator,
		Bcrypt:      dep.Bcrypt,
		UID:         dep.UID,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
