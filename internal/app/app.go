package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"github.com/souqify/auth-service/internal/pkg/clock"
	"github.com/souqify/auth-service/internal/pkg/config"
	"github.com/souqify/auth-service/internal/pkg/hash"
	"github.com/souqify/auth-service/internal/pkg/idempotency"
	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/mail"
	codegen "github.com/souqify/auth-service/internal/pkg/otp"
	"github.com/souqify/auth-service/internal/pkg/router"
	"github.com/souqify/auth-service/internal/pkg/ttlstore"
	"github.com/souqify/auth-service/internal/pkg/uid"
	"github.com/souqify/auth-service/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	validator validator.Validator
	clock     clock.Clocker
	bcrypt    hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	codeGen   *codegen.Generator

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	store     *ttlstore.Redis
	idemp     idempotency.Idempotency
	mail      mail.Mail

	// server
	router     *router.Router
	httpServer *http.Server
	ready      *atomic.Bool

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
		ready:  atomic.NewBool(false),
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	app.ready.Store(true)

	return app
}
