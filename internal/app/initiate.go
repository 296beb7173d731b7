package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sethvargo/go-retry"

	"github.com/souqify/auth-service/internal/auth/outbound/db"
	"github.com/souqify/auth-service/internal/pkg/clock"
	"github.com/souqify/auth-service/internal/pkg/config"
	"github.com/souqify/auth-service/internal/pkg/hash"
	"github.com/souqify/auth-service/internal/pkg/idempotency"
	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/mail"
	"github.com/souqify/auth-service/internal/pkg/migrate"
	codegen "github.com/souqify/auth-service/internal/pkg/otp"
	"github.com/souqify/auth-service/internal/pkg/router"
	"github.com/souqify/auth-service/internal/pkg/ttlstore"
	"github.com/souqify/auth-service/internal/pkg/uid"
	"github.com/souqify/auth-service/internal/pkg/validator"
)

const (
	mailDriverSMTP = "smtp"
	mailDriverLog  = "log"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.bcrypt = hash.NewBcrypt(a.config.GetInt("hash.bcrypt.cost"), a.config.GetString("hash.bcrypt.pepper"))
	a.codeGen = codegen.NewGenerator()

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake(a.config.GetInt64("app.node_id"))
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initDatabase() {
	dsn := a.config.GetString("database.url")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	if err := pingWithRetry(a.ctx, pool.Ping); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	if a.config.GetBool("database.migrate") {
		if err := migrate.Run(dsn, db.MigrationFS, "migrations", migrate.Up); err != nil {
			slog.Error("failed to migrate DB", "error", err)
			os.Exit(1)
		}
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	if err := pingWithRetry(a.ctx, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.store = ttlstore.NewRedis(rdb)
	a.idemp = idempotency.New(rdb)
}

func (a *App) initMail() {
	driver := a.config.GetString("mail.driver")

	var client mail.Mail
	switch driver {
	case mailDriverLog:
		client = mail.NewLog(slog.Default(), a.config.GetString("mail.from"))
	case mailDriverSMTP, "":
		smtp, err := mail.NewSMTP(mail.SMTPConfig{
			Host:     a.config.GetString("mail.host"),
			Port:     a.config.GetInt("mail.port"),
			Username: a.config.GetString("mail.username"),
			Password: a.config.GetString("mail.password"),
			From:     a.config.GetString("mail.from"),
		})
		if err != nil {
			slog.Error("failed to init mail", "error", err)
			os.Exit(1)
		}
		client = smtp
	default:
		slog.Error("failed to init mail, unknown driver", "driver", driver)
		os.Exit(1)
	}

	a.mail = mail.NewRetrying(client, mail.RetryConfig{
		Attempts: uint64(max(a.config.GetInt("mail.retry.attempts"), 0)),
		Base:     time.Duration(a.config.GetInt("mail.retry.base_millis")) * time.Millisecond,
		Cap:      a.config.GetSecond("mail.retry.cap_seconds"),
	})
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	a.router.Raw(http.MethodGet, "/health", a.healthHandler())

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}

// pingWithRetry gives a dependency that is still starting a few chances
// before the process gives up.
func pingWithRetry(ctx context.Context, ping func(context.Context) error) error {
	backoff := retry.NewExponential(250 * time.Millisecond)
	backoff = retry.WithCappedDuration(2*time.Second, backoff)
	backoff = retry.WithMaxRetries(5, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(pctx); err != nil {
			slog.WarnContext(ctx, "dependency not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
