package app

import (
	"log/slog"
	"os"

	"github.com/souqify/auth-service/internal/auth"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.auth.enabled") {
		if err := auth.New(auth.Dependency{
			DBConn:        a.dbConn,
			Store:         a.store,
			Router:        a.router,
			Idempotency:   a.idemp,
			Mail:          a.mail,
			Config:        a.config,
			Instrument:    a.ins,
			UID:           a.uid,
			Bcrypt:        a.bcrypt,
			Clock:         a.clock,
			CodeGenerator: a.codeGen,
			Validator:     a.validator,
		}); err != nil {
			slog.Error("failed to init module auth", "error", err)
			os.Exit(1)
		}
	}
}
