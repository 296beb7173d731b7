// Package migrate applies embedded SQL migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Direction selects Up or Down.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Run applies every migration in dir of fsys to the database at dsn
// (postgres://...). Being already at the target version is not an error.
func Run(dsn string, fsys fs.FS, dir string, direction Direction) error {
	if dsn == "" {
		return errors.New("migrate: database dsn is empty")
	}
	if direction != Up && direction != Down {
		return fmt.Errorf("migrate: direction must be up or down, got %q", direction)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		slog.Info("database migrated", "direction", string(direction), "version", version, "dirty", dirty)
	}
	return nil
}
