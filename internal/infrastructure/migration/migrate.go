// Package migration applies the SQL schema with golang-migrate and scaffolds
// new numbered migration files.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// ErrDirty means a previous migration failed halfway. Up and Steps refuse to
// run until the version is repaired with Force.
var ErrDirty = errors.New("database schema is dirty")

// Source locates the .up.sql/.down.sql files
type Source struct {
	fsys fs.FS
	dir  string
}

// Embedded reads migrations from dir inside fsys (normally migrations.FS)
func Embedded(fsys fs.FS, dir string) Source { return Source{fsys: fsys, dir: dir} }

// Dir reads migrations from a directory on disk
func Dir(path string) Source { return Source{fsys: os.DirFS(path), dir: "."} }

// List names the migrations in the source, oldest first
func (s Source) List() ([]string, error) {
	sub, err := fs.Sub(s.fsys, s.dir)
	if err != nil {
		return nil, err
	}
	return ListMigrations(sub)
}

// Migrator runs migrations against one PostgreSQL database
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

func Open(db *sql.DB, src Source, log *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(src.fsys, src.dir)
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{m: m, log: log.Named("migrate")}, nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	return mg.run("up", true, mg.m.Up)
}

// Down rolls every migration back
func (mg *Migrator) Down() error {
	return mg.run("down", false, mg.m.Down)
}

// Steps moves n migrations; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	return mg.run(fmt.Sprintf("steps %+d", n), true, func() error { return mg.m.Steps(n) })
}

// run executes op, treating "nothing to do" as success. Forward operations
// first check that the schema is clean.
func (mg *Migrator) run(name string, needClean bool, op func() error) error {
	if needClean {
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("%w at version %d", ErrDirty, version)
		}
	}

	mg.log.Info("Running migrations", zap.String("op", name))
	switch err := op(); {
	case errors.Is(err, migrate.ErrNoChange):
		mg.log.Info("Schema already up to date", zap.String("op", name))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", name, err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		mg.log.Warn("Could not read migration version", zap.Error(err))
		return nil
	}
	mg.log.Info("Migrations applied", zap.String("op", name), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Version is the applied version; 0 when the schema is empty
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clean without running anything
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
