// Package migrations owns the profile database schema. The SQL files are
// embedded and applied with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var schemaFiles embed.FS

// Schema states a profile database can be found in.
var (
	ErrProfileUninitialized = errors.New("profile database has no schema")
	ErrProfileOutdated      = errors.New("profile database schema is outdated")
	ErrProfileTooNew        = errors.New("profile database was written by a newer edusphere")
	ErrProfileDirty         = errors.New("profile database is left half-migrated")
)

// Status is the schema version of a profile database against the embedded schema.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// Inspect reads the schema version of db. A database that was never migrated
// reports Current 0.
func Inspect(db *sql.DB) (Status, error) {
	latest, err := latestSchema()
	if err != nil {
		return Status{}, err
	}
	m, err := newMigrator(db)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: that would close db, which the caller owns.

	current, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{Latest: latest}, nil
	case err != nil:
		return Status{}, fmt.Errorf("reading profile schema version: %w", err)
	}
	return Status{Current: current, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil when db is exactly at the embedded schema, otherwise an
// error wrapping one of the ErrProfile sentinels.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	switch {
	case st.Dirty:
		return fmt.Errorf("%w at version %d; restore the profile or remove it to start over", ErrProfileDirty, st.Current)
	case st.Current == 0:
		return ErrProfileUninitialized
	case st.Current < st.Latest:
		return fmt.Errorf("%w: version %d, want %d", ErrProfileOutdated, st.Current, st.Latest)
	case st.Current > st.Latest:
		return fmt.Errorf("%w: version %d, this binary knows %d", ErrProfileTooNew, st.Current, st.Latest)
	}
	return nil
}

// Upgrade applies every pending schema change. An up-to-date database is left alone.
// A database from a newer binary is refused rather than touched.
func Upgrade(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	if st.Current > st.Latest {
		return fmt.Errorf("%w: version %d, this binary knows %d", ErrProfileTooNew, st.Current, st.Latest)
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("upgrading profile schema from version %d: %w", st.Current, err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded profile schema: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing profile database for migration: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing profile migration: %w", err)
	}
	return m, nil
}

// latestSchema returns the highest version among the embedded schema files.
func latestSchema() (uint, error) {
	src, err := iofs.New(schemaFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("reading embedded profile schema: %w", err)
	}
	defer src.Close()
	return lastVersion(src)
}

func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("embedded profile schema is empty: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("listing profile schema versions: %w", err)
		}
		v = next
	}
}
