package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edusphere/internal/database/migrations"
	"edusphere/internal/portal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements portal.Storage on a single SQLite table.
// It also keeps the publish history natively.
type SQLiteStorage struct {
	db    *sql.DB
	clock portal.Clock
	path  string
}

var (
	_ portal.Storage        = (*SQLiteStorage)(nil)
	_ portal.PublicationLog = (*SQLiteStorage)(nil)
)

// NewSQLiteStorage opens the profile database at path and brings its schema
// up to date. path can be a file path or ":memory:".
func NewSQLiteStorage(path string, clock portal.Clock) (*SQLiteStorage, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Upgrade(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening profile %s: %w", path, err)
	}
	if err := migrations.Check(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening profile %s: %w", path, err)
	}
	return &SQLiteStorage{db: db, clock: clock, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteStorage) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(context.Background(),
		"SELECT value FROM profile_values WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *SQLiteStorage) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO profile_values (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(key string) error {
	if _, err := s.db.ExecContext(context.Background(),
		"DELETE FROM profile_values WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or the zero time if it does not exist.
func (s *SQLiteStorage) UpdatedAt(key string) (time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(context.Background(),
		"SELECT updated_at FROM profile_values WHERE key = ?", key).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading %s: %w", key, err)
	}
	return ts, nil
}

func (s *SQLiteStorage) RecordPublication(p portal.Publication) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO publications (vault, name, version, size, published_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (vault, name, version) DO UPDATE SET size = excluded.size, published_at = excluded.published_at`,
		p.Vault, p.Name, p.Version, p.Size, p.PublishedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording publication: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListPublications() ([]portal.Publication, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT vault, name, version, size, published_at FROM publications
		ORDER BY published_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing publications: %w", err)
	}
	defer rows.Close()

	var out []portal.Publication
	for rows.Next() {
		var p portal.Publication
		if err := rows.Scan(&p.Vault, &p.Name, &p.Version, &p.Size, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("scanning publication: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing publications: %w", err)
	}
	return out, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
