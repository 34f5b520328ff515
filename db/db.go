package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const schema = `CREATE TABLE IF NOT EXISTS transcripts (
	cache_key  TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
)`

// Store caches transcripts keyed by extracted-audio digest.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	logrus.WithField("path", dbPath).Info("Initializing transcript cache")

	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "error creating directory for database")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "error setting %s", pragma)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error creating table")
	}

	return &Store{db: db}, nil
}

// Get returns the cached text for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx, "SELECT text FROM transcripts WHERE cache_key = ?", key).Scan(&text)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "error querying database")
	}
	return text, true, nil
}

func (s *Store) Put(ctx context.Context, key, text, model string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error beginning transaction")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transcripts (cache_key, text, model, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET text=excluded.text, model=excluded.model, created_at=excluded.created_at`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error preparing statement")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, key, text, model, time.Now().UTC()); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error executing statement")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing transaction")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
