package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/songzhibin97/riskladder/internal/risk"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS risk_state (
	name TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore keeps one state document per name in a local database
type SQLiteStore struct {
	db   *sql.DB
	name string
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path, name string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite 只允许单写
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return &SQLiteStore{db: db, name: name}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*risk.RiskState, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM risk_state WHERE name = ?`, s.name,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, risk.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query risk state: %w", err)
	}

	return risk.DecodeState([]byte(document))
}

func (s *SQLiteStore) Save(ctx context.Context, state *risk.RiskState) error {
	data, err := risk.EncodeState(state)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_state (name, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		s.name, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save risk state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
