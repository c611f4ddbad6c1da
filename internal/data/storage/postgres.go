package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/songzhibin97/riskladder/internal/risk"
)

// PostgresStorage shares risk state between hosts through one table keyed by name
type PostgresStorage struct {
	db   *sql.DB
	name string
}

var _ Store = (*PostgresStorage)(nil)

func NewPostgresStorage(connStr, name string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStorage{db: db, name: name}

	err = s.initTables()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// Load implements risk.StateStore
func (s *PostgresStorage) Load(ctx context.Context) (*risk.RiskState, error) {
	query := `SELECT document FROM risk_state WHERE name = $1`

	var document []byte
	err := s.db.QueryRowContext(ctx, query, s.name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, risk.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk state: %w", err)
	}

	return risk.DecodeState(document)
}

// Save implements risk.StateStore
func (s *PostgresStorage) Save(ctx context.Context, state *risk.RiskState) error {
	data, err := risk.EncodeState(state)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO risk_state (name, document, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (name) DO UPDATE SET
            document = EXCLUDED.document,
            updated_at = EXCLUDED.updated_at
    `

	_, err = s.db.ExecContext(ctx, query, s.name, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save risk state: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS risk_state (
			name VARCHAR(100) PRIMARY KEY,
			document JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
