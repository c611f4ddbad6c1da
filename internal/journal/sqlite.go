package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/risk"
	"github.com/songzhibin97/riskladder/internal/utils/id"
)

const defaultListLimit = 50

// SQLite is an append-only log of trade outcomes and the level moves they caused
type SQLite struct {
	db *sql.DB
}

var _ risk.TradeJournal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordTrade assigns a ULID when rec.ID is empty
func (j *SQLite) RecordTrade(ctx context.Context, rec risk.TradeRecord) error {
	if rec.ID == "" {
		rec.ID = id.New(rec.Time)
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trade_results
		(id, time, is_win, pnl, level_before, level_after, risk_pct, win_rate, regime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Time.UTC(), rec.IsWin, rec.PnL,
		rec.LevelBefore.String(), rec.LevelAfter.String(),
		rec.RiskPct, rec.WinRate, string(rec.Regime),
	)
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first
func (j *SQLite) List(ctx context.Context, limit int) ([]risk.TradeRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, time, is_win, pnl, level_before, level_after, risk_pct, win_rate, regime
		FROM trade_results
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var result []risk.TradeRecord
	for rows.Next() {
		var (
			rec           risk.TradeRecord
			before, after string
			regime        string
		)
		if err := rows.Scan(&rec.ID, &rec.Time, &rec.IsWin, &rec.PnL,
			&before, &after, &rec.RiskPct, &rec.WinRate, &regime); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if rec.LevelBefore, err = risk.ParseRiskLevel(before); err != nil {
			return nil, fmt.Errorf("trade %s: %w", rec.ID, err)
		}
		if rec.LevelAfter, err = risk.ParseRiskLevel(after); err != nil {
			return nil, fmt.Errorf("trade %s: %w", rec.ID, err)
		}
		rec.Regime = models.Regime(regime)
		rec.Time = rec.Time.UTC()
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return result, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
