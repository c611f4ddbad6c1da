package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trade_results (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	is_win INTEGER NOT NULL,
	pnl REAL NOT NULL,
	level_before TEXT NOT NULL,
	level_after TEXT NOT NULL,
	risk_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	regime TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_results_time ON trade_results(time);
`
