package storage

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		id BIGSERIAL PRIMARY KEY,
		external_id VARCHAR(64) NOT NULL UNIQUE,
		home_team VARCHAR(255) NOT NULL,
		away_team VARCHAR(255) NOT NULL,
		league VARCHAR(255) NOT NULL DEFAULT '',
		match_date TIMESTAMPTZ,
		match_time VARCHAR(16) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'SCHEDULED',
		home_score INTEGER,
		away_score INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id BIGSERIAL PRIMARY KEY,
		match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		market VARCHAR(64) NOT NULL,
		odds NUMERIC(10, 3) NOT NULL DEFAULT 0,
		probability NUMERIC(5, 2) NOT NULL DEFAULT 0,
		stake INTEGER NOT NULL CHECK (stake BETWEEN 1 AND 10),
		confidence_level VARCHAR(16) NOT NULL,
		home_odds NUMERIC(10, 3),
		draw_odds NUMERIC(10, 3),
		away_odds NUMERIC(10, 3),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (match_id, market)
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id BIGSERIAL PRIMARY KEY,
		prediction_id BIGINT REFERENCES predictions(id) ON DELETE SET NULL,
		match_id BIGINT REFERENCES matches(id) ON DELETE SET NULL,
		amount NUMERIC(12, 2) NOT NULL,
		odds_taken NUMERIC(10, 3) NOT NULL,
		market VARCHAR(64) NOT NULL DEFAULT '',
		selection VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		profit_loss NUMERIC(12, 2),
		placed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		settled_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS scraping_jobs (
		id BIGSERIAL PRIMARY KEY,
		source VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		matches_found INTEGER NOT NULL DEFAULT 0,
		predictions_found INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scraping_jobs_one_running ON scraping_jobs(source) WHERE status = 'RUNNING'`,
	`CREATE INDEX IF NOT EXISTS idx_scraping_jobs_source ON scraping_jobs(source, id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_match_status ON bets(match_id, status)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		league TEXT NOT NULL DEFAULT '',
		match_date DATETIME,
		match_time TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'SCHEDULED',
		home_score INTEGER,
		away_score INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		market TEXT NOT NULL,
		odds NUMERIC NOT NULL DEFAULT 0,
		probability NUMERIC NOT NULL DEFAULT 0,
		stake INTEGER NOT NULL CHECK (stake BETWEEN 1 AND 10),
		confidence_level TEXT NOT NULL,
		home_odds NUMERIC,
		draw_odds NUMERIC,
		away_odds NUMERIC,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (match_id, market)
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prediction_id INTEGER REFERENCES predictions(id) ON DELETE SET NULL,
		match_id INTEGER REFERENCES matches(id) ON DELETE SET NULL,
		amount NUMERIC NOT NULL,
		odds_taken NUMERIC NOT NULL,
		market TEXT NOT NULL DEFAULT '',
		selection TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		profit_loss NUMERIC,
		placed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		settled_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS scraping_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		matches_found INTEGER NOT NULL DEFAULT 0,
		predictions_found INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scraping_jobs_one_running ON scraping_jobs(source) WHERE status = 'RUNNING'`,
	`CREATE INDEX IF NOT EXISTS idx_scraping_jobs_source ON scraping_jobs(source, id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_match_status ON bets(match_id, status)`,
}
