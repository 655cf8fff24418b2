package db

import "database/sql"

// Applied at startup; every statement is idempotent so restarting the
// service against an existing database is safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		action TEXT NOT NULL,
		visitor_name TEXT NOT NULL DEFAULT 'anonymous',
		device_id TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		meta JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	// Event ids are ULIDs, so descending id order is descending
	// creation order. The page queries walk this index.
	`CREATE INDEX IF NOT EXISTS idx_events_owner_id_desc ON events (owner_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS visitor_devices (
		owner_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		first_seen TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (owner_id, device_id)
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_stats (
		owner_id TEXT PRIMARY KEY,
		unique_visitors BIGINT NOT NULL DEFAULT 0,
		total_actions BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		owner_id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_notifications (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		device_token TEXT NOT NULL,
		visitor_name TEXT NOT NULL DEFAULT 'anonymous',
		send_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_due ON scheduled_notifications (send_at) WHERE status = 'pending'`,
}

func InitSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
