// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for deals, activities, sessions and tasks
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	link_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('active', 'qualified', 'nurturing', 'closed-won', 'closed-lost')),
	stage TEXT NOT NULL CHECK(stage IN ('created', 'shared', 'accessed', 'engaged', 'qualified', 'advanced', 'closed')),
	value INTEGER NOT NULL DEFAULT 0,
	property_count INTEGER NOT NULL DEFAULT 0,
	client_id TEXT,
	client_name TEXT,
	client_email TEXT,
	client_phone TEXT,
	engagement_score INTEGER NOT NULL DEFAULT 0,
	client_temperature TEXT NOT NULL DEFAULT 'cold',
	session_count INTEGER NOT NULL DEFAULT 0,
	total_time_spent REAL NOT NULL DEFAULT 0,
	last_activity_at DATETIME,
	next_follow_up DATETIME,
	tags TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_agent_id ON deals(agent_id);
CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage);
CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);

CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	action TEXT NOT NULL,
	metadata TEXT,
	occurred_at DATETIME NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id)
);

CREATE INDEX IF NOT EXISTS idx_activities_deal_id ON activities(deal_id);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	duration_seconds REAL NOT NULL CHECK(duration_seconds >= 0),
	started_at DATETIME NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_deal_id ON sessions(deal_id);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	type TEXT NOT NULL,
	priority TEXT NOT NULL CHECK(priority IN ('low', 'medium', 'high', 'urgent')),
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_progress', 'completed', 'dismissed')),
	is_automated INTEGER NOT NULL DEFAULT 0,
	trigger_type TEXT,
	due_date DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME,
	FOREIGN KEY (deal_id) REFERENCES deals(id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_deal_id ON tasks(deal_id);
CREATE INDEX IF NOT EXISTS idx_tasks_agent_status ON tasks(agent_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
