package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle so sibling packages (credentials,
// health checks) can share the one WAL-mode database.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    agent_id   TEXT NOT NULL,
    active     INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ended_at   TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent_id, created_at);

CREATE TABLE IF NOT EXISTS orchestrations (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    intent     TEXT NOT NULL,
    prompt     TEXT NOT NULL,
    results    TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_orchestrations_created ON orchestrations(created_at);

CREATE TABLE IF NOT EXISTS credentials (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL UNIQUE,
    encrypted_value BLOB NOT NULL,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

type Session struct {
	ID        string
	AgentID   string
	Active    bool
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Orchestration is one completed orchestrate call: the prompt that came
// in, the intent it classified to, and the per-tool results as JSON.
type Orchestration struct {
	ID        string
	SessionID string
	Intent    string
	Prompt    string
	Results   string
	CreatedAt time.Time
}

func (s *Store) RecordSessionStart(ctx context.Context, id, agentID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, agent_id, active, created_at) VALUES (?, ?, 1, ?)`,
		id, agentID, at,
	)
	return err
}

func (s *Store) RecordSessionEnd(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = 0, ended_at = ? WHERE id = ?`, at, id,
	)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	sess := &Session{}
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, active, created_at, ended_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.AgentID, &sess.Active, &sess.CreatedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return sess, nil
}

func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, active, created_at, ended_at
		 FROM sessions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.AgentID, &sess.Active, &sess.CreatedAt, &endedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionCounts reports total and still-active session rows.
func (s *Store) SessionCounts(ctx context.Context) (total, active int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(active), 0) FROM sessions`,
	).Scan(&total, &active)
	return total, active, err
}

func (s *Store) InsertOrchestration(ctx context.Context, o *Orchestration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orchestrations (id, session_id, intent, prompt, results, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.SessionID, o.Intent, o.Prompt, o.Results, o.CreatedAt,
	)
	return err
}

// RecentOrchestrations returns up to limit rows in chronological order.
func (s *Store) RecentOrchestrations(ctx context.Context, limit int) ([]Orchestration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, intent, prompt, results, created_at
		 FROM orchestrations ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orchestrations, err := scanOrchestrations(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(orchestrations)-1; i < j; i, j = i+1, j-1 {
		orchestrations[i], orchestrations[j] = orchestrations[j], orchestrations[i]
	}

	return orchestrations, rows.Err()
}

// OrchestrationsSince returns rows created at or after the cutoff, in
// chronological order. The digest job builds its prompt from these.
func (s *Store) OrchestrationsSince(ctx context.Context, since time.Time) ([]Orchestration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, intent, prompt, results, created_at
		 FROM orchestrations WHERE created_at >= ? ORDER BY created_at ASC`, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orchestrations, err := scanOrchestrations(rows)
	if err != nil {
		return nil, err
	}
	return orchestrations, rows.Err()
}

func scanOrchestrations(rows *sql.Rows) ([]Orchestration, error) {
	var out []Orchestration
	for rows.Next() {
		var o Orchestration
		if err := rows.Scan(&o.ID, &o.SessionID, &o.Intent, &o.Prompt, &o.Results, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
