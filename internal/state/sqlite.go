package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			start_ts TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_correct INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			mission_id INTEGER NOT NULL,
			kind TEXT NOT NULL DEFAULT 'query',
			query TEXT NOT NULL,
			ok INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			attempt_ts TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);`,
		`CREATE INDEX IF NOT EXISTS attempts_mission_idx ON attempts(mission_id);`,
		`CREATE TABLE IF NOT EXISTS mission_progress (
			mission_id INTEGER PRIMARY KEY,
			attempts INTEGER NOT NULL DEFAULT 0,
			passed_count INTEGER NOT NULL DEFAULT 0,
			best_time_ms INTEGER NOT NULL DEFAULT 0,
			last_played_ts TEXT NOT NULL DEFAULT '',
			last_passed_ts TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS progress_records (
			key TEXT PRIMARY KEY,
			record TEXT NOT NULL,
			updated_ts TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RecordAttempt appends to the audit log and folds the attempt into the
// session and per-mission aggregates.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, a Attempt) (err error) {
	sessionID := strings.TrimSpace(a.SessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	ts := a.AttemptTS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	tsRaw := ts.UTC().Format(timeLayout)
	kind := strings.TrimSpace(a.Kind)
	if kind == "" {
		kind = "query"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO sessions(session_id, start_ts) VALUES(?, ?)`, sessionID, tsRaw); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO attempts(session_id, run_id, mission_id, kind, query, ok, correct, status, duration_ms, attempt_ts)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		sessionID,
		a.RunID,
		a.MissionID,
		kind,
		a.Query,
		ifThen(a.OK, 1, 0),
		ifThen(a.Correct, 1, 0),
		a.Status,
		max64(0, a.DurationMS),
		tsRaw,
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE sessions SET attempts = attempts + 1, last_correct = ? WHERE session_id = ?`,
		ifThen(a.Correct, 1, 0), sessionID,
	); err != nil {
		return err
	}

	passTS := ""
	bestMS := int64(0)
	if a.Correct {
		passTS = tsRaw
		bestMS = max64(1, a.DurationMS)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO mission_progress(mission_id, attempts, passed_count, best_time_ms, last_played_ts, last_passed_ts)
		VALUES(?, 1, ?, ?, ?, ?)
		ON CONFLICT(mission_id) DO UPDATE SET
			attempts = mission_progress.attempts + 1,
			passed_count = mission_progress.passed_count + excluded.passed_count,
			best_time_ms = CASE
				WHEN excluded.best_time_ms > 0 AND (mission_progress.best_time_ms = 0 OR excluded.best_time_ms < mission_progress.best_time_ms) THEN excluded.best_time_ms
				ELSE mission_progress.best_time_ms
			END,
			last_played_ts = excluded.last_played_ts,
			last_passed_ts = CASE
				WHEN excluded.last_passed_ts <> '' THEN excluded.last_passed_ts
				ELSE mission_progress.last_passed_ts
			END
	`,
		a.MissionID,
		ifThen(a.Correct, 1, 0),
		bestMS,
		tsRaw,
		passTS,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetMissionProgressMap(ctx context.Context) (map[int]MissionProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mission_id, attempts, passed_count, best_time_ms, last_played_ts, last_passed_ts
		FROM mission_progress
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]MissionProgress{}
	for rows.Next() {
		var (
			mp         MissionProgress
			lastPlayed string
			lastPassed string
		)
		if err := rows.Scan(&mp.MissionID, &mp.Attempts, &mp.PassedCount, &mp.BestTimeMS, &lastPlayed, &lastPassed); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, lastPlayed); err == nil {
			mp.LastPlayedTS = t
		}
		if t, err := time.Parse(timeLayout, lastPassed); err == nil {
			mp.LastPassedTS = t
		}
		out[mp.MissionID] = mp
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sessions) as sessions,
			COUNT(*) as attempts,
			COALESCE(SUM(correct),0) as correct,
			COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END),0) as errors
		FROM attempts
	`)
	if err := row.Scan(&out.Sessions, &out.Attempts, &out.Correct, &out.Errors); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) GetLastAttempt(ctx context.Context) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, run_id, mission_id, kind, query, ok, correct, status, duration_ms, attempt_ts
		FROM attempts
		ORDER BY id DESC
		LIMIT 1
	`)
	var (
		a       Attempt
		ok      int
		correct int
		tsRaw   string
	)
	if err := row.Scan(&a.SessionID, &a.RunID, &a.MissionID, &a.Kind, &a.Query, &ok, &correct, &a.Status, &a.DurationMS, &tsRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	a.OK = ok == 1
	a.Correct = correct == 1
	if t, err := time.Parse(timeLayout, tsRaw); err == nil {
		a.AttemptTS = t
	}
	return &a, nil
}

// SaveProgress stores a serialized progress record under key, replacing any
// previous one. The last write wins.
func (s *SQLiteStore) SaveProgress(ctx context.Context, key string, record []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("progress key is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_records(key, record, updated_ts) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_ts = excluded.updated_ts
	`, key, string(record), time.Now().UTC().Format(timeLayout))
	return err
}

// LoadProgress returns nil without error when nothing is stored under key.
func (s *SQLiteStore) LoadProgress(ctx context.Context, key string) ([]byte, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM progress_records WHERE key = ?`, strings.TrimSpace(key)).Scan(&record)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return []byte(record), nil
}

func (s *SQLiteStore) DeleteProgress(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress_records WHERE key = ?`, strings.TrimSpace(key))
	return err
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
