// Package store handles SQLite persistence of task sessions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/keyrec/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			key_set TEXT NOT NULL,
			trials INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			rt_sum_us INTEGER NOT NULL,
			rt_count INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_presses (
			session_id INTEGER NOT NULL,
			trial INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			target TEXT NOT NULL,
			key TEXT NOT NULL,
			raw_code TEXT NOT NULL,
			rt_us INTEGER NOT NULL,
			duration_us INTEGER,
			correct INTEGER NOT NULL,
			first INTEGER NOT NULL,
			PRIMARY KEY (session_id, trial, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_presses_target ON session_presses(target);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a completed session and its presses.
func (s *Store) InsertSession(ctx context.Context, stats model.SessionStats, presses []model.PressRecord) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, key_set, trials, correct, incorrect, rt_sum_us, rt_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.StartedAt.Format(time.RFC3339Nano),
		stats.EndedAt.Format(time.RFC3339Nano),
		stats.KeySet,
		stats.Trials,
		stats.Correct,
		stats.Incorrect,
		stats.RTSumUs,
		stats.RTCount,
		stats.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(presses) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_presses (session_id, trial, seq, target, key, raw_code, rt_us, duration_us, correct, first)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, p := range presses {
			var duration sql.NullInt64
			if p.Released {
				duration = sql.NullInt64{Int64: p.Duration.Microseconds(), Valid: true}
			}
			if _, err = stmt.ExecContext(ctx, id, p.Trial, p.Seq, p.Target, p.Key, p.RawCode,
				p.RT.Microseconds(), duration, boolInt(p.Correct), boolInt(p.First)); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetSlowKeys aggregates first-press results over the most recent sessions.
func (s *Store) GetSlowKeys(ctx context.Context, window int) ([]model.KeyAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT p.target, SUM(p.correct), COUNT(*) - SUM(p.correct),
		SUM(CASE WHEN p.correct = 1 THEN p.rt_us ELSE 0 END), SUM(p.correct)
	FROM session_presses p
	JOIN recent_sessions r ON r.id = p.session_id
	WHERE p.first = 1
	GROUP BY p.target`

	rows, err := s.db.QueryContext(ctx, query, window)
	if err != nil {
		return nil, err
	}
	return scanKeyAggregates(rows)
}

// ListSessions returns session aggregates filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.KeySet != "" {
		clauses = append(clauses, "key_set = ?")
		args = append(args, cfg.KeySet)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, correct, incorrect, rt_sum_us, rt_count, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.Correct, &agg.Incorrect, &agg.RTSumUs, &agg.RTCount, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListKeyAggregatesForSessions aggregates first-press results per target key.
func (s *Store) ListKeyAggregatesForSessions(ctx context.Context, sessionIDs []int64) ([]model.KeyAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders, args := idArgs(sessionIDs)
	query := fmt.Sprintf(`SELECT target, SUM(correct), COUNT(*) - SUM(correct),
		SUM(CASE WHEN correct = 1 THEN rt_us ELSE 0 END), SUM(correct)
		FROM session_presses
		WHERE first = 1 AND session_id IN (%s)
		GROUP BY target`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanKeyAggregates(rows)
}

// ListKeyStatsForSessions returns per-session first-press results for selected keys.
func (s *Store) ListKeyStatsForSessions(ctx context.Context, sessionIDs []int64, keys []string) (map[int64]map[string]model.KeyAggregate, error) {
	if len(sessionIDs) == 0 || len(keys) == 0 {
		return map[int64]map[string]model.KeyAggregate{}, nil
	}
	idPlaceholders, args := idArgs(sessionIDs)
	keyPlaceholders := make([]string, len(keys))
	for i, k := range keys {
		keyPlaceholders[i] = "?"
		args = append(args, k)
	}

	query := fmt.Sprintf(`SELECT session_id, target, SUM(correct), COUNT(*) - SUM(correct),
		SUM(CASE WHEN correct = 1 THEN rt_us ELSE 0 END), SUM(correct)
		FROM session_presses
		WHERE first = 1 AND session_id IN (%s) AND target IN (%s)
		GROUP BY session_id, target`, idPlaceholders, strings.Join(keyPlaceholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64]map[string]model.KeyAggregate{}
	for rows.Next() {
		var sessionID int64
		var agg model.KeyAggregate
		if err := rows.Scan(&sessionID, &agg.Key, &agg.Correct, &agg.Incorrect, &agg.RTSumUs, &agg.RTCount); err != nil {
			return nil, err
		}
		if _, ok := result[sessionID]; !ok {
			result[sessionID] = map[string]model.KeyAggregate{}
		}
		result[sessionID][agg.Key] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPresses returns every stored press of a session in trial order.
func (s *Store) ListPresses(ctx context.Context, sessionID int64) ([]model.PressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trial, seq, target, key, raw_code, rt_us, duration_us, correct, first
		 FROM session_presses
		 WHERE session_id = ?
		 ORDER BY trial, seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.PressRecord
	for rows.Next() {
		var p model.PressRecord
		var rtUs int64
		var duration sql.NullInt64
		var correct, first int
		if err := rows.Scan(&p.Trial, &p.Seq, &p.Target, &p.Key, &p.RawCode, &rtUs, &duration, &correct, &first); err != nil {
			return nil, err
		}
		p.RT = time.Duration(rtUs) * time.Microsecond
		if duration.Valid {
			p.Released = true
			p.Duration = time.Duration(duration.Int64) * time.Microsecond
		}
		p.Correct = correct == 1
		p.First = first == 1
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanKeyAggregates(rows *sql.Rows) ([]model.KeyAggregate, error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.KeyAggregate
	for rows.Next() {
		var agg model.KeyAggregate
		if err := rows.Scan(&agg.Key, &agg.Correct, &agg.Incorrect, &agg.RTSumUs, &agg.RTCount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func idArgs(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	return strings.Join(placeholders, ","), args
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
