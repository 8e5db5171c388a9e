package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sapcontrol-keeper/states"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const timeLayout = time.RFC3339Nano

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the history database and creates its tables.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create history directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// one connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	query := `
	CREATE TABLE IF NOT EXISTS state_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		decl_id TEXT,
		state TEXT NOT NULL,
		name TEXT,
		outcome TEXT NOT NULL,
		comment TEXT,
		changes TEXT,
		details TEXT,
		started TEXT,
		duration_ms INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_state_runs_run_id ON state_runs(run_id);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create state_runs table")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, res states.Result) error {
	changes, err := json.Marshal(res.Changes)
	if err != nil {
		return errors.Wrap(err, "encode changes")
	}
	details, err := json.Marshal(res.Details)
	if err != nil {
		return errors.Wrap(err, "encode details")
	}
	query := `
	INSERT INTO state_runs (run_id, decl_id, state, name, outcome, comment, changes, details, started, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		res.RunID,
		res.ID,
		res.State,
		res.Name,
		string(res.Outcome),
		res.Comment,
		string(changes),
		string(details),
		res.Started.Format(timeLayout),
		res.Duration.Milliseconds(),
	)
	return errors.Wrap(err, "insert state run")
}

// List returns matching entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]states.Result, error) {
	var where []string
	var args []interface{}
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, filter.State)
	}
	if filter.Name != "" {
		where = append(where, "name = ?")
		args = append(args, filter.Name)
	}

	query := `SELECT run_id, decl_id, state, name, outcome, comment, changes, details, started, duration_ms FROM state_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query state runs")
	}
	defer rows.Close()

	results := []states.Result{}
	for rows.Next() {
		var (
			res                             states.Result
			declID, name, comment           sql.NullString
			outcome, changes, details, when string
			durationMs                      int64
		)
		if err := rows.Scan(&res.RunID, &declID, &res.State, &name, &outcome, &comment, &changes, &details, &when, &durationMs); err != nil {
			return nil, errors.Wrap(err, "scan state run")
		}
		res.ID = declID.String
		res.Name = name.String
		res.Comment = comment.String
		res.Outcome = states.Outcome(outcome)
		res.Duration = time.Duration(durationMs) * time.Millisecond
		if t, err := time.Parse(timeLayout, when); err == nil {
			res.Started = t
		}
		if err := json.Unmarshal([]byte(changes), &res.Changes); err != nil {
			return nil, errors.Wrap(err, "decode changes")
		}
		if details != "" && details != "null" {
			if err := json.Unmarshal([]byte(details), &res.Details); err != nil {
				return nil, errors.Wrap(err, "decode details")
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
