package serving

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

// Entry is one served prediction.
type Entry struct {
	RequestID string
	Features  []float64
	Result    Result
	CreatedAt time.Time
}

// Journal persists served predictions. Write failures never fail a request.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// SQLiteJournal stores predictions in a single sqlite table.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLiteJournal opens (or creates) the journal database at path.
// ":memory:" is accepted for tests.
func OpenSQLiteJournal(path string) (*SQLiteJournal, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	// sqlite は単一ライタ。:memory: は接続ごとに別DBになる
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT,
		features TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create journal table")
	}
	return &SQLiteJournal{db: db}, nil
}

// Record implements Journal.
func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	features, err := json.Marshal(e.Features)
	if err != nil {
		return errors.Wrap(err, "encode features")
	}
	result, err := json.Marshal(e.Result)
	if err != nil {
		return errors.Wrap(err, "encode result")
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO predictions (request_id, features, result, created_at) VALUES (?, ?, ?, ?)`,
		e.RequestID, string(features), string(result), e.CreatedAt.UnixMilli())
	return errors.Wrap(err, "insert prediction")
}

// Recent returns up to limit entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT request_id, features, result, created_at FROM predictions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query predictions")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			features, result  string
			createdAtUnixMill int64
		)
		if err := rows.Scan(&e.RequestID, &features, &result, &createdAtUnixMill); err != nil {
			return nil, errors.Wrap(err, "scan prediction")
		}
		if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
			return nil, errors.Wrap(err, "decode features")
		}
		if err := json.Unmarshal([]byte(result), &e.Result); err != nil {
			return nil, errors.Wrap(err, "decode result")
		}
		e.CreatedAt = time.UnixMilli(createdAtUnixMill).UTC()
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate predictions")
}

// Close implements Journal.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
