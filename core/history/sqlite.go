package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists runs to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS schedule_runs (
        id TEXT PRIMARY KEY,
        ts INTEGER,
        status TEXT,
        record TEXT
    );
    CREATE TABLE IF NOT EXISTS schedule_run_meetings (
        run_id TEXT,
        meeting TEXT
    );
    CREATE INDEX IF NOT EXISTS schedule_run_meetings_name ON schedule_run_meetings (meeting);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record and its meeting index in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec RunRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_runs (id, ts, status, record) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), rec.Status, string(b)); err != nil {
		return err
	}
	for _, m := range rec.Meetings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_run_meetings (run_id, meeting) VALUES (?, ?)`, rec.ID, m.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns records matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]RunRecord, error) {
	var args []any
	query := `SELECT record, ts FROM schedule_runs WHERE 1=1`
	if !q.Since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.Until.UnixNano())
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, q.Status)
	}
	if q.Meeting != "" {
		query += ` AND id IN (SELECT run_id FROM schedule_run_meetings WHERE meeting = ?)`
		args = append(args, q.Meeting)
	}
	if q.Limit > 0 {
		query = `SELECT record, ts FROM (` + query + ` ORDER BY ts DESC LIMIT ?) ORDER BY ts`
		args = append(args, q.Limit)
	} else {
		query += ` ORDER BY ts`
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []RunRecord
	for rows.Next() {
		var (
			data string
			ts   int64
		)
		if err := rows.Scan(&data, &ts); err != nil {
			return nil, err
		}
		var r RunRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
