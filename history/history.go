// Package history stores the converted readings published by the bridge in a
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// DefaultLimit is the number of readings returned by [Store.Recent] when no limit is given.
const DefaultLimit = 100

// Reading is a converted reading published to a target topic.
type Reading struct {
	Target string            `json:"target"`
	Value  float32           `json:"value"`
	Scale  temperature.Scale `json:"scale"`
	Time   time.Time         `json:"time"`
}

// Store is a history of readings backed by SQLite. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it if needed. The path ":memory:"
// opens an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a new database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		value REAL NOT NULL,
		scale TEXT NOT NULL,
		time INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_target_time ON readings(target, time);
	CREATE INDEX IF NOT EXISTS idx_readings_time ON readings(time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record adds r to the history. A zero Time is replaced by the current time.
func (s *Store) Record(ctx context.Context, r Reading) error {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	if !r.Scale.Valid() {
		return fmt.Errorf("record %s: %w", r.Target, temperature.ErrInvalidScale)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (target, value, scale, time) VALUES (?, ?, ?, ?)`,
		r.Target, float64(r.Value), string(rune(r.Scale)), r.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// Recent returns up to limit of the latest readings of target, newest first.
// If limit is not positive, [DefaultLimit] is used.
func (s *Store) Recent(ctx context.Context, target string, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT target, value, scale, time
		FROM readings
		WHERE target = ?
		ORDER BY time DESC, id DESC
		LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var (
			r     Reading
			value float64
			scale string
			nanos int64
		)
		if err := rows.Scan(&r.Target, &value, &scale, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if len(scale) == 1 {
			r.Scale = temperature.Scale(scale[0])
		}
		r.Value = float32(value)
		r.Time = time.Unix(0, nanos)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}
	return readings, nil
}

// Targets returns every target with a reading, sorted.
func (s *Store) Targets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT target FROM readings ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Prune deletes the readings older than before and returns how many were deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE time < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", err)
	}
	return res.RowsAffected()
}

// Retain prunes the readings older than keep every interval until ctx is done.
func (s *Store) Retain(ctx context.Context, keep, interval time.Duration) {
	if keep <= 0 || interval <= 0 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		n, err := s.Prune(ctx, time.Now().Add(-keep))
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			log.WarnError("Unable to prune history", err)
		case n > 0:
			log.Debug("History pruned", "readings", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
