// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/gpuscope-project/gpuscope/lib/clock"
	"github.com/gpuscope-project/gpuscope/lib/gputelem"
	"github.com/gpuscope-project/gpuscope/lib/sqlitepool"
)

// schema is applied to every connection. CREATE IF NOT EXISTS makes
// it idempotent across connections and process restarts.
const schema = `
CREATE TABLE IF NOT EXISTS metric_samples (
	taken_at_ms      INTEGER NOT NULL,
	device           TEXT NOT NULL,
	kind             TEXT NOT NULL,
	draw_milliwatts  INTEGER,
	limit_milliwatts INTEGER,
	percent          REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS metric_samples_by_device_time
	ON metric_samples (device, taken_at_ms);
`

// Sample is one recorded metric reading for one device.
type Sample struct {
	TakenAt time.Time
	Device  string
	Metric  gputelem.Metric
}

// StoreConfig holds the parameters for opening a sample store.
type StoreConfig struct {
	// Path is the SQLite database file path. Required.
	Path string

	// PoolSize is forwarded to the connection pool. Defaults apply
	// when zero.
	PoolSize int

	// Clock stamps appended samples and anchors retention. Defaults
	// to the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Nil means discard.
	Logger *slog.Logger
}

// Store is the durable sample log. One row per device per harvest
// tick; power readings keep their raw milliwatt fields so recorded
// data can be re-projected later, not just the percentage snapshot.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the sample database.
func OpenStore(cfg StoreConfig) (*Store, error) {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	return &Store{pool: pool, clock: clk, logger: logger}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Append records one harvest tick's device readings, stamped with the
// current clock time, in a single transaction. A nil or empty slice
// is a no-op.
func (s *Store) Append(ctx context.Context, readings []gputelem.DeviceReading) (err error) {
	if len(readings) == 0 {
		return nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("history store: append: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("history store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	takenAtMs := s.clock.Now().UnixMilli()
	for _, reading := range readings {
		if err := insertSample(conn, takenAtMs, reading); err != nil {
			return fmt.Errorf("history store: append: %w", err)
		}
	}
	return nil
}

func insertSample(conn *sqlite.Conn, takenAtMs int64, reading gputelem.DeviceReading) error {
	kind := "utilization"
	var draw, limit any
	if reading.Metric.IsPower() {
		kind = "power"
		draw = int64(reading.Metric.DrawMilliwatts())
		if limitValue, known := reading.Metric.LimitMilliwatts(); known {
			limit = int64(limitValue)
		}
	}

	return sqlitex.Execute(conn, `INSERT INTO metric_samples
		(taken_at_ms, device, kind, draw_milliwatts, limit_milliwatts, percent)
		VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			takenAtMs,
			reading.Name,
			kind,
			draw,
			limit,
			reading.Metric.AsPercentage(),
		},
	})
}

// Range returns the named device's samples taken at or after since,
// oldest first.
func (s *Store) Range(ctx context.Context, device string, since time.Time) ([]Sample, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history store: range: %w", err)
	}
	defer s.pool.Put(conn)

	var samples []Sample
	err = sqlitex.Execute(conn, `SELECT taken_at_ms, kind, draw_milliwatts,
		limit_milliwatts, percent
		FROM metric_samples
		WHERE device = ? AND taken_at_ms >= ?
		ORDER BY taken_at_ms`, &sqlitex.ExecOptions{
		Args: []any{device, since.UnixMilli()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			samples = append(samples, Sample{
				TakenAt: time.UnixMilli(stmt.ColumnInt64(0)).UTC(),
				Device:  device,
				Metric:  scanMetric(stmt),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history store: range: %w", err)
	}
	return samples, nil
}

// scanMetric rebuilds a Metric from a row positioned at columns
// (kind, draw_milliwatts, limit_milliwatts, percent). Rows written by
// an unknown future kind degrade to a utilization reading of the
// stored percentage.
func scanMetric(stmt *sqlite.Stmt) gputelem.Metric {
	if stmt.ColumnText(1) != "power" {
		return gputelem.Utilization(float32(stmt.ColumnFloat(4)))
	}
	draw := uint32(stmt.ColumnInt64(2))
	if stmt.ColumnIsNull(3) {
		return gputelem.Power(draw)
	}
	return gputelem.PowerWithLimit(draw, uint32(stmt.ColumnInt64(3)))
}

// Devices returns every device name with at least one sample, sorted.
func (s *Store) Devices(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history store: devices: %w", err)
	}
	defer s.pool.Put(conn)

	var devices []string
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT device FROM metric_samples ORDER BY device",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				devices = append(devices, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history store: devices: %w", err)
	}
	return devices, nil
}

// Prune deletes samples older than the retention period, measured
// from the current clock time, and returns the number removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history store: prune: %w", err)
	}
	defer s.pool.Put(conn)

	cutoffMs := s.clock.Now().Add(-retention).UnixMilli()
	err = sqlitex.Execute(conn,
		"DELETE FROM metric_samples WHERE taken_at_ms < ?",
		&sqlitex.ExecOptions{Args: []any{cutoffMs}})
	if err != nil {
		return 0, fmt.Errorf("history store: prune: %w", err)
	}

	removed := int64(conn.Changes())
	if removed > 0 {
		s.logger.Debug("pruned metric samples",
			"removed", removed,
			"cutoff_ms", cutoffMs,
		)
	}
	return removed, nil
}
