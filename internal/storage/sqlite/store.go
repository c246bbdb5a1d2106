// Package sqlite provides the SQLite-backed sample and run store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mlforge/internal/storage/migrate"
	"mlforge/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store persists training samples and run results in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Sample is one stored training example.
type Sample struct {
	ID       int64
	Features []float64
	Label    int
	Tag      string
}

// Run records the outcome of one training run.
type Run struct {
	ID           string
	StartedAt    time.Time
	Epochs       int
	FinalLoss    float64
	ValAccuracy  float64
	TestAccuracy float64
	Config       string
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// InsertSamples stores the given samples in one transaction.
func (s *Store) InsertSamples(ctx context.Context, samples []Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert samples: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for _, sample := range samples {
		features, err := json.Marshal(sample.Features)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode features: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO samples (features, label, tag, created_at) VALUES (?, ?, ?, ?)`,
			string(features), sample.Label, sample.Tag, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert samples: %w", err)
	}
	return nil
}

// ListSamples returns stored samples, filtered by tag when tag is non-empty,
// ordered by insertion.
func (s *Store) ListSamples(ctx context.Context, tag string) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT id, features, label, tag FROM samples ORDER BY id`
	args := []any{}
	if tag != "" {
		query = `SELECT id, features, label, tag FROM samples WHERE tag = ? ORDER BY id`
		args = append(args, tag)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var sample Sample
		var features string
		if err := rows.Scan(&sample.ID, &features, &sample.Label, &sample.Tag); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &sample.Features); err != nil {
			return nil, fmt.Errorf("decode features for sample %d: %w", sample.ID, err)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// CountSamples returns the total number of stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}

// SaveRun persists the outcome of one training run.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO runs (id, started_at, epochs, final_loss, val_accuracy, test_accuracy, config)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		startedAt.UTC().UnixMilli(),
		run.Epochs,
		run.FinalLoss,
		run.ValAccuracy,
		run.TestAccuracy,
		run.Config,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	var run Run
	var startedAt int64
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, started_at, epochs, final_loss, val_accuracy, test_accuracy, config
		 FROM runs WHERE id = ?`,
		id,
	)
	if err := row.Scan(&run.ID, &startedAt, &run.Epochs, &run.FinalLoss,
		&run.ValAccuracy, &run.TestAccuracy, &run.Config); err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	return run, nil
}
