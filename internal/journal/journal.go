package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Terminal perspective states as stored by the pipeline
const (
	StateDone   = "DONE"
	StateFailed = "FAILED"
)

// Recorder receives pipeline progress
type Recorder interface {
	StartRun(ctx context.Context, videoPath, assetID string) (string, error)
	Transition(ctx context.Context, runID, perspective, state, detail string) error
	Complete(ctx context.Context, runID, perspective, outputPath string, segments int) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Nop is a Recorder that records nothing
type Nop struct{}

func (Nop) StartRun(ctx context.Context, videoPath, assetID string) (string, error) {
	return uuid.NewString(), nil
}
func (Nop) Transition(ctx context.Context, runID, perspective, state, detail string) error {
	return nil
}
func (Nop) Complete(ctx context.Context, runID, perspective, outputPath string, segments int) error {
	return nil
}
func (Nop) FinishRun(ctx context.Context, runID string, runErr error) error { return nil }

// Journal persists runs and per-perspective state in SQLite
type Journal struct {
	conn   *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens or creates the journal at dbPath
func Open(dbPath string, logger zerolog.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	j := &Journal{
		conn:   conn,
		logger: logger.With().Str("component", "journal").Logger(),
		now:    time.Now,
	}

	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := j.markInterrupted(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to mark interrupted runs")
	}

	return j, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if j.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := j.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := j.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		j.logger.Debug().Str("name", name).Msg("applied migration")
	}
	return nil
}

func (j *Journal) isMigrationApplied(name string) bool {
	var exists int
	err := j.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}
	var applied int
	err = j.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// markInterrupted fails everything a previous process left in flight
func (j *Journal) markInterrupted() error {
	ts := j.stamp()
	if _, err := j.conn.Exec(
		`UPDATE perspectives SET state = ?, detail = 'interrupted', updated_at = ? WHERE state NOT IN (?, ?)`,
		StateFailed, ts, StateDone, StateFailed,
	); err != nil {
		return err
	}
	_, err := j.conn.Exec(
		`UPDATE runs SET status = ?, error = 'interrupted', updated_at = ? WHERE status = ?`,
		StatusFailed, ts, StatusRunning,
	)
	return err
}

// timeLayout is fixed width so stored stamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (j *Journal) stamp() string {
	return j.now().UTC().Format(timeLayout)
}

// StartRun records a new run and returns its id
func (j *Journal) StartRun(ctx context.Context, videoPath, assetID string) (string, error) {
	id := uuid.NewString()
	ts := j.stamp()
	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO runs (id, video_path, asset_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, videoPath, assetID, StatusRunning, ts, ts)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// Transition moves a perspective of a run into state
func (j *Journal) Transition(ctx context.Context, runID, perspective, state, detail string) error {
	ts := j.stamp()
	tx, err := j.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO perspectives (run_id, name, state, detail, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, name) DO UPDATE SET state = excluded.state, detail = excluded.detail, updated_at = excluded.updated_at
	`, runID, perspective, state, nullString(detail), ts); err != nil {
		return fmt.Errorf("failed to record state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transitions (run_id, perspective, state, detail, at) VALUES (?, ?, ?, ?, ?)
	`, runID, perspective, state, nullString(detail), ts); err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return tx.Commit()
}

// Complete stores the output of a finished perspective
func (j *Journal) Complete(ctx context.Context, runID, perspective, outputPath string, segments int) error {
	_, err := j.conn.ExecContext(ctx, `
		UPDATE perspectives SET output_path = ?, segments = ?, updated_at = ? WHERE run_id = ? AND name = ?
	`, outputPath, segments, j.stamp(), runID, perspective)
	return err
}

// FinishRun closes a run, failed when runErr is set
func (j *Journal) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := j.conn.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(msg), j.stamp(), runID)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
