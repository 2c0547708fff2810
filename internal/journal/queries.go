package journal

import (
	"context"
	"database/sql"
	"time"
)

// Run is one pipeline invocation
type Run struct {
	ID           string              `json:"id"`
	VideoPath    string              `json:"video_path"`
	AssetID      string              `json:"asset_id"`
	Status       string              `json:"status"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Perspectives []*PerspectiveState `json:"perspectives,omitempty"`
}

// PerspectiveState is the latest state of one perspective within a run
type PerspectiveState struct {
	Name       string    `json:"perspective"`
	State      string    `json:"state"`
	Detail     string    `json:"detail,omitempty"`
	OutputPath string    `json:"video_path,omitempty"`
	Segments   int       `json:"segments_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Transition is one recorded state change
type Transition struct {
	Perspective string    `json:"perspective"`
	State       string    `json:"state"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// ListRuns returns the newest runs first, without perspectives
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, video_path, asset_id, status, error, created_at, updated_at
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its perspectives, or nil when unknown
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	row := j.conn.QueryRowContext(ctx, `
		SELECT id, video_path, asset_id, status, error, created_at, updated_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := j.conn.QueryContext(ctx, `
		SELECT name, state, detail, output_path, segments, updated_at
		FROM perspectives WHERE run_id = ? ORDER BY name
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p PerspectiveState
		var detail, output sql.NullString
		var updatedAt string
		if err := rows.Scan(&p.Name, &p.State, &detail, &output, &p.Segments, &updatedAt); err != nil {
			return nil, err
		}
		p.Detail = detail.String
		p.OutputPath = output.String
		p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		run.Perspectives = append(run.Perspectives, &p)
	}
	return run, rows.Err()
}

// Transitions returns the state history of one perspective in order
func (j *Journal) Transitions(ctx context.Context, runID, perspective string) ([]Transition, error) {
	rows, err := j.conn.QueryContext(ctx, `
		SELECT perspective, state, detail, at FROM transitions
		WHERE run_id = ? AND perspective = ? ORDER BY id
	`, runID, perspective)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var detail sql.NullString
		var at string
		if err := rows.Scan(&t.Perspective, &t.State, &detail, &at); err != nil {
			return nil, err
		}
		t.Detail = detail.String
		t.At, _ = time.Parse(timeLayout, at)
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var runErr sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&r.ID, &r.VideoPath, &r.AssetID, &r.Status, &runErr, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Error = runErr.String
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &r, nil
}
