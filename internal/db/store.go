package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/treevolume/internal/batch"
	"github.com/banshee-data/treevolume/internal/version"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is a stored volume run.
type RunRecord struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	InputDir    string        `json:"input_dir"`
	Suffix      string        `json:"suffix"`
	ToolVersion string        `json:"tool_version"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
}

// TreeVolume is a stored per-file result. VolumeM3 is nil for failed files.
type TreeVolume struct {
	RunID       string   `json:"run_id"`
	Filename    string   `json:"filename"`
	VolumeM3    *float64 `json:"volume_m3,omitempty"`
	Segments    int      `json:"segments"`
	Edges       int      `json:"edges"`
	TotalLength float64  `json:"total_length"`
	MaxRadius   float64  `json:"max_radius"`
	Height      float64  `json:"height"`
	Warnings    int      `json:"warnings"`
	Status      string   `json:"status"`
	Error       string   `json:"error,omitempty"`
}

// SaveRun stores a run and all of its file results in one transaction.
func (db *DB) SaveRun(run *batch.Run) (err error) {
	s := run.Summary()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(`INSERT INTO volume_runs (
			run_id, started_at, duration_ms, input_dir, suffix, tool_version,
			total, succeeded, failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.UTC().Format(timeLayout), run.Duration.Milliseconds(),
		run.Dir, run.Suffix, version.String(),
		s.Total, s.Succeeded, s.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tree_volumes (
			run_id, filename, volume_m3, segments, edges, total_length,
			max_radius, height, warnings, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range run.Results {
		volume := sql.NullFloat64{Float64: r.Volume, Valid: r.Err == nil}
		var errText string
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_, err = stmt.Exec(run.ID.String(), r.Filename, volume,
			r.Stats.Segments, r.Stats.Edges, r.Stats.TotalLength,
			r.Stats.MaxRadius, r.Stats.Height, len(r.Warnings), r.Status(), errText)
		if err != nil {
			return fmt.Errorf("insert %s: %w", r.Filename, err)
		}
	}

	return tx.Commit()
}

// Runs returns stored runs, newest first.
func (db *DB) Runs() ([]RunRecord, error) {
	rows, err := db.Query(`SELECT run_id, started_at, duration_ms, input_dir, suffix,
			tool_version, total, succeeded, failed
		FROM volume_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt string
		var durationMs int64
		if err := rows.Scan(&r.RunID, &startedAt, &durationMs, &r.InputDir, &r.Suffix,
			&r.ToolVersion, &r.Total, &r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at %q: %w", r.RunID, startedAt, err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TreeVolumes returns the stored results of a run ordered by filename.
func (db *DB) TreeVolumes(runID string) ([]TreeVolume, error) {
	rows, err := db.Query(`SELECT run_id, filename, volume_m3, segments, edges,
			total_length, max_radius, height, warnings, status, error
		FROM tree_volumes WHERE run_id = ? ORDER BY filename`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TreeVolume
	for rows.Next() {
		var tv TreeVolume
		var volume sql.NullFloat64
		if err := rows.Scan(&tv.RunID, &tv.Filename, &volume, &tv.Segments, &tv.Edges,
			&tv.TotalLength, &tv.MaxRadius, &tv.Height, &tv.Warnings, &tv.Status, &tv.Error); err != nil {
			return nil, err
		}
		if volume.Valid {
			v := volume.Float64
			tv.VolumeM3 = &v
		}
		out = append(out, tv)
	}
	return out, rows.Err()
}
