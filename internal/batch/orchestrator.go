// Package batch fans per-file work out over a bounded worker pool. A file that
// fails is recorded in its result and never aborts the rest of the batch.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/treevolume/internal/extract"
	"github.com/banshee-data/treevolume/internal/fsutil"
	"github.com/banshee-data/treevolume/internal/monitoring"
	"github.com/banshee-data/treevolume/internal/pointcloud"
	"github.com/banshee-data/treevolume/internal/timeutil"
	"github.com/banshee-data/treevolume/internal/treevol"
)

var logf = monitoring.Prefixed("batch")

// FileResult is the outcome for one input file.
type FileResult struct {
	Filename string
	Path     string
	// Output is the file produced by conversion, if any.
	Output   string
	Points   int
	Volume   float64
	Stats    treevol.TreeStats
	Warnings []string
	Duration time.Duration
	Err      error
}

// Result status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// OK reports whether the file was processed successfully.
func (r FileResult) OK() bool { return r.Err == nil }

// Status returns StatusOK or StatusFailed.
func (r FileResult) Status() string {
	if r.Err != nil {
		return StatusFailed
	}
	return StatusOK
}

// Run is one pass over a directory.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Dir       string
	Suffix    string
	Results   []FileResult
}

// Summary summarizes the run's results.
func (r *Run) Summary() Summary { return Summarize(r.Results) }

// Orchestrator runs per-file work concurrently.
type Orchestrator struct {
	FS      fsutil.FileSystem
	Workers int
	Clock   timeutil.Clock
}

// New returns an orchestrator over fsys. workers <= 0 uses one worker per CPU.
func New(fsys fsutil.FileSystem, workers int) *Orchestrator {
	return &Orchestrator{FS: fsys, Workers: workers, Clock: timeutil.RealClock{}}
}

func (o *Orchestrator) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o *Orchestrator) clock() timeutil.Clock {
	if o.Clock == nil {
		return timeutil.RealClock{}
	}
	return o.Clock
}

// EstimateDir computes the volume of every tree file in dir ending in suffix.
func (o *Orchestrator) EstimateDir(ctx context.Context, dir, suffix string) (*Run, error) {
	return o.run(ctx, "estimate", dir, suffix, func(_ context.Context, path string) FileResult {
		return o.estimateFile(path)
	})
}

func (o *Orchestrator) estimateFile(path string) FileResult {
	res := FileResult{Filename: filepath.Base(path), Path: path}
	f, err := o.FS.Open(path)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()

	rec, err := treevol.ReadTreeFile(f)
	if err != nil {
		res.Err = err
		return res
	}
	res.Volume = treevol.ComputeVolume(rec)
	res.Stats = rec.Stats()
	res.Warnings = rec.Warnings
	return res
}

// ConvertDir converts every point dump in dir ending in suffix into outDir.
func (o *Orchestrator) ConvertDir(ctx context.Context, conv *pointcloud.Converter, dir, outDir, suffix string) (*Run, error) {
	return o.run(ctx, "convert", dir, suffix, func(_ context.Context, path string) FileResult {
		res := FileResult{Filename: filepath.Base(path), Path: path, Output: conv.OutputPath(outDir, path)}
		res.Points, res.Err = conv.ConvertFile(path, res.Output)
		return res
	})
}

// ExtractDir runs the extraction tool on every point cloud in dir ending in
// suffix. A timeout or non-zero exit fails only that file.
func (o *Orchestrator) ExtractDir(ctx context.Context, runner *extract.Runner, dir, suffix string) (*Run, error) {
	return o.run(ctx, "extract", dir, suffix, func(ctx context.Context, path string) FileResult {
		res := FileResult{Filename: filepath.Base(path), Path: path}
		_, res.Err = runner.Run(ctx, path)
		return res
	})
}

func (o *Orchestrator) run(ctx context.Context, op, dir, suffix string, task func(context.Context, string) FileResult) (*Run, error) {
	paths, err := ListFiles(o.FS, dir, suffix)
	if err != nil {
		return nil, err
	}

	clock := o.clock()
	run := &Run{
		ID:        uuid.New(),
		StartedAt: clock.Now(),
		Dir:       dir,
		Suffix:    suffix,
		Results:   make([]FileResult, len(paths)),
	}
	logf("%s %s: %d files matching %q, %d workers", op, run.ID, len(paths), suffix, o.workers())

	var g errgroup.Group
	g.SetLimit(o.workers())
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				run.Results[j] = FileResult{Filename: filepath.Base(paths[j]), Path: paths[j], Err: fmt.Errorf("not started: %w", err)}
			}
			break
		}
		g.Go(func() error {
			start := clock.Now()
			res := task(ctx, path)
			res.Duration = clock.Since(start)
			if res.Err != nil {
				logf("%s %s: %v", op, res.Filename, res.Err)
			}
			for _, w := range res.Warnings {
				logf("%s %s: warning: %s", op, res.Filename, w)
			}
			run.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	run.Duration = clock.Since(run.StartedAt)
	logf("%s %s done in %v: %s", op, run.ID, run.Duration.Round(time.Millisecond), run.Summary())
	return run, nil
}
