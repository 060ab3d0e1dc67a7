package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/treevolume/internal/batch"
	"github.com/banshee-data/treevolume/internal/db"
	"github.com/banshee-data/treevolume/internal/extract"
	"github.com/banshee-data/treevolume/internal/fsutil"
	"github.com/banshee-data/treevolume/internal/monitoring"
	"github.com/banshee-data/treevolume/internal/pointcloud"
	"github.com/banshee-data/treevolume/internal/report"
	"github.com/banshee-data/treevolume/internal/units"
)

// errStrictFailures signals exit status 2 without printing another error.
var errStrictFailures = errors.New("one or more files failed")

type env struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
}

func (e *env) orchestrator(o *options) *batch.Orchestrator {
	return batch.New(fsutil.OSFileSystem{}, o.workers)
}

func (e *env) handleConvert(args []string) error {
	o := newOptions("convert", e.stderr).withBatch().withConvert()
	o.fs.StringVar(&o.in, "in", "", "directory of raw point dumps (required)")
	o.fs.StringVar(&o.out, "out", "", "output directory (default: same as -in)")
	if err := o.parse(args); err != nil {
		return err
	}
	if err := o.require("in", o.in); err != nil {
		return err
	}
	if o.out == "" {
		o.out = o.in
	}

	run, err := e.convert(o, o.in, o.out)
	if err != nil {
		return err
	}
	return e.finish(o, run)
}

func (e *env) convert(o *options, in, out string) (*batch.Run, error) {
	format, err := pointcloud.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	conv := pointcloud.NewConverter(fsutil.OSFileSystem{}, format)
	conv.Root = out
	return e.orchestrator(o).ConvertDir(e.ctx, conv, in, out, o.pointsSuffix)
}

func (e *env) handleExtract(args []string) error {
	o := newOptions("extract", e.stderr).withBatch().withExtract()
	o.fs.StringVar(&o.in, "in", "", "directory of point clouds (required)")
	if err := o.parse(args); err != nil {
		return err
	}
	if err := o.require("in", o.in); err != nil {
		return err
	}

	run, err := e.extract(o, o.in)
	if err != nil {
		return err
	}
	return e.finish(o, run)
}

func (e *env) extract(o *options, dir string) (*batch.Run, error) {
	runner := extract.NewRunner(o.extractor, o.cfg.ExtractorArgs...)
	runner.Timeout = o.timeout
	runner.Root = dir
	return e.orchestrator(o).ExtractDir(e.ctx, runner, dir, o.cloudSuffix)
}

func (e *env) handleVolume(args []string) error {
	o := newOptions("volume", e.stderr).withBatch().withVolume()
	o.fs.StringVar(&o.in, "in", "", "directory of tree files (required)")
	if err := o.parse(args); err != nil {
		return err
	}
	if err := o.require("in", o.in); err != nil {
		return err
	}
	return e.volume(o, o.in)
}

func (e *env) volume(o *options, dir string) error {
	run, err := e.orchestrator(o).EstimateDir(e.ctx, dir, o.treeSuffix)
	if err != nil {
		return err
	}

	if err := e.writeReports(o, run); err != nil {
		return err
	}
	if o.save {
		store, err := db.NewDB(o.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Fprintf(e.stderr, "Saved run %s to %s\n", run.ID, o.dbPath)
	}
	return e.finish(o, run)
}

func (e *env) writeReports(o *options, run *batch.Run) error {
	if o.csvPath == "" {
		if err := report.WriteCSV(e.stdout, run.Results, o.unit); err != nil {
			return err
		}
	} else if err := writeFile(o.csvPath, func(w io.Writer) error {
		return report.WriteCSV(w, run.Results, o.unit)
	}); err != nil {
		return err
	}

	if o.histogramPath != "" {
		err := report.WriteHistogramPNG(o.histogramPath, run.Results, o.bins, o.unit)
		if errors.Is(err, report.ErrNoVolumes) {
			fmt.Fprintln(e.stderr, "Skipping histogram: no successful volumes")
		} else if err != nil {
			return err
		}
	}
	if o.chartPath != "" {
		err := writeFile(o.chartPath, func(w io.Writer) error {
			return report.WriteChartHTML(w, run.Results, o.unit)
		})
		if errors.Is(err, report.ErrNoVolumes) {
			fmt.Fprintln(e.stderr, "Skipping chart: no successful volumes")
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (e *env) handlePipeline(args []string) error {
	o := newOptions("pipeline", e.stderr).withBatch().withConvert().withExtract().withVolume()
	o.fs.StringVar(&o.in, "in", "", "directory of raw point dumps (required)")
	o.fs.StringVar(&o.work, "work", "", "directory for point clouds and tree files (default: same as -in)")
	if err := o.parse(args); err != nil {
		return err
	}
	if err := o.require("in", o.in); err != nil {
		return err
	}
	if o.work == "" {
		o.work = o.in
	}
	if o.format != string(pointcloud.FormatPLY) {
		return fmt.Errorf("pipeline needs -format ply for extraction, got %q", o.format)
	}

	converted, err := e.convert(o, o.in, o.work)
	if err != nil {
		return err
	}
	e.printSummary("convert", converted)
	if err := e.ctx.Err(); err != nil {
		return err
	}

	extracted, err := e.extract(o, o.work)
	if err != nil {
		return err
	}
	e.printSummary("extract", extracted)
	if err := e.ctx.Err(); err != nil {
		return err
	}

	return e.volume(o, o.work)
}

func (e *env) handleRuns(args []string) error {
	o := newOptions("runs", e.stderr).withDB()
	o.fs.StringVar(&o.runID, "run", "", "show the trees of this run")
	o.fs.StringVar(&o.unit, "unit", units.M3, "volume unit: "+units.GetValidUnitsString())
	if err := o.parse(args); err != nil {
		return err
	}

	store, err := db.NewDB(o.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if o.runID == "" {
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tDIR\tTOTAL\tOK\tFAILED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%d\t%d\t%d\n", r.RunID, r.StartedAt.Local().Format(time.DateTime),
				r.Duration, r.InputDir, r.Total, r.Succeeded, r.Failed)
		}
		return nil
	}

	vols, err := store.TreeVolumes(o.runID)
	if err != nil {
		return err
	}
	if len(vols) == 0 {
		return fmt.Errorf("no results for run %s", o.runID)
	}
	fmt.Fprintf(tw, "FILE\tVOLUME (%s)\tSEGMENTS\tHEIGHT\tSTATUS\tERROR\n", units.Label(o.unit))
	for _, v := range vols {
		volume := "-"
		if v.VolumeM3 != nil {
			volume = fmt.Sprintf("%.4f", units.ConvertVolume(*v.VolumeM3, o.unit))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\n", v.Filename, volume, v.Segments, v.Height, v.Status, v.Error)
	}
	return nil
}

func (e *env) handleServe(args []string) error {
	o := newOptions("serve", e.stderr).withDB()
	o.fs.StringVar(&o.listen, "listen", "localhost:8090", "listen address")
	if err := o.parse(args); err != nil {
		return err
	}

	store, err := db.NewDB(o.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	mux := http.NewServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}
	mux.Handle("/", http.RedirectHandler("/debug/", http.StatusFound))

	server := &http.Server{Addr: o.listen, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("Serving %s on http://%s/debug/", o.dbPath, o.listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-e.ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
	}
	return nil
}

func (e *env) handleMigrate(args []string) error {
	o := newOptions("migrate", e.stderr).withDB()
	if err := o.parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(e.stdout, o.fs.Args(), o.dbPath)
}

// finish prints the run summary and applies -strict.
func (e *env) finish(o *options, run *batch.Run) error {
	e.printSummary("", run)
	if o.strict && run.Summary().Failed > 0 {
		return errStrictFailures
	}
	return nil
}

func (e *env) printSummary(stage string, run *batch.Run) {
	if stage != "" {
		stage += ": "
	}
	fmt.Fprintf(e.stderr, "%s%s\n", stage, run.Summary())
	for _, r := range run.Results {
		if r.Err != nil {
			fmt.Fprintf(e.stderr, "  FAILED %s: %v\n", r.Filename, r.Err)
		}
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
