package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/treevolume/internal/config"
	"github.com/banshee-data/treevolume/internal/units"
)

// options holds every setting a subcommand may expose. Each subcommand
// registers only the flags it uses; resolve fills the rest from the config
// file or the built-in defaults.
type options struct {
	fs         *flag.FlagSet
	configPath string
	cfg        *config.PipelineConfig

	in, out, work string
	workers       int

	pointsSuffix, cloudSuffix, treeSuffix string
	format                                string

	extractor string
	timeout   time.Duration

	csvPath, histogramPath, chartPath string
	unit                              string
	bins                              int

	dbPath string
	save   bool
	strict bool
	listen string
	runID  string
}

func newOptions(name string, stderr io.Writer) *options {
	o := &options{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	o.fs.SetOutput(stderr)
	o.fs.StringVar(&o.configPath, "config", "", "JSON pipeline configuration file")
	return o
}

func (o *options) withBatch() *options {
	o.fs.IntVar(&o.workers, "workers", 0, "files processed concurrently (0 = one per CPU)")
	return o
}

func (o *options) withConvert() *options {
	o.fs.StringVar(&o.pointsSuffix, "points-suffix", config.DefaultPointsSuffix, "suffix of raw point dumps")
	o.fs.StringVar(&o.format, "format", "ply", "output format: ply or asc")
	return o
}

func (o *options) withExtract() *options {
	o.fs.StringVar(&o.cloudSuffix, "cloud-suffix", config.DefaultCloudSuffix, "suffix of point clouds")
	o.fs.StringVar(&o.extractor, "cmd", config.DefaultExtractorCommand, "tree extraction executable")
	o.fs.DurationVar(&o.timeout, "timeout", config.DefaultExtractorTimeout, "time limit per point cloud")
	return o
}

func (o *options) withVolume() *options {
	o.fs.StringVar(&o.treeSuffix, "suffix", config.DefaultTreeSuffix, "suffix of tree files")
	o.fs.StringVar(&o.csvPath, "csv", "", "write the volume table here (default stdout)")
	o.fs.StringVar(&o.histogramPath, "histogram", "", "write a volume histogram image (.png, .svg, .pdf)")
	o.fs.StringVar(&o.chartPath, "chart", "", "write an HTML bar chart of volumes")
	o.fs.StringVar(&o.unit, "unit", units.M3, "volume unit: "+units.GetValidUnitsString())
	o.fs.IntVar(&o.bins, "bins", config.DefaultHistogramBins, "histogram bins")
	o.fs.BoolVar(&o.save, "save", false, "store the run in the results database")
	o.fs.BoolVar(&o.strict, "strict", false, "exit with status 2 if any file failed")
	return o.withDB()
}

func (o *options) withDB() *options {
	o.fs.StringVar(&o.dbPath, "db", config.DefaultDBPath, "results database path")
	return o
}

// parse parses args and layers the config file under any flag not given
// explicitly.
func (o *options) parse(args []string) error {
	if err := o.fs.Parse(args); err != nil {
		return err
	}

	o.cfg = config.EmptyPipelineConfig()
	if o.configPath != "" {
		cfg, err := config.LoadPipelineConfig(o.configPath)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}

	set := map[string]bool{}
	o.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	fromConfig := func(name string, apply func()) {
		if o.fs.Lookup(name) != nil && !set[name] {
			apply()
		}
	}
	fromConfig("workers", func() { o.workers = o.cfg.GetWorkers() })
	fromConfig("points-suffix", func() { o.pointsSuffix = o.cfg.GetPointsSuffix() })
	fromConfig("cloud-suffix", func() { o.cloudSuffix = o.cfg.GetCloudSuffix() })
	fromConfig("suffix", func() { o.treeSuffix = o.cfg.GetTreeSuffix() })
	fromConfig("cmd", func() { o.extractor = o.cfg.GetExtractorCommand() })
	fromConfig("timeout", func() { o.timeout = o.cfg.GetExtractorTimeout() })
	fromConfig("unit", func() { o.unit = o.cfg.GetVolumeUnit() })
	fromConfig("bins", func() { o.bins = o.cfg.GetHistogramBins() })
	fromConfig("db", func() { o.dbPath = o.cfg.GetDBPath() })

	if o.fs.Lookup("unit") != nil && !units.IsValid(o.unit) {
		return fmt.Errorf("invalid unit %q (want %s)", o.unit, units.GetValidUnitsString())
	}
	if o.fs.Lookup("timeout") != nil && o.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", o.timeout)
	}
	return nil
}

// require reports a usage error when a mandatory string flag is empty.
func (o *options) require(name, value string) error {
	if value == "" {
		o.fs.Usage()
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}
