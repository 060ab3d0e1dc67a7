package pointcloud

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/treevolume/internal/fsutil"
	"github.com/banshee-data/treevolume/internal/monitoring"
	"github.com/banshee-data/treevolume/internal/security"
)

// Format selects the point-cloud container written by a Converter.
type Format string

const (
	FormatPLY Format = "ply"
	FormatASC Format = "asc"
)

// ParseFormat validates a format name given on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPLY, FormatASC:
		return f, nil
	}
	return "", fmt.Errorf("unknown point cloud format %q (want ply or asc)", s)
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Converter turns raw point dumps into point-cloud files.
type Converter struct {
	FS     fsutil.FileSystem
	Format Format

	// Root, when set, confines destinations to this directory on the host
	// filesystem. Symlinks are resolved before the check.
	Root string
}

// NewConverter returns a converter writing format through fsys.
func NewConverter(fsys fsutil.FileSystem, format Format) *Converter {
	if format == "" {
		format = FormatPLY
	}
	return &Converter{FS: fsys, Format: format}
}

// OutputPath returns the destination inside outDir for the dump src.
func (c *Converter) OutputPath(outDir, src string) string {
	return security.OutputPath(outDir, src, c.Format.Ext())
}

// ConvertFile reads the point dump at src and writes it to dst, creating the
// destination directory when needed. It returns the number of points written.
func (c *Converter) ConvertFile(src, dst string) (int, error) {
	if c.Root != "" {
		if err := security.ValidatePathWithinDirectory(dst, c.Root); err != nil {
			return 0, err
		}
	}

	in, err := c.FS.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	points, err := ReadXYZ(in)
	in.Close()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("%s: %w", src, ErrNoPoints)
	}

	if err := c.FS.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	out, err := c.FS.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	switch c.Format {
	case FormatASC:
		err = ExportASC(out, points)
	default:
		err = WritePLY(out, points)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}

	monitoring.Logf("Converted %s to %s (%d points)", src, dst, len(points))
	return len(points), nil
}
