package testutil

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/treevolume/internal/fsutil"
)

// TreeHeader is the two-line header written at the top of tree files.
const TreeHeader = "# tree structure file\nx,y,z,radius,parent_id,section_id\n"

// Segment describes one cylinder segment of a fixture tree.
type Segment struct {
	X, Y, Z float64
	Radius  float64
	Parent  int
	Section int
}

// TreeLine encodes segments as a single snapshot line.
func TreeLine(segs ...Segment) string {
	parts := make([]string, 0, len(segs)*6)
	for _, s := range segs {
		parts = append(parts,
			formatFloat(s.X), formatFloat(s.Y), formatFloat(s.Z), formatFloat(s.Radius),
			strconv.Itoa(s.Parent), strconv.Itoa(s.Section))
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// TreeFile returns file content with the header followed by snapshot lines,
// the last being authoritative.
func TreeFile(snapshots ...string) string {
	var b strings.Builder
	b.WriteString(TreeHeader)
	for _, s := range snapshots {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTreeFile writes a tree file to fsys, failing the test on error.
func WriteTreeFile(t testing.TB, fsys fsutil.FileSystem, path string, snapshots ...string) {
	t.Helper()
	if err := fsys.WriteFile(path, []byte(TreeFile(snapshots...)), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StemTree is a trunk of three segments: a cylinder of radius 2 and length 5
// below a frustum tapering from radius 2 to 1 over another 5.
func StemTree() string {
	return TreeLine(
		Segment{Radius: 2, Parent: -1, Section: 0},
		Segment{Z: 5, Radius: 2, Parent: 0, Section: 1},
		Segment{Z: 10, Radius: 1, Parent: 1, Section: 2},
	)
}

// StemTreeVolume is the volume of StemTree, 20π + 35π/3.
const StemTreeVolume = 20*math.Pi + 35*math.Pi/3

// CylinderTree is a single cylinder of the given radius and height.
func CylinderTree(radius, height float64) string {
	return TreeLine(
		Segment{Radius: radius, Parent: -1},
		Segment{Z: height, Radius: radius, Parent: 0, Section: 1},
	)
}
