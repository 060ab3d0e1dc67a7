// Package pointcloud converts raw point dumps into point-cloud files that the
// raycloud tools can ingest.
package pointcloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoPoints is returned when asked to write an empty point set.
var ErrNoPoints = errors.New("no points to export")

// plyVertexSize is the encoded size of one vertex: float32 x, y, z, a
// float64 time and four colour bytes.
const plyVertexSize = 3*4 + 8 + 4

// RGBA is an 8-bit per channel colour.
type RGBA struct {
	R, G, B, A uint8
}

// ReadXYZ reads whitespace-separated point lines. Comment lines starting with
// '#' and lines with fewer than three fields are skipped; extra columns after
// z are ignored.
func ReadXYZ(r io.Reader) ([]r3.Vec, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var points []r3.Vec
	for lineNo := 1; sc.Scan(); lineNo++ {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		var xyz [3]float64
		for i := range xyz {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			xyz[i] = v
		}
		points = append(points, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	return points, nil
}

// WritePLY writes points as a binary little-endian PLY point cloud. Each
// vertex carries its ordinal as time and a colour ramp derived from it,
// matching the layout raycloud tools expect.
func WritePLY(w io.Writer, points []r3.Vec) error {
	if len(points) == 0 {
		return ErrNoPoints
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\n")
	fmt.Fprintf(bw, "format binary_little_endian 1.0\n")
	fmt.Fprintf(bw, "comment generated by treevolume\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(points))
	for _, p := range []string{"float x", "float y", "float z", "double time", "uchar red", "uchar green", "uchar blue", "uchar alpha"} {
		fmt.Fprintf(bw, "property %s\n", p)
	}
	fmt.Fprintf(bw, "end_header\n")

	last := float64(len(points) - 1)
	buf := make([]byte, 0, plyVertexSize)
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			return fmt.Errorf("point %d: NaN coordinate", i)
		}
		t := float64(i)
		c := ColourByTime(t, 0, last)

		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.X)))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.Y)))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.Z)))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(t))
		buf = append(buf, c.R, c.G, c.B, c.A)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ColourByTime maps t within [lo, hi] onto a red, green, blue ramp.
func ColourByTime(t, lo, hi float64) RGBA {
	f := 0.0
	if hi > lo {
		f = (t - lo) / (hi - lo)
	}
	f = math.Max(0, math.Min(1, f))

	var r, g, b float64
	if f < 0.5 {
		r, g = 1-2*f, 2*f
	} else {
		g, b = 2-2*f, 2*f-1
	}
	return RGBA{R: uint8(math.Round(255 * r)), G: uint8(math.Round(255 * g)), B: uint8(math.Round(255 * b)), A: 255}
}
