package pointcloud

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
)

// ExportASC writes points to a CloudCompare-compatible .asc text file.
func ExportASC(w io.Writer, points []r3.Vec) error {
	if len(points) == 0 {
		return ErrNoPoints
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z\n")
	for _, p := range points {
		fmt.Fprintf(bw, "%.6f %.6f %.6f\n", p.X, p.Y, p.Z)
	}
	return bw.Flush()
}
