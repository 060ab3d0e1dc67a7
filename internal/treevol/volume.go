package treevol

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// FrustumVolume returns the volume of a right circular frustum of axial
// length l with end radii r0 and r1. It is a cylinder when r0 == r1 and a
// cone when either radius is zero.
func FrustumVolume(l, r0, r1 float64) float64 {
	return math.Pi * l / 3 * (r0*r0 + r0*r1 + r1*r1)
}

// ComputeVolume sums the frustum volumes of every non-root segment of rec.
// A single-segment record has volume 0.
//
// Terms are summed smallest first so the result does not depend on segment
// order. ComputeVolume holds no state and may be called concurrently.
func ComputeVolume(rec *TreeRecord) float64 {
	frustums := rec.Frustums()
	if len(frustums) == 0 {
		return 0
	}
	vols := make([]float64, len(frustums))
	for i, f := range frustums {
		vols[i] = f.Volume()
	}
	sort.Float64s(vols)
	return floats.Sum(vols)
}
