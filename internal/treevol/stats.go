package treevol

import (
	"math"
)

// TreeStats summarises the skeleton of a tree alongside its volume.
type TreeStats struct {
	Segments    int
	Edges       int
	TotalLength float64
	MaxRadius   float64
	BaseRadius  float64
	// Height is the vertical extent of the segment positions.
	Height float64
}

// Stats walks the record once and returns its summary.
func (t *TreeRecord) Stats() TreeStats {
	var st TreeStats
	if t.Len() == 0 {
		return st
	}
	st.Segments = len(t.Segments)
	st.BaseRadius = t.Segments[0].Radius

	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, s := range t.Segments {
		st.MaxRadius = math.Max(st.MaxRadius, s.Radius)
		minZ = math.Min(minZ, s.Position.Z)
		maxZ = math.Max(maxZ, s.Position.Z)
	}
	st.Height = maxZ - minZ

	for _, f := range t.Frustums() {
		st.Edges++
		st.TotalLength += f.Length
	}
	return st
}
