// Package treevol parses raycloud tree files and estimates the woody volume of
// a reconstructed tree from its cylinder segments.
//
// A tree is stored as a parent-linked list of segments. Each non-root segment
// and its parent bound a right circular frustum; the tree volume is the sum of
// those frustum volumes.
package treevol

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// FieldsPerSegment is the number of comma-separated tokens describing one
// segment: x, y, z, radius, parent index, section id.
const FieldsPerSegment = 6

// RootParent is the parent sentinel written for the root segment.
const RootParent = -1

// CylinderSegment is one node of a tree skeleton.
type CylinderSegment struct {
	// Index is the position of the segment within its record.
	Index    int
	Position r3.Vec
	Radius   float64
	// ParentIndex is RootParent (or Index itself) for the root segment.
	ParentIndex int
	// SectionID is the on-disk sixth column. It is informational only.
	SectionID int
}

// IsRoot reports whether s carries a root parent sentinel.
func (s CylinderSegment) IsRoot() bool {
	return s.ParentIndex == RootParent || s.ParentIndex == s.Index
}

// TreeRecord is the validated segment list of one tree. It is not modified
// after ParseRecord returns it.
type TreeRecord struct {
	Segments []CylinderSegment
	// Warnings holds non-fatal consistency notes found while parsing.
	Warnings []string
}

// Len returns the number of segments in the record.
func (t *TreeRecord) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Segments)
}

// Frustum is the truncated cone between a segment and its parent.
type Frustum struct {
	Segment      int
	Parent       int
	Length       float64
	ParentRadius float64
	ChildRadius  float64
}

// Volume returns the closed-form frustum volume.
func (f Frustum) Volume() float64 {
	return FrustumVolume(f.Length, f.ParentRadius, f.ChildRadius)
}

// Frustums derives one frustum per non-root segment, in segment order.
func (t *TreeRecord) Frustums() []Frustum {
	if t.Len() < 2 {
		return nil
	}
	out := make([]Frustum, 0, len(t.Segments)-1)
	for _, s := range t.Segments[1:] {
		p := t.Segments[s.ParentIndex]
		out = append(out, Frustum{
			Segment:      s.Index,
			Parent:       p.Index,
			Length:       r3.Norm(r3.Sub(s.Position, p.Position)),
			ParentRadius: p.Radius,
			ChildRadius:  s.Radius,
		})
	}
	return out
}
