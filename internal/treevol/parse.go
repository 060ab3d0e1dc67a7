package treevol

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ParseRecord turns one snapshot line into a validated TreeRecord.
//
// The line is a comma-separated list of numeric tokens grouped in sixes:
// x, y, z, radius, parent index, section id. Segment 0 is the root and must
// carry parent -1 (or 0); every other segment must name an earlier segment as
// its parent.
func ParseRecord(line string) (*TreeRecord, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, malformed(-1, "empty snapshot line", nil)
	}
	tokens := strings.Split(line, ",")
	if len(tokens)%FieldsPerSegment != 0 {
		return nil, malformed(-1, fmt.Sprintf("token count %d is not a multiple of %d", len(tokens), FieldsPerSegment), nil)
	}

	n := len(tokens) / FieldsPerSegment
	rec := &TreeRecord{Segments: make([]CylinderSegment, n)}

	for i := 0; i < n; i++ {
		base := i * FieldsPerSegment
		var coords [4]float64
		for k := range coords {
			v, err := parseFloatToken(tokens[base+k])
			if err != nil {
				return nil, malformed(base+k, fmt.Sprintf("segment %d", i), err)
			}
			coords[k] = v
		}
		parent, err := parseIntToken(tokens[base+4])
		if err != nil {
			return nil, malformed(base+4, fmt.Sprintf("segment %d parent", i), err)
		}
		section, err := parseIntToken(tokens[base+5])
		if err != nil {
			return nil, malformed(base+5, fmt.Sprintf("segment %d section", i), err)
		}
		if coords[3] < 0 {
			return nil, &InvalidGeometryError{Segment: i, Radius: coords[3]}
		}

		seg := CylinderSegment{
			Index:       i,
			Position:    r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]},
			Radius:      coords[3],
			ParentIndex: parent,
			SectionID:   section,
		}
		if err := checkParent(seg, n); err != nil {
			return nil, err
		}
		if section != i {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("segment %d: section id %d does not match position", i, section))
		}
		rec.Segments[i] = seg
	}
	return rec, nil
}

// checkParent enforces that segment 0 is the only root and that all other
// parents point strictly backwards, which also rules out cycles.
func checkParent(s CylinderSegment, n int) error {
	if s.Index == 0 {
		if !s.IsRoot() {
			return &DanglingParentError{Segment: 0, Parent: s.ParentIndex, Count: n}
		}
		return nil
	}
	if s.ParentIndex < 0 || s.ParentIndex >= s.Index {
		return &DanglingParentError{Segment: s.Index, Parent: s.ParentIndex, Count: n}
	}
	return nil
}

func parseFloatToken(tok string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", tok)
	}
	return v, nil
}

// parseIntToken accepts plain integers and integral floats such as "3.0",
// which some writers emit for index columns.
func parseIntToken(tok string) (int, error) {
	tok = strings.TrimSpace(tok)
	if v, err := strconv.Atoi(tok); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", tok)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("invalid integer %q", tok)
	}
	return int(f), nil
}
