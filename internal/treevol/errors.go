package treevol

import (
	"fmt"
)

// MalformedRecordError reports a snapshot line or record file that does not
// match the six-field segment schema.
type MalformedRecordError struct {
	// Token is the 0-based token ordinal at fault, or -1 when the problem
	// is with the line as a whole.
	Token  int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := "malformed tree record: " + e.Reason
	if e.Token >= 0 {
		msg = fmt.Sprintf("malformed tree record: token %d: %s", e.Token, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// DanglingParentError reports a non-root segment whose parent index does not
// resolve to an earlier segment of the same record.
type DanglingParentError struct {
	Segment int
	Parent  int
	Count   int
}

func (e *DanglingParentError) Error() string {
	if e.Parent >= 0 && e.Parent < e.Count {
		return fmt.Sprintf("segment %d: parent %d is not an earlier segment", e.Segment, e.Parent)
	}
	return fmt.Sprintf("segment %d: parent %d out of range [0,%d)", e.Segment, e.Parent, e.Count)
}

// InvalidGeometryError reports a segment whose geometry cannot describe a
// physical frustum end, i.e. a negative radius.
type InvalidGeometryError struct {
	Segment int
	Radius  float64
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("segment %d: negative radius %g", e.Segment, e.Radius)
}

func malformed(token int, reason string, err error) error {
	return &MalformedRecordError{Token: token, Reason: reason, Err: err}
}
