package treevol

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// HeaderLines is the number of leading metadata lines in a tree file.
const HeaderLines = 2

// maxLineBytes bounds a single snapshot line. Large trees produce lines of
// several megabytes.
const maxLineBytes = 64 << 20

// LineKind classifies a line of a tree file.
type LineKind int

const (
	LineHeader LineKind = iota
	LineBlank
	LineSnapshot
)

func (k LineKind) String() string {
	switch k {
	case LineHeader:
		return "header"
	case LineBlank:
		return "blank"
	case LineSnapshot:
		return "snapshot"
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// ClassifyLine returns the kind of the 0-based line lineNo.
func ClassifyLine(lineNo int, line string) LineKind {
	if lineNo < HeaderLines {
		return LineHeader
	}
	if strings.TrimSpace(line) == "" {
		return LineBlank
	}
	return LineSnapshot
}

// SelectFinalSnapshot scans r and returns the last snapshot line. Earlier
// snapshots are intermediate iterations of the reconstruction and are not
// parsed. A file without any snapshot line is malformed.
func SelectFinalSnapshot(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var last string
	found := false
	for lineNo := 0; sc.Scan(); lineNo++ {
		line := sc.Text()
		if ClassifyLine(lineNo, line) == LineSnapshot {
			last = line
			found = true
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read tree file: %w", err)
	}
	if !found {
		return "", malformed(-1, "no snapshot line after header", nil)
	}
	return last, nil
}

// ReadTreeFile selects the final snapshot of a tree file and parses it.
func ReadTreeFile(r io.Reader) (*TreeRecord, error) {
	line, err := SelectFinalSnapshot(r)
	if err != nil {
		return nil, err
	}
	return ParseRecord(line)
}
