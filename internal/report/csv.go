// Package report renders batch results as a CSV table, a histogram image and
// an HTML chart.
package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/banshee-data/treevolume/internal/batch"
	"github.com/banshee-data/treevolume/internal/units"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"Filename", "Volume", "Status", "Error"}

// sortedByName returns results ordered by filename without modifying the input.
func sortedByName(results []batch.FileResult) []batch.FileResult {
	out := append([]batch.FileResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// WriteCSV writes one row per file, sorted by filename. Failed files are
// kept with an empty volume, status "failed" and the error text.
func WriteCSV(w io.Writer, results []batch.FileResult, unit string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range sortedByName(results) {
		row := []string{r.Filename, "", r.Status(), ""}
		if r.Err != nil {
			row[3] = r.Err.Error()
		} else {
			row[1] = strconv.FormatFloat(units.ConvertVolume(r.Volume, unit), 'f', 6, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
