package batch

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a run. Volume figures cover successful files only.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int

	TotalVolume  float64
	MeanVolume   float64
	StdDevVolume float64
}

// Summarize computes the summary of results.
func Summarize(results []FileResult) Summary {
	s := Summary{Total: len(results)}
	volumes := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		volumes = append(volumes, r.Volume)
	}

	switch len(volumes) {
	case 0:
	case 1:
		s.TotalVolume = volumes[0]
		s.MeanVolume = volumes[0]
	default:
		s.TotalVolume = floats.Sum(volumes)
		s.MeanVolume, s.StdDevVolume = stat.MeanStdDev(volumes, nil)
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d files, %d ok, %d failed, total %.4f m3 (mean %.4f, sd %.4f)",
		s.Total, s.Succeeded, s.Failed, s.TotalVolume, s.MeanVolume, s.StdDevVolume)
}
