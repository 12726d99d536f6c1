package compliance

import (
	"math"
	"time"

	"github.com/bruadam/hvx-sub000/internal/rules"
)

// Violation is one maximal contiguous run of non-compliant samples. Start
// is the first non-compliant timestamp; End is the timestamp at which the
// series recovers, or the last sample when the run never recovers.
type Violation struct {
	Start              time.Time `json:"start" yaml:"start"`
	End                time.Time `json:"end" yaml:"end"`
	DurationHours      float64   `json:"duration_hours" yaml:"duration_hours"`
	BoundaryValueStart float64   `json:"boundary_value_start" yaml:"boundary_value_start"`
	BoundaryValueEnd   float64   `json:"boundary_value_end" yaml:"boundary_value_end"`
}

// FindViolations scans a compliance series chronologically and extracts
// violation intervals. The series' compliant/value/timestamp slices are
// index-aligned; a run still open at the final sample closes there.
func FindViolations(series rules.Series) []Violation {
	var out []Violation
	n := len(series.Compliant)
	if n == 0 || len(series.Timestamps) != n {
		return out
	}

	open := -1
	for i := 0; i < n; i++ {
		switch {
		case !series.Compliant[i] && open < 0:
			open = i
		case series.Compliant[i] && open >= 0:
			out = append(out, makeViolation(series, open, i))
			open = -1
		}
	}
	if open >= 0 {
		out = append(out, makeViolation(series, open, n-1))
	}
	return out
}

// makeViolation closes the run [start, end]. Boundary values fall back to
// the first/last recorded value inside the run when the exact endpoint
// sample is missing.
func makeViolation(series rules.Series, start, end int) Violation {
	v := Violation{
		Start:              series.Timestamps[start],
		End:                series.Timestamps[end],
		BoundaryValueStart: valueAt(series.Values, start, end, +1),
		BoundaryValueEnd:   valueAt(series.Values, end, start, -1),
	}
	v.DurationHours = v.End.Sub(v.Start).Hours()
	return v
}

// valueAt returns the value at idx, or the nearest recorded value walking
// toward bound in steps of dir when idx holds NaN.
func valueAt(values []float64, idx, bound, dir int) float64 {
	for i := idx; i >= 0 && i < len(values); i += dir {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
		if i == bound {
			break
		}
	}
	return math.NaN()
}
