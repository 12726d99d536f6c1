package rules

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bruadam/hvx-sub000/internal/expr"
	"github.com/bruadam/hvx-sub000/internal/timefilter"
	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

// Series is the per-timestamp outcome of one rule over the rows that
// survived time filtering. Values carries the driving measurement for
// violation boundary reporting; it is NaN where no single column drives
// the rule.
type Series struct {
	Compliant  []bool
	Values     []float64
	Timestamps []time.Time
}

// Evaluator applies one rule definition to one measurement table.
// Evaluation is pure and synchronous; concurrent evaluations may share
// one Evaluator because the only shared state is the holiday cache inside
// the pipeline.
type Evaluator struct {
	pipeline *timefilter.Pipeline
}

// NewEvaluator creates a rule evaluator over the given filter pipeline.
func NewEvaluator(pipeline *timefilter.Pipeline) *Evaluator {
	return &Evaluator{pipeline: pipeline}
}

// Evaluate produces the compliance series of a rule over a table.
//
// Fail-closed: an unknown rule kind yields an all-false series sized to
// the filtered row count; an unresolvable feature column yields an empty
// series so the aggregated result reads "not evaluable" instead of "0%
// compliant". Nothing in here raises; a bad rule must not abort the batch
// it runs in.
func (e *Evaluator) Evaluate(t *timeseries.Table, def *Definition) Series {
	filtered := e.pipeline.Apply(t, def.PeriodSpec, def.FilterSpec)
	if filtered == nil || filtered.Len() == 0 {
		return Series{}
	}

	switch def.Kind {
	case KindComplex:
		return e.evaluateComplex(filtered, def)
	case KindBidirectional:
		return e.evaluateBidirectional(filtered, def)
	case KindUnidirectional:
		return e.evaluateUnidirectional(filtered, def)
	}

	log.Warn().Str("rule", def.ID).Str("kind", string(def.Kind)).Msg("unknown rule kind, marking all rows non-compliant")
	return allFalse(filtered)
}

// evaluateComplex walks the logic tree per surviving row. The variable
// map carries every column plus derived time fields, so rules can mix
// measurements with schedule conditions (hour, weekday, holiday).
func (e *Evaluator) evaluateComplex(t *timeseries.Table, def *Definition) Series {
	column := ResolveColumn(t, def.Feature)
	series := Series{
		Compliant:  make([]bool, t.Len()),
		Values:     make([]float64, t.Len()),
		Timestamps: append([]time.Time(nil), t.Timestamps()...),
	}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		ts := t.Timestamp(i)
		row["hour"] = float64(ts.Hour())
		row["weekday"] = float64(int(ts.Weekday()+6) % 7) // 0 = Monday
		row["month"] = float64(int(ts.Month()))
		row["day_of_year"] = float64(ts.YearDay())
		row["is_holiday"] = 0
		if e.pipeline.IsHoliday(ts) {
			row["is_holiday"] = 1
		}

		series.Compliant[i] = expr.Evaluate(def.Logic, row)
		series.Values[i] = math.NaN()
		if column != "" {
			series.Values[i] = t.Column(column)[i]
		}
	}
	return series
}

func (e *Evaluator) evaluateBidirectional(t *timeseries.Table, def *Definition) Series {
	values, stamps, ok := e.resolveValues(t, def)
	if !ok {
		return Series{}
	}
	series := Series{
		Compliant:  make([]bool, len(values)),
		Values:     values,
		Timestamps: stamps,
	}
	for i, v := range values {
		compliant := true
		if def.Limits.Lower != nil && v < *def.Limits.Lower {
			compliant = false
		}
		if def.Limits.Upper != nil && v > *def.Limits.Upper {
			compliant = false
		}
		series.Compliant[i] = compliant
	}
	return series
}

func (e *Evaluator) evaluateUnidirectional(t *timeseries.Table, def *Definition) Series {
	values, stamps, ok := e.resolveValues(t, def)
	if !ok {
		return Series{}
	}
	series := Series{
		Compliant:  make([]bool, len(values)),
		Values:     values,
		Timestamps: stamps,
	}
	for i, v := range values {
		if def.Direction == Descending {
			series.Compliant[i] = v >= def.Limit
		} else {
			series.Compliant[i] = v <= def.Limit
		}
	}
	return series
}

// resolveValues finds the feature column and drops missing samples.
func (e *Evaluator) resolveValues(t *timeseries.Table, def *Definition) ([]float64, []time.Time, bool) {
	column := ResolveColumn(t, def.Feature)
	if column == "" {
		log.Warn().Str("rule", def.ID).Str("feature", def.Feature).Msg("feature column not found, rule not evaluable on this table")
		return nil, nil, false
	}
	values, stamps := t.DropMissing(column)
	return values, stamps, true
}

func allFalse(t *timeseries.Table) Series {
	return Series{
		Compliant:  make([]bool, t.Len()),
		Values:     nanSlice(t.Len()),
		Timestamps: append([]time.Time(nil), t.Timestamps()...),
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
