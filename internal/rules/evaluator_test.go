package rules

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruadam/hvx-sub000/internal/expr"
	"github.com/bruadam/hvx-sub000/internal/holiday"
	"github.com/bruadam/hvx-sub000/internal/timefilter"
	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

func newEvaluator() *Evaluator {
	return NewEvaluator(timefilter.NewPipeline(holiday.NewSource(nil), "dk"))
}

func hourlyTable(t *testing.T, column string, values []float64) *timeseries.Table {
	t.Helper()
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, len(values))
	for i := range values {
		timestamps[i] = start.Add(time.Duration(i) * time.Hour)
	}
	table := timeseries.NewTable(timestamps)
	require.NoError(t, table.AddColumn(column, values))
	return table
}

func f64(v float64) *float64 { return &v }

func TestEvaluateBidirectional(t *testing.T) {
	// {lower: 20, upper: 26} over [19, 20, 23, 26, 27] → [F,T,T,T,F].
	table := hourlyTable(t, "temperature", []float64{19, 20, 23, 26, 27})
	def := &Definition{
		ID:      "en16798_temp_range",
		Feature: "temperature",
		Kind:    KindBidirectional,
		Limits:  &Limits{Lower: f64(20), Upper: f64(26)},
	}

	series := newEvaluator().Evaluate(table, def)
	assert.Equal(t, []bool{false, true, true, true, false}, series.Compliant)
}

func TestEvaluateBidirectionalOneSided(t *testing.T) {
	table := hourlyTable(t, "temperature", []float64{19, 23, 27})
	evaluator := newEvaluator()

	lowerOnly := &Definition{
		ID: "r", Feature: "temperature", Kind: KindBidirectional,
		Limits: &Limits{Lower: f64(20)},
	}
	assert.Equal(t, []bool{false, true, true}, evaluator.Evaluate(table, lowerOnly).Compliant)

	upperOnly := &Definition{
		ID: "r", Feature: "temperature", Kind: KindBidirectional,
		Limits: &Limits{Upper: f64(26)},
	}
	assert.Equal(t, []bool{true, true, false}, evaluator.Evaluate(table, upperOnly).Compliant)
}

func TestEvaluateBidirectionalProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	evaluator := newEvaluator()

	for i := 0; i < 200; i++ {
		lower := rng.Float64()*50 - 10
		upper := lower + rng.Float64()*30
		value := rng.Float64()*80 - 20

		table := hourlyTable(t, "temperature", []float64{value})
		def := &Definition{
			ID: "prop", Feature: "temperature", Kind: KindBidirectional,
			Limits: &Limits{Lower: &lower, Upper: &upper},
		}
		series := evaluator.Evaluate(table, def)
		require.Len(t, series.Compliant, 1)
		expected := value >= lower && value <= upper
		assert.Equal(t, expected, series.Compliant[0],
			"value=%v lower=%v upper=%v", value, lower, upper)
	}
}

func TestEvaluateUnidirectional(t *testing.T) {
	// Ascending {limit: 1000} over CO₂ [800, 1000, 1001] → [T,T,F].
	table := hourlyTable(t, "co2", []float64{800, 1000, 1001})
	evaluator := newEvaluator()

	ascending := &Definition{
		ID: "co2_max", Feature: "co2", Kind: KindUnidirectional,
		Limit: 1000, Direction: Ascending,
	}
	assert.Equal(t, []bool{true, true, false}, evaluator.Evaluate(table, ascending).Compliant)

	descending := &Definition{
		ID: "co2_min", Feature: "co2", Kind: KindUnidirectional,
		Limit: 1000, Direction: Descending,
	}
	assert.Equal(t, []bool{false, true, true}, evaluator.Evaluate(table, descending).Compliant)
}

func TestEvaluateDropsMissingValues(t *testing.T) {
	table := hourlyTable(t, "co2", []float64{800, math.NaN(), 1200, math.NaN(), 900})
	def := &Definition{
		ID: "co2_max", Feature: "co2", Kind: KindUnidirectional,
		Limit: 1000, Direction: Ascending,
	}

	series := newEvaluator().Evaluate(table, def)
	require.Len(t, series.Compliant, 3, "missing samples are dropped, not counted")
	assert.Equal(t, []bool{true, false, true}, series.Compliant)
	assert.Equal(t, []float64{800, 1200, 900}, series.Values)
}

func TestEvaluateMissingColumnNotEvaluable(t *testing.T) {
	table := hourlyTable(t, "temperature", []float64{20, 21, 22})
	def := &Definition{
		ID: "radon_max", Feature: "radon", Kind: KindUnidirectional,
		Limit: 100, Direction: Ascending,
	}

	series := newEvaluator().Evaluate(table, def)
	assert.Empty(t, series.Compliant,
		"a rule without a feature column yields zero coverage, not 0% compliance")
}

func TestEvaluateUnknownKindFailsClosed(t *testing.T) {
	table := hourlyTable(t, "temperature", []float64{20, 21})
	def := &Definition{ID: "odd", Feature: "temperature", Kind: Kind("fuzzy")}

	series := newEvaluator().Evaluate(table, def)
	require.Len(t, series.Compliant, 2)
	assert.Equal(t, []bool{false, false}, series.Compliant)
}

func TestEvaluateComplexWithDerivedFields(t *testing.T) {
	// Compliant when temperature ≥ 20 during hours before 03:00.
	table := hourlyTable(t, "temperature", []float64{21, 22, 19, 23, 24})
	logic := expr.And(
		expr.Compare(expr.OpGTE, expr.Variable("temperature"), expr.Literal(20)),
		expr.Compare(expr.OpLT, expr.Variable("hour"), expr.Literal(3)),
	)
	def := &Definition{ID: "night", Feature: "temperature", Kind: KindComplex, Logic: logic}

	series := newEvaluator().Evaluate(table, def)
	assert.Equal(t, []bool{true, true, false, false, false}, series.Compliant)
	assert.Equal(t, []float64{21, 22, 19, 23, 24}, series.Values)
}

func TestEvaluateComplexWeekdayVariable(t *testing.T) {
	// 2024-01-01 is a Monday; weekday is 0-based from Monday.
	timestamps := []time.Time{
		time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC), // Mon
		time.Date(2024, time.January, 6, 12, 0, 0, 0, time.UTC), // Sat
	}
	table := timeseries.NewTable(timestamps)
	require.NoError(t, table.AddColumn("temperature", []float64{21, 21}))

	def := &Definition{
		ID: "weekday_rule", Feature: "temperature", Kind: KindComplex,
		Logic: expr.Compare(expr.OpLT, expr.Variable("weekday"), expr.Literal(5)),
	}
	series := newEvaluator().Evaluate(table, def)
	assert.Equal(t, []bool{true, false}, series.Compliant)
}

func TestEvaluateAppliesRuleFilters(t *testing.T) {
	// 48 hourly samples over Mon+Tue; rule restricted to opening hours.
	table := hourlyTable(t, "temperature", constant(21, 48))
	def := &Definition{
		ID: "office_range", Feature: "temperature", Kind: KindBidirectional,
		Limits:     &Limits{Lower: f64(20), Upper: f64(26)},
		FilterSpec: &timefilter.Filter{Hours: []int{8, 9, 10, 11, 12, 13, 14, 15, 16}, WeekdaysOnly: true},
	}

	series := newEvaluator().Evaluate(table, def)
	assert.Len(t, series.Compliant, 18, "9 opening hours across two weekdays")
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
