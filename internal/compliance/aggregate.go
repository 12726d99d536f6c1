package compliance

import (
	"github.com/bruadam/hvx-sub000/internal/rules"
)

// Result is the aggregated outcome of one rule over one table. A result
// with TotalPoints == 0 means the rule was not evaluable (missing column,
// empty table after filtering); callers report that distinctly from
// "evaluated and 0% compliant".
type Result struct {
	RuleID          string  `json:"rule_id" yaml:"rule_id"`
	TotalPoints     int     `json:"total_points" yaml:"total_points"`
	CompliantPoints int     `json:"compliant_points" yaml:"compliant_points"`
	ComplianceRate  float64 `json:"compliance_rate" yaml:"compliance_rate"`
	Description     string  `json:"description,omitempty" yaml:"description,omitempty"`
	Feature         string  `json:"feature,omitempty" yaml:"feature,omitempty"`
}

// Evaluable reports whether the rule saw any data at all.
func (r Result) Evaluable() bool {
	return r.TotalPoints > 0
}

// Aggregate reduces a compliance series to counts and a 0–100 rate. An
// empty series yields the 0.0 sentinel rate with TotalPoints == 0, not a
// division error.
func Aggregate(def *rules.Definition, series rules.Series) Result {
	result := Result{
		RuleID:      def.ID,
		Description: def.Description,
		Feature:     def.Feature,
		TotalPoints: len(series.Compliant),
	}
	for _, ok := range series.Compliant {
		if ok {
			result.CompliantPoints++
		}
	}
	if result.TotalPoints > 0 {
		result.ComplianceRate = 100 * float64(result.CompliantPoints) / float64(result.TotalPoints)
	}
	return result
}
