package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bruadam/hvx-sub000/internal/expr"
	"github.com/bruadam/hvx-sub000/internal/timefilter"
)

// Kind selects the evaluation strategy for a rule. It is decided once
// when the definition is loaded; evaluation never re-inspects which
// configuration keys were present.
type Kind string

const (
	KindComplex        Kind = "complex"
	KindBidirectional  Kind = "bidirectional"
	KindUnidirectional Kind = "unidirectional"
)

// Direction orients a unidirectional threshold. Ascending means the
// measurement must stay at or below the limit (CO₂, noise); descending
// means at or above it (illuminance, supply temperature).
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Limits carries the bounds of a bidirectional range rule. Either side
// may be nil, meaning no constraint on that side; at least one is set in
// a valid definition.
type Limits struct {
	Lower *float64 `yaml:"lower"`
	Upper *float64 `yaml:"upper"`
}

// Definition is one compliance rule, validated at load time. Kind
// determines which payload fields are read; the others are ignored.
type Definition struct {
	ID          string
	Feature     string
	Description string
	Period      string
	Filter      string
	Kind        Kind

	// Resolved once at load time from the Period/Filter names.
	PeriodSpec *timefilter.Period
	FilterSpec *timefilter.Filter

	Logic     *expr.Node // complex
	Limits    *Limits    // bidirectional
	Limit     float64    // unidirectional
	Direction Direction  // unidirectional
}

// ruleFile is the on-disk schema of one rule definition. Feature and
// parameter are synonyms; kind is derived from which payload keys are
// present.
type ruleFile struct {
	Feature     string     `yaml:"feature"`
	Parameter   string     `yaml:"parameter"`
	Description string     `yaml:"description"`
	Period      string     `yaml:"period"`
	Filter      string     `yaml:"filter"`
	Limits      *Limits    `yaml:"limits"`
	Limit       *float64   `yaml:"limit"`
	Mode        string     `yaml:"mode"`
	Logic       *expr.Node `yaml:"logic"`
}

// ParseDefinition decodes one rule-definition file. A missing
// feature/parameter field or an empty payload is a validation failure for
// this one definition; callers quarantine it and continue with siblings.
func ParseDefinition(id string, data []byte) (*Definition, error) {
	var raw ruleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rule %s: %w", id, err)
	}

	feature := raw.Feature
	if feature == "" {
		feature = raw.Parameter
	}
	if feature == "" {
		return nil, fmt.Errorf("rule %s: missing required feature/parameter field", id)
	}

	period, err := timefilter.ParsePeriod(raw.Period)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", id, err)
	}
	filter, err := timefilter.ParseFilter(raw.Filter)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", id, err)
	}

	def := &Definition{
		ID:          id,
		Feature:     feature,
		Description: raw.Description,
		Period:      raw.Period,
		Filter:      raw.Filter,
		PeriodSpec:  period,
		FilterSpec:  filter,
	}

	switch {
	case raw.Logic != nil:
		def.Kind = KindComplex
		def.Logic = raw.Logic
	case raw.Limits != nil:
		if raw.Limits.Lower == nil && raw.Limits.Upper == nil {
			return nil, fmt.Errorf("rule %s: limits present but both bounds empty", id)
		}
		def.Kind = KindBidirectional
		def.Limits = raw.Limits
	case raw.Limit != nil:
		def.Kind = KindUnidirectional
		def.Limit = *raw.Limit
		dir, err := parseDirection(raw.Mode)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", id, err)
		}
		def.Direction = dir
	default:
		return nil, fmt.Errorf("rule %s: no logic, limits or limit payload", id)
	}
	return def, nil
}

func parseDirection(mode string) (Direction, error) {
	switch mode {
	case "", "ascending", "max", "upper":
		return Ascending, nil
	case "descending", "min", "lower":
		return Descending, nil
	}
	return "", fmt.Errorf("unknown threshold mode %q", mode)
}
