package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bruadam/hvx-sub000/internal/compliance"
	"github.com/bruadam/hvx-sub000/internal/registry"
	"github.com/bruadam/hvx-sub000/internal/rules"
	"github.com/bruadam/hvx-sub000/internal/telemetry"
	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

// RuleResult pairs an aggregated result with its violation intervals.
type RuleResult struct {
	compliance.Result `yaml:",inline"`
	Violations        []compliance.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// DatasetResult holds all rule results for one measurement table.
type DatasetResult struct {
	Dataset string       `json:"dataset" yaml:"dataset"`
	Results []RuleResult `json:"results" yaml:"results"`
}

// Report is the merged outcome of one evaluation run across all tables.
type Report struct {
	RunID     string          `json:"run_id" yaml:"run_id"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Datasets  []DatasetResult `json:"datasets" yaml:"datasets"`
}

// Runner evaluates a rule set against many tables. Tables are the natural
// parallelism boundary: each table's evaluation is independent, so the
// runner fans tables out over a bounded worker pool and joins results
// without locking anything but the output channel.
type Runner struct {
	Registry          *registry.Registry
	Evaluator         *rules.Evaluator
	Metrics           *telemetry.Metrics
	Workers           int
	IncludeViolations bool
}

// Run evaluates the given rule ids (all registered rules when empty)
// against every table and returns the merged report, sorted by dataset
// then rule id. Cancellation stops dispatching new tables; tables already
// in flight finish, since per-table work is bounded.
func (r *Runner) Run(ctx context.Context, tables map[string]*timeseries.Table, ruleIDs []string) *Report {
	started := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	if len(ruleIDs) == 0 {
		ruleIDs = r.Registry.Rules()
	}
	var defs []*rules.Definition
	for _, id := range ruleIDs {
		def, ok := r.Registry.Rule(id)
		if !ok {
			log.Warn().Str("rule", id).Msg("requested rule not registered, skipping")
			continue
		}
		defs = append(defs, def)
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan DatasetResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				results <- r.evaluateTable(name, tables[name], defs)
			}
		}()
	}

	go func() {
		defer close(jobs)
		names := make([]string, 0, len(tables))
		for name := range tables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			select {
			case jobs <- name:
			case <-ctx.Done():
				log.Warn().Msg("run cancelled, skipping remaining tables")
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		report.Datasets = append(report.Datasets, res)
	}
	sort.Slice(report.Datasets, func(i, j int) bool {
		return report.Datasets[i].Dataset < report.Datasets[j].Dataset
	})

	report.Duration = time.Since(started)
	return report
}

// evaluateTable runs every rule over one table.
func (r *Runner) evaluateTable(name string, table *timeseries.Table, defs []*rules.Definition) DatasetResult {
	out := DatasetResult{Dataset: name}
	for _, def := range defs {
		evalStart := time.Now()
		series := r.Evaluator.Evaluate(table, def)
		r.Metrics.RuleEvaluated(string(def.Kind), len(series.Compliant), time.Since(evalStart).Seconds())

		result := RuleResult{Result: compliance.Aggregate(def, series)}
		if r.IncludeViolations && result.Evaluable() {
			result.Violations = compliance.FindViolations(series)
			r.Metrics.ViolationsDetected(len(result.Violations))
		}
		out.Results = append(out.Results, result)
	}
	sort.Slice(out.Results, func(i, j int) bool {
		return out.Results[i].RuleID < out.Results[j].RuleID
	})
	return out
}
