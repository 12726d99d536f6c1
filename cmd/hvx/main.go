package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bruadam/hvx-sub000/internal/config"
	"github.com/bruadam/hvx-sub000/internal/holiday"
	"github.com/bruadam/hvx-sub000/internal/ingest"
	"github.com/bruadam/hvx-sub000/internal/registry"
	"github.com/bruadam/hvx-sub000/internal/report"
	"github.com/bruadam/hvx-sub000/internal/rules"
	"github.com/bruadam/hvx-sub000/internal/telemetry"
	"github.com/bruadam/hvx-sub000/internal/timefilter"
	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

const (
	appName = "hvx"
	version = "v0.4.2"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Indoor-climate compliance engine",
		Version: version,
		Long: `hvx evaluates building-environment compliance rules (temperature,
humidity, CO2, ...) against time-stamped sensor measurements, producing
compliance rates and violation intervals for reporting.`,
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		levelName, _ := cmd.Flags().GetString("log-level")
		level, err := zerolog.ParseLevel(levelName)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate compliance rules against measurement tables",
		Long:  "Loads CSV measurement tables, evaluates the selected rules from the standards registry and prints the merged report",
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().StringSlice("data", nil, "Measurement CSV file(s), first column timestamps (required)")
	evaluateCmd.Flags().String("config", "", "Application config YAML (optional)")
	evaluateCmd.Flags().String("standards", "", "Standards root directory (overrides config)")
	evaluateCmd.Flags().StringSlice("rules", nil, "Rule ids to evaluate (default: all registered)")
	evaluateCmd.Flags().String("region", "", "Holiday region (overrides config)")
	evaluateCmd.Flags().Bool("violations", false, "Include violation intervals in results")
	evaluateCmd.Flags().Int("workers", 0, "Table-level worker count (overrides config)")
	evaluateCmd.Flags().String("output", "text", "Output format (text|json)")
	_ = evaluateCmd.MarkFlagRequired("data")

	standardsCmd := &cobra.Command{
		Use:   "standards",
		Short: "Inspect the standards registry",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered standards and their rule counts",
		RunE:  runStandardsList,
	}
	showCmd := &cobra.Command{
		Use:   "show <standard-id>",
		Short: "Show the rules of one standard",
		Args:  cobra.ExactArgs(1),
		RunE:  runStandardsShow,
	}
	for _, cmd := range []*cobra.Command{listCmd, showCmd} {
		cmd.Flags().String("standards", "", "Standards root directory (overrides config)")
		cmd.Flags().String("config", "", "Application config YAML (optional)")
	}
	standardsCmd.AddCommand(listCmd)
	standardsCmd.AddCommand(showCmd)

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(standardsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig merges the optional config file with flag overrides.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dir, _ := flags.GetString("standards"); dir != "" {
		cfg.StandardsDir = dir
	}
	if flags.Lookup("region") != nil {
		if region, _ := flags.GetString("region"); region != "" {
			cfg.Region = region
		}
	}
	if flags.Lookup("workers") != nil {
		if workers, _ := flags.GetInt("workers"); workers > 0 {
			cfg.Workers = workers
		}
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func buildRegistry(cfg *config.Config, metrics *telemetry.Metrics) (*registry.Registry, error) {
	reg := registry.New(cfg.StandardsDir, metrics)
	if err := reg.Discover(); err != nil {
		return nil, err
	}
	return reg, nil
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	reg, err := buildRegistry(cfg, metrics)
	if err != nil {
		return err
	}

	paths, _ := cmd.Flags().GetStringSlice("data")
	tables := make(map[string]*timeseries.Table, len(paths))
	for _, path := range paths {
		table, err := ingest.LoadCSV(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		tables[name] = table
		log.Info().Str("dataset", name).Int("rows", table.Len()).Msg("loaded measurement table")
	}

	includeViolations, _ := cmd.Flags().GetBool("violations")
	source := holiday.NewSource(cfg.CustomHolidays)
	pipeline := timefilter.NewPipeline(source, cfg.Region)

	runner := &report.Runner{
		Registry:          reg,
		Evaluator:         rules.NewEvaluator(pipeline),
		Metrics:           metrics,
		Workers:           cfg.Workers,
		IncludeViolations: includeViolations,
	}

	ruleIDs, _ := cmd.Flags().GetStringSlice("rules")
	result := runner.Run(cmd.Context(), tables, ruleIDs)

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	printReport(result)
	return nil
}

func printReport(r *report.Report) {
	fmt.Printf("Run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	for _, ds := range r.Datasets {
		fmt.Printf("\n%s\n", ds.Dataset)
		for _, res := range ds.Results {
			if !res.Evaluable() {
				fmt.Printf("  %-40s not evaluable\n", res.RuleID)
				continue
			}
			fmt.Printf("  %-40s %6.1f%% (%d/%d points)\n",
				res.RuleID, res.ComplianceRate, res.CompliantPoints, res.TotalPoints)
			for _, v := range res.Violations {
				fmt.Printf("      violation %s → %s (%.1f h)\n",
					v.Start.Format(time.RFC3339), v.End.Format(time.RFC3339), v.DurationHours)
			}
		}
	}
}

func runStandardsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg, nil)
	if err != nil {
		return err
	}

	standards := reg.Standards()
	if len(standards) == 0 {
		fmt.Println("no standards registered")
		return nil
	}
	for _, std := range standards {
		category := std.Category
		if category == "" {
			category = "-"
		}
		fmt.Printf("%-20s %-30s %-12s %d rules\n", std.ID, std.Name, category, len(std.RuleIDs))
	}
	return nil
}

func runStandardsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg, nil)
	if err != nil {
		return err
	}

	std, ok := reg.Standard(args[0])
	if !ok {
		return fmt.Errorf("standard %q not registered", args[0])
	}
	fmt.Printf("%s (%s)\n", std.Name, std.ID)
	for _, ruleID := range std.RuleIDs {
		def, _ := reg.Rule(ruleID)
		fmt.Printf("  %-40s %-14s feature=%s", ruleID, def.Kind, def.Feature)
		switch def.Kind {
		case rules.KindBidirectional:
			fmt.Printf(" limits=%s", formatLimits(def.Limits))
		case rules.KindUnidirectional:
			fmt.Printf(" limit=%.6g direction=%s", def.Limit, def.Direction)
		}
		fmt.Println()
		if def.Description != "" {
			fmt.Printf("      %s\n", def.Description)
		}
	}
	return nil
}

func formatLimits(l *rules.Limits) string {
	lower, upper := "-inf", "+inf"
	if l.Lower != nil {
		lower = fmt.Sprintf("%.6g", *l.Lower)
	}
	if l.Upper != nil {
		upper = fmt.Sprintf("%.6g", *l.Upper)
	}
	return fmt.Sprintf("[%s, %s]", lower, upper)
}
