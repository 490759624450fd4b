// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailguard/internal/config"
	"github.com/tomtom215/trailguard/internal/detection"
	"github.com/tomtom215/trailguard/internal/logging"
	"github.com/tomtom215/trailguard/internal/metrics"
	"github.com/tomtom215/trailguard/internal/models"
	"github.com/tomtom215/trailguard/internal/pipeline"
	"github.com/tomtom215/trailguard/internal/reader"
	"github.com/tomtom215/trailguard/internal/sink"
)

type detectOptions struct {
	in              string
	out             string
	mode            string
	workers         int
	minSeverity     string
	flowDelimiter   string
	metricsTextfile string
	noFsync         bool
}

func newDetectCommand(root *rootOptions) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run detection over an input file or directory",
		Long: `Run every enabled detection rule over the records found under --in and write
the alerts to --out as a JSON array.

In stream mode (default) every line is classified by its content. In batch
mode the loader is chosen by file name: cloudtrail.jsonl,
guardduty_findings.jsonl and vpc_flow.csv (each optionally ending in .gz)
select the CloudTrail, GuardDuty and flow loaders, and other files are
skipped.

Examples:
  trailguard detect --in ./data
  trailguard detect --in ./data --out out/alerts.json --workers 4
  trailguard detect --in ./data --mode batch --min-severity high
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runDetect(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.in, "in", "i", "", "Input file or directory (required unless input.path is configured)")
	f.StringVarP(&opts.out, "out", "o", "", "Alert output file (default: output.path, alerts.json)")
	f.StringVar(&opts.mode, "mode", "", "Processing mode: stream or batch")
	f.IntVarP(&opts.workers, "workers", "w", 0, "Files processed concurrently")
	f.StringVar(&opts.minSeverity, "min-severity", "", "Suppress alerts below this severity")
	f.StringVar(&opts.flowDelimiter, "flow-delimiter", "", "Flow record delimiter (a character, \"space\" or \"tab\")")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	f.BoolVar(&opts.noFsync, "no-fsync", false, "Do not sync the output file after each alert")
	return cmd
}

// apply overlays explicitly set flags on cfg and revalidates it.
func (o *detectOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("in") {
		cfg.Input.Path = o.in
	}
	if cfg.Input.Path == "" {
		return errors.New("required flag \"in\" not set")
	}
	if flags.Changed("out") {
		cfg.Output.Path = o.out
	}
	if flags.Changed("mode") {
		cfg.Input.Mode = o.mode
	}
	if flags.Changed("workers") {
		cfg.Input.Workers = o.workers
	}
	if flags.Changed("min-severity") {
		cfg.Output.MinSeverity = o.minSeverity
	}
	if flags.Changed("flow-delimiter") {
		cfg.Input.FlowDelimiter = o.flowDelimiter
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = o.metricsTextfile
	}
	if flags.Changed("no-fsync") {
		cfg.Output.Fsync = !o.noFsync
	}
	return cfg.Validate()
}

// newEngine builds the detection engine from the detection section.
func newEngine(cfg *config.Config) (*detection.Engine, error) {
	ref, err := detection.NewReferenceData(
		cfg.Detection.KnownBadIPs,
		cfg.Detection.SensitiveBuckets,
		cfg.Detection.ExfilThresholdBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("reference data: %w", err)
	}
	disabled := make([]detection.RuleID, 0, len(cfg.Detection.DisabledRules))
	for _, id := range cfg.Detection.DisabledRules {
		disabled = append(disabled, detection.RuleID(id))
	}
	return detection.NewEngine(ref, detection.WithDisabledRules(disabled...))
}

// checkInput rejects anything but a regular file or a directory before the
// output is truncated.
func checkInput(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", reader.ErrNotFound, path, err)
	}
	if !fi.Mode().IsRegular() && !fi.IsDir() {
		return fmt.Errorf("%w: %s is neither a file nor a directory", reader.ErrNotFound, path)
	}
	return nil
}

func runDetect(ctx context.Context, stdout io.Writer, cfg *config.Config) (err error) {
	if err := checkInput(cfg.Input.Path); err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	outPath := cfg.Output.Path
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	out, err := sink.Open(outPath, sink.WithFsync(cfg.Output.Fsync))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(engine, out, pipeline.Config{
		Mode:         cfg.Input.Mode,
		Workers:      cfg.Input.Workers,
		FlowComma:    cfg.Input.FlowComma(),
		MaxLineBytes: cfg.Input.MaxLineBytes,
		MinSeverity:  cfg.Output.MinSeverityLevel(),
	})
	if err != nil {
		return err
	}

	summary, runErr := p.Run(ctx, cfg.Input.Path)

	// Close now so the reported size covers the closing bracket.
	if closeErr := out.Close(); closeErr != nil {
		return errors.Join(runErr, closeErr)
	}
	metrics.RecordSinkFailures(out.Failures())

	if cfg.Metrics.Textfile != "" {
		if mErr := metrics.WriteTextfile(cfg.Metrics.Textfile); mErr != nil {
			logging.Warn().Err(mErr).Str("path", cfg.Metrics.Textfile).Msg("failed to write metrics textfile")
		}
	}

	if summary != nil {
		var size int64
		if fi, statErr := os.Stat(outPath); statErr == nil {
			size = fi.Size()
		}
		if pErr := printSummary(stdout, summary, outPath, size); pErr != nil {
			return pErr
		}
	}
	return runErr
}

func printSummary(w io.Writer, s *pipeline.Summary, outPath string, size int64) error {
	kinds := []models.SourceKind{models.SourceCloudTrail, models.SourceGuardDuty, models.SourceVPCFlow}
	for k := range s.Records {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}

	if _, err := fmt.Fprintf(w, "run %s (%s): %d files, %d lines, %d records\n",
		s.RunID, s.Mode, s.Files, s.Lines, s.RecordsTotal()); err != nil {
		return err
	}
	for _, k := range kinds {
		if _, err := fmt.Fprintf(w, "  %-12s %d\n", k, s.Records[k]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "dropped %d, unrecognized %d, failed %d, files skipped %d\n",
		s.Dropped, s.Unrecognized, s.Failed, s.FilesSkipped); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d alerts written to %s (%d bytes)", s.Alerts, outPath, size); err != nil {
		return err
	}
	if s.Filtered > 0 {
		if _, err := fmt.Fprintf(w, ", %d below minimum severity", s.Filtered); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, tt := range s.ThreatTypes() {
		if _, err := fmt.Fprintf(w, "  %-32s %d\n", tt, s.AlertsByType[tt]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "completed in %s\n", s.Duration.Round(time.Millisecond))
	return err
}
