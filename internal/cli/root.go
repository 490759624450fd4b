// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package cli implements the trailguard command line.
//
// Commands:
//
//	trailguard detect --in PATH [--out FILE] [--mode stream|batch] [--workers N]
//	trailguard grade --truth FILE [--alerts FILE] [--json]
//	trailguard rules [--json]
//	trailguard version
//
// Every command accepts --config to name a YAML file; otherwise the default
// search paths and TRAILGUARD_* environment variables apply. The run summary
// and reports go to stdout, diagnostics to stderr.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailguard/internal/config"
	"github.com/tomtom215/trailguard/internal/logging"
)

// Version is the build version (injected via ldflags at build time).
var Version = "dev"

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

// loadConfig loads configuration and initializes the global logger from it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		if !logging.ValidLevel(o.logLevel) {
			return nil, fmt.Errorf("invalid log level %q", o.logLevel)
		}
		cfg.Logging.Level = o.logLevel
	}
	logging.Init(cfg.Logging.LoggingInit())
	return cfg, nil
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "trailguard",
		Short: "Trailguard - detect threats in cloud audit, finding and flow logs",
		Long: `trailguard reads CloudTrail events, GuardDuty findings and VPC flow records
from a file or directory tree, evaluates them against the detection rules and
writes the resulting alerts as a JSON array.

Examples:
  trailguard detect --in ./data --out out/alerts.json
  trailguard detect --in ./data --mode batch --workers 4
  trailguard grade --alerts out/alerts.json --truth data/truth.json
  trailguard rules
`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: trailguard.yaml or $TRAILGUARD_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(newDetectCommand(opts))
	root.AddCommand(newGradeCommand())
	root.AddCommand(newRulesCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the command tree with args and returns the error that should
// map to a non-zero exit status.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trailguard v%s\n", Version)
		},
	}
}
