package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/loupe/pkg/cli"
	"mercator-hq/loupe/pkg/config"
	"mercator-hq/loupe/pkg/telemetry/logging"
)

// defaultConfigFile is read when --config is not given. Its absence is not
// an error.
const defaultConfigFile = "loupe.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "loupe",
	Short: "Loupe - inspecting proxy for LLM command-line tools",
	Long: `Loupe sits between an LLM command-line tool and the API it talks to.

It forwards every request unchanged, streams server-sent events back as they
arrive, and records each request/response pair in an append-only NDJSON log:
  - extracted text content and tool calls for every response
  - a dashboard at / and a JSON API at /api/logs
  - Prometheus metrics and optional OpenTelemetry traces`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}

// loadConfig initializes the process-wide configuration. The default file
// may be missing; an explicit --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	allowMissing := !cmd.Flags().Changed("config")
	if err := config.Initialize(cfgFile, allowMissing); err != nil {
		return nil, cli.NewConfigError("config", fmt.Sprintf("failed to load %s: %v", cfgFile, err))
	}
	return config.MustGetConfig(), nil
}

// newLogger builds the operational logger from cfg and installs it as the
// slog default.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}
