package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/loupe/pkg/cli"
	"mercator-hq/loupe/pkg/config"
	"mercator-hq/loupe/pkg/server"
)

var runFlags struct {
	listenAddress string
	upstream      string
	prefix        string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Loupe proxy",
	Long: `Start the Loupe proxy with the specified configuration.

The proxy listens on the configured address, relays every POST to the
upstream API and records each exchange in the request log. When the port
is busy the next free one is used, up to proxy.port_retries attempts.

Examples:
  # Start with loupe.yaml, or defaults when it does not exist
  loupe run

  # Start with custom config
  loupe run --config /etc/loupe/loupe.yaml

  # Relay OpenAI traffic mounted under /openai
  loupe run --upstream https://api.openai.com --prefix /openai

  # Validate config and flags without starting the proxy
  loupe run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.upstream, "upstream", "u", "", "override upstream base URL")
	runCmd.Flags().StringVarP(&runFlags.prefix, "prefix", "p", "", "override route prefix (e.g. /gemini)")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the proxy")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	config.SetConfig(cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		printSummary(out, cfg, cfg.Proxy.ListenAddress)
		return nil
	}

	srv, err := server.New(cfg, server.Options{Logger: logger, Version: versionInfo()})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, cancel := cli.SetupSignalHandler(logger)
	defer cancel()

	go func() {
		select {
		case <-srv.Ready():
			fmt.Fprintf(out, "Loupe v%s\n", Version)
			printSummary(out, cfg, srv.Addr())
			fmt.Fprintln(out, "\nPress Ctrl+C to stop")
		case <-ctx.Done():
		}
	}()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Proxy stopped")
	return nil
}

// applyRunFlags overrides cfg with the flags that were set and re-validates.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if flags.Changed("upstream") {
		cfg.Upstream.BaseURL = runFlags.upstream
	}
	if flags.Changed("prefix") {
		cfg.Proxy.RoutePrefix = runFlags.prefix
	}
	if flags.Changed("log-level") {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}
	return nil
}

func printSummary(w io.Writer, cfg *config.Config, addr string) {
	fmt.Fprintf(w, "✓ Proxy:    http://%s%s/ -> %s\n", addr, cfg.Proxy.RoutePrefix, cfg.Upstream.BaseURL)
	fmt.Fprintf(w, "✓ Log file: %s\n", cfg.Store.Path)
	if cfg.Dashboard.Enabled {
		fmt.Fprintf(w, "✓ Dashboard: http://%s/\n", addr)
	}
	fmt.Fprintf(w, "✓ Health:   http://%s/health\n", addr)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics:  http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}
}
