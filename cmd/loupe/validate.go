package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/loupe/pkg/cli"
	"mercator-hq/loupe/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration file, apply LOUPE_* environment overrides and
report every validation error at once.

Examples:
  # Validate loupe.yaml in the current directory
  loupe validate

  # Validate a specific file
  loupe validate --config /etc/loupe/loupe.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateConfig(cmd.OutOrStdout(), cfgFile, !cmd.Flags().Changed("config"))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(w io.Writer, path string, allowMissing bool) error {
	cfg, err := config.LoadConfigWithEnvOverrides(path, allowMissing)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(w, "✗ %s: %d problem(s)\n", path, len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(w, "  - %s\n", fe.Error())
			}
			return cli.NewConfigError(path, "configuration is invalid")
		}
		return cli.NewConfigError(path, err.Error())
	}

	fmt.Fprintf(w, "✓ %s is valid\n", path)
	fmt.Fprintf(w, "  upstream:     %s\n", cfg.Upstream.BaseURL)
	fmt.Fprintf(w, "  listen:       %s\n", cfg.Proxy.ListenAddress)
	fmt.Fprintf(w, "  route prefix: %q\n", cfg.Proxy.RoutePrefix)
	fmt.Fprintf(w, "  log file:     %s\n", cfg.Store.Path)
	return nil
}
