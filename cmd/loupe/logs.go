package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/loupe/pkg/cli"
	"mercator-hq/loupe/pkg/config"
	"mercator-hq/loupe/pkg/logstore"
)

// logsOptions are the parsed flags of `loupe logs`.
type logsOptions struct {
	limit   int
	follow  bool
	format  cli.OutputFormat
	archive string
}

var logsFlags struct {
	limit   int
	follow  bool
	format  string
	archive string
	json    bool
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recorded request and response records",
	Long: `Print the newest records of the request log, oldest first.

Examples:
  # Show the last 50 records
  loupe logs

  # Show the last 10 records as raw NDJSON
  loupe logs --limit 10 --format json

  # Keep printing records as the proxy writes them
  loupe logs --follow

  # Read an archive written when the log was cleared
  loupe logs --archive logs/archive/requests-1791970200123000000.ndjson.zst`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, err := cli.ParseFormat(logsFlags.format)
		if err != nil {
			return err
		}
		opts := logsOptions{
			limit:   logsFlags.limit,
			follow:  logsFlags.follow,
			format:  format,
			archive: logsFlags.archive,
		}

		ctx := cmd.Context()
		if opts.follow {
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			var cancel context.CancelFunc
			ctx, cancel = cli.SetupSignalHandler(logger)
			defer cancel()
		}
		return cli.NewCommandError("logs", showLogs(ctx, cfg, cmd.OutOrStdout(), opts))
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Truncate the request log",
	Long: `Truncate the request log file. With store.archive_on_clear set the
previous contents are compressed into store.archive_dir first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		if err := clearLogs(cfg, logger); err != nil {
			return cli.NewCommandError("logs clear", err)
		}
		if logsFlags.json {
			fmt.Fprintln(cmd.OutOrStdout(), `{"cleared":true}`)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s\n", cfg.Store.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsClearCmd)

	logsCmd.Flags().IntVarP(&logsFlags.limit, "limit", "n", 0, "number of records to show (0 uses store.default_limit)")
	logsCmd.Flags().BoolVarP(&logsFlags.follow, "follow", "f", false, "keep printing new records")
	logsCmd.Flags().StringVarP(&logsFlags.format, "format", "o", "text", "output format: text or json")
	logsCmd.Flags().StringVar(&logsFlags.archive, "archive", "", "read a zstd archive instead of the live log")

	logsClearCmd.Flags().BoolVar(&logsFlags.json, "json", false, "print the result as JSON")
}

// showLogs prints records from the configured store, or from opts.archive
// when set. With opts.follow it keeps printing appended records until ctx
// is done.
func showLogs(ctx context.Context, cfg *config.Config, w io.Writer, opts logsOptions) error {
	out := cli.NewRecordWriter(w, opts.format)

	if opts.archive != "" {
		return logstore.ReadArchive(opts.archive, out.WriteRecord)
	}

	// The follower is positioned before the snapshot is read so that no
	// record falls between the two.
	var follower *logstore.Follower
	if opts.follow {
		var err error
		follower, err = logstore.NewFollower(cfg.Store.Path, false, slog.Default())
		if err != nil {
			return err
		}
	}

	limits := logstore.Options{DefaultLimit: cfg.Store.DefaultLimit, MaxLimit: cfg.Store.MaxLimit}
	records, err := logstore.ReadRecent(cfg.Store.Path, limits.ClampLimit(opts.limit))
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := out.WriteRecord(rec); err != nil {
			return err
		}
	}

	if follower == nil {
		return nil
	}
	var writeErr error
	err = follower.Follow(ctx, func(line json.RawMessage) {
		if writeErr == nil {
			writeErr = out.WriteRecord(line)
		}
	})
	if err != nil {
		return err
	}
	return writeErr
}

// clearLogs truncates the configured store, archiving first when enabled.
func clearLogs(cfg *config.Config, logger *slog.Logger) error {
	store, err := logstore.Open(cfg.Store.Path, logstore.Options{
		ArchiveOnClear: cfg.Store.ArchiveOnClear,
		ArchiveDir:     cfg.Store.ArchiveDir,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	clearErr := store.Clear()
	if err := store.Close(); clearErr == nil {
		clearErr = err
	}
	if clearErr != nil {
		return clearErr
	}
	logger.Info("request log cleared", "path", cfg.Store.Path, "trigger", "cli")
	return nil
}
