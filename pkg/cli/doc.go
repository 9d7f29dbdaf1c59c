/*
Package cli provides the helpers shared by the loupe command: typed errors
with exit codes, signal handling and record output.

Printing stored records:

	format, err := cli.ParseFormat("text")
	if err != nil {
		return err
	}
	out := cli.NewRecordWriter(os.Stdout, format)
	for _, rec := range records {
		if err := out.WriteRecord(rec); err != nil {
			return err
		}
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, cancel := cli.SetupSignalHandler(logger)
	defer cancel()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
