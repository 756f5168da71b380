/*
Package cli provides command-line helpers for the tabula command.

Output Formatting:

Command results are printed as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, cli.NewSummary(result)); err != nil {
		return err
	}

Progress Reporting:

BarProgress renders a terminal progress bar for `tabula export`. It
implements pipeline.Observer:

	exporter := pipeline.New(store, files, notifier, cfg,
		pipeline.WithObserver(cli.NewBarProgress(os.Stderr)))

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

Exit Codes:

ExitCode maps command errors to process exit codes so scripts can tell a
rejected request from a failed export.
*/
package cli
