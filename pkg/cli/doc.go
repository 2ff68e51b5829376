/*
Package cli provides command-line helpers for the custodian command.

Output Formatting:

Results implementing Table render as aligned text, CSV or JSON; anything
else renders as JSON or with %v:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, holdTable(holds))

Exit Codes:

ExitCode maps command errors to process exit codes so scripts can tell a
configuration problem from a denied operation or a partially failed sweep.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
