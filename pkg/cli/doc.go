/*
Package cli provides the shared plumbing of the atrium command tree:
exit codes, status output, result formatters, and signal handling.

Status output:

Commands print one line per completed step:

	status := cli.NewStatus(os.Stdout)
	status.Step("Listening on %s", spec)
	status.Warn("Certificate expires in %d days", days)

Result formatting:

Commands that report structured data (certificate details, access log
queries) render through a Formatter:

	f := cli.NewFormatter(cli.FormatJSON)
	return f.FormatTo(os.Stdout, result)

Exit codes:

Errors returned by commands carry their own exit code. main resolves
the code with cli.ExitCode, so configuration problems exit with
cli.ExitConfig and everything else with cli.ExitFailure.

Signal handling:

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()
*/
package cli
