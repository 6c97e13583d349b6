package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/finbook/closebook"
	"github.com/google/subcommands"
)

// verifyCmd holds the flags for the 'verify' subcommand.
type verifyCmd struct {
	runFile string
	runDir  string
}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "verify the provenance of a run's audit ledger" }
func (*verifyCmd) Usage() string {
	return `closebook verify [-run <audit file>] [-runs <dir>]

  Checks that every deterministic record resolves to its evidence and that
  strict-tier engines cite their input rows. The ledger is never mutated.

`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.runFile, "run", "", "Audit ledger to verify. Defaults to the most recent run.")
	f.StringVar(&c.runDir, "runs", "runs", "Directory scanned for the most recent run.")
}

func (c *verifyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	auditPath, err := resolveAudit(c.runFile, c.runDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	records, err := closebook.ReadAuditLog(auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	report := closebook.Verify(records)
	for _, fn := range report.Checked {
		status := "ok"
		for _, failure := range report.Failures {
			if failure.Fn == fn {
				status = failure.Reason
			}
		}
		fmt.Printf("%-30s %s\n", fn, status)
	}
	if !report.OK() {
		fmt.Fprintf(os.Stderr, "Verification failed for %d of %d engines\n", len(report.Failures), len(report.Checked))
		return subcommands.ExitFailure
	}
	fmt.Printf("Verified %d engines, all provenance intact\n", len(report.Checked))
	return subcommands.ExitSuccess
}
