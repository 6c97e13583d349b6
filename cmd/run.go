package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/finbook/closebook"
	"github.com/google/subcommands"
)

// runCmd holds the flags for the 'run' subcommand.
type runCmd struct {
	snapshotDir string
	policyFile  string
	outDir      string
	period      string
	seed        int64
	noNarrative bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "execute a close run over a frozen snapshot" }
func (*runCmd) Usage() string {
	return `closebook run -period <2006-01> [-snapshot <dir>] [-policy <file>] [-out <dir>] [-seed <n>]

  Runs the full close pipeline: reconciliation engines, journal lifecycle,
  decertification sweep, review queue, and the audit ledger.

`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.snapshotDir, "snapshot", "snapshot", "Directory holding the period's source JSONL files.")
	f.StringVar(&c.policyFile, "policy", "", "Policy YAML file. Defaults apply when omitted.")
	f.StringVar(&c.outDir, "out", "runs", "Directory the audit ledger and cases file are written to.")
	f.StringVar(&c.period, "period", "", "Accounting period, e.g. 2025-08.")
	f.Int64Var(&c.seed, "seed", 0, "Run seed, recorded for reproducibility.")
	f.BoolVar(&c.noNarrative, "no-narrative", false, "Skip the AI narrative step.")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.period == "" {
		fmt.Fprintln(os.Stderr, "Error: -period is required")
		return subcommands.ExitUsageError
	}
	period, err := closebook.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	policy := closebook.DefaultPolicy()
	if c.policyFile != "" {
		if policy, err = closebook.LoadPolicy(c.policyFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	snapshot, err := closebook.DecodeSnapshot(c.snapshotDir, period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var narrator closebook.Narrator = closebook.NopNarrator{}
	if !c.noNarrative && policy.NarrativeModel != "" {
		narrator = closebook.NewGeminiNarrator(policy.NarrativeModel)
	}

	result, err := closebook.Run(ctx, snapshot, policy, c.seed, narrator, c.outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: close run aborted: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(closebook.RenderRunSummary(result))
	fmt.Printf("Audit ledger: %s\nCases file: %s\n", result.AuditPath, result.CasesPath)
	return subcommands.ExitSuccess
}
