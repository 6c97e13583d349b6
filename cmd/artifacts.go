package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/finbook/closebook"
	"github.com/google/subcommands"
)

// artifactsCmd holds the flags for the 'artifacts' subcommand.
type artifactsCmd struct {
	runFile string
	runDir  string
	full    bool
}

func (*artifactsCmd) Name() string     { return "artifacts" }
func (*artifactsCmd) Synopsis() string { return "list the AI artifacts of a run" }
func (*artifactsCmd) Usage() string {
	return `closebook artifacts [-run <audit file>] [-runs <dir>] [-full]

  Lists the ai_output records of a run with their token and cost metrics.

`
}

func (c *artifactsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.runFile, "run", "", "Audit ledger to inspect. Defaults to the most recent run.")
	f.StringVar(&c.runDir, "runs", "runs", "Directory scanned for the most recent run.")
	f.BoolVar(&c.full, "full", false, "Print full artifacts instead of the first line.")
}

func (c *artifactsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	metrics := make(map[string]closebook.AIMetrics)
	for _, rec := range records {
		if m, ok := rec.(closebook.AIMetrics); ok {
			metrics[m.Kind] = m
		}
	}

	found := false
	for _, rec := range records {
		out, ok := rec.(closebook.AIOutput)
		if !ok {
			continue
		}
		found = true
		artifact := out.Artifact
		if !c.full {
			artifact, _, _ = strings.Cut(artifact, "\n")
		}
		fmt.Printf("%s  %s\n  %s\n", out.Kind, out.GeneratedAt, artifact)
		if m, ok := metrics[out.Kind]; ok {
			fmt.Printf("  tokens=%d cost_usd=%s\n", m.Tokens, m.CostUSD)
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "No AI artifacts in %s\n", auditPath)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
