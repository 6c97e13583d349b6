package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/finbook/closebook"
	"github.com/google/subcommands"
)

// drillCmd holds the flags for the 'drill' subcommand.
type drillCmd struct {
	runFile  string
	runDir   string
	fn       string
	rowLimit int
	sel      string
}

func (*drillCmd) Name() string     { return "drill" }
func (*drillCmd) Synopsis() string { return "drill through a function to its source rows" }
func (*drillCmd) Usage() string {
	return `closebook drill -fn <function> [-run <audit file>] [-runs <dir>] [-n <limit>] [-select <jsonpath>]

  Resolves a function's latest deterministic record, follows its evidence to
  the source file, and prints the rows that justify the conclusion.

`
}

func (c *drillCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.runFile, "run", "", "Audit ledger to inspect. Defaults to the most recent run.")
	f.StringVar(&c.runDir, "runs", "runs", "Directory scanned for the most recent run.")
	f.StringVar(&c.fn, "fn", "", "Engine function name, e.g. tb_diagnostics.")
	f.IntVar(&c.rowLimit, "n", 0, "Limit the number of rows printed.")
	f.StringVar(&c.sel, "select", "", "JSONPath expression applied to each row, e.g. $.amount.")
}

func (c *drillCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fn == "" {
		fmt.Fprintln(os.Stderr, "Error: -fn is required")
		return subcommands.ExitUsageError
	}
	auditPath, err := resolveAudit(c.runFile, c.runDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	rows, err := closebook.DrillThrough(auditPath, c.fn, closebook.DrillOptions{
		RowLimit: c.rowLimit,
		Select:   c.sel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "No rows matched for %q in %s\n", c.fn, auditPath)
		return subcommands.ExitFailure
	}

	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Println(string(b))
	}
	return subcommands.ExitSuccess
}
