// Package cmd implements the CLI application driving the period close.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/finbook/closebook"
	"github.com/google/subcommands"
)

// Commands lists the subcommands in registration order. A main package
// registers each with a subcommands.Commander and executes the selected
// one.
var Commands = []subcommands.Command{
	&runCmd{},
	&drillCmd{},
	&artifactsCmd{},
	&verifyCmd{},
}

// printMarkdown renders markdown to the terminal, falling back to the raw
// text when rendering fails.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// resolveAudit returns the audit ledger path: the explicit path when given,
// otherwise the most recently modified run in dir.
func resolveAudit(explicit, dir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("audit file %q: %w", explicit, err)
		}
		return explicit, nil
	}
	return closebook.LatestRun(dir)
}
