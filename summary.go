package closebook

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RenderRunSummary builds the markdown summary of a run. It feeds the
// narrative prompt and the CLI output.
func RenderRunSummary(r *RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Close Run %s\n\n", r.Period)

	b.WriteString("## Engines\n\n")
	b.WriteString("| Engine | Exceptions | Proposals |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, res := range r.Engines {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", res.Fn, len(res.Exceptions), len(res.Proposals))
	}
	b.WriteString("\n")

	if acc := r.Engine(FnAccruals); acc != nil && acc.Accrual != nil {
		fmt.Fprintf(&b, "## Accrual Rollforward\n\nProposed reversals total: %s USD\n\n", acc.Accrual.ProposedReversalsTotalUSD)
		for _, entity := range slices.Sorted(maps.Keys(acc.Accrual.ProposedReversalsByEntity)) {
			fmt.Fprintf(&b, "- %s: %s USD\n", entity, acc.Accrual.ProposedReversalsByEntity[entity])
		}
		b.WriteString("\n")
	}

	if flux := r.Engine(FnFlux); flux != nil && flux.Flux != nil {
		b.WriteString("## Flux Analysis\n\n")
		fmt.Fprintf(&b, "Bands: %d within, %d above.\n\n", flux.Flux.BandCounts["within"], flux.Flux.BandCounts["above"])
		if len(flux.Flux.TopVariances) > 0 {
			b.WriteString("| Entity | Account | Basis | Variance |\n")
			b.WriteString("|---|---|---|---:|\n")
			for _, row := range flux.Flux.TopVariances {
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", row.Entity, row.Account, row.AIBasis, basisVariance(row))
			}
			b.WriteString("\n")
		}
	}

	certified, decertified, open := 0, 0, 0
	for _, rec := range r.Records {
		switch rec.Status {
		case StatusCertified:
			certified++
		case StatusDecertified:
			decertified++
		default:
			open++
		}
	}
	fmt.Fprintf(&b, "## Reconciliation\n\n%d certified, %d open, %d decertified.\n\n", certified, open, decertified)

	posted := 0
	for _, e := range r.Entries {
		if e.Status == StatusPosted {
			posted++
		}
	}
	fmt.Fprintf(&b, "## Journal\n\n%d entries, %d posted.\n\n", len(r.Entries), posted)

	b.WriteString("## Review Queue\n\n")
	if len(r.Cases) == 0 {
		b.WriteString("Empty.\n")
	} else {
		for _, c := range r.Cases {
			fmt.Fprintf(&b, "- **%s** [%s] %s\n", c.ID, c.Severity, c.Title)
		}
	}
	return b.String()
}
