package closebook

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FluxAnalysis computes actual-vs-budget and actual-vs-prior variances per
// (entity, account), bands each against the policy threshold, and emits an
// exception for every row banded above on either basis.
func FluxAnalysis(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnFlux, SourceKind: "gl"}
	period := s.Period().String()

	var rows []FluxRow
	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		actuals := make(map[string]decimal.Decimal, len(data.GL))
		for _, gl := range data.GL {
			actuals[gl.Account] = actuals[gl.Account].Add(gl.Balance)
		}
		for _, budget := range data.Budget {
			actual := actuals[budget.Account]
			row := FluxRow{
				Entity:      entity,
				Account:     budget.Account,
				Actual:      actual,
				VarVsBudget: actual.Sub(budget.Budget),
				VarVsPrior:  actual.Sub(budget.Prior),
			}
			row.BandVsBudget = band(row.VarVsBudget, budget.Budget, p.FluxThresholdPct)
			row.BandVsPrior = band(row.VarVsPrior, budget.Prior, p.FluxThresholdPct)
			// ai_basis is whichever comparison moved more; ties go to budget.
			if row.VarVsPrior.Abs().GreaterThan(row.VarVsBudget.Abs()) {
				row.AIBasis = "prior"
			} else {
				row.AIBasis = "budget"
			}
			rows = append(rows, row)

			if row.BandVsBudget == BandAbove || row.BandVsPrior == BandAbove {
				key := GLKey(period, entity, budget.Account)
				res.Exceptions = append(res.Exceptions, Exception{
					Entity:  entity,
					Account: budget.Account,
					Reason:  fmt.Sprintf("variance above %.0f%% threshold vs %s", p.FluxThresholdPct, row.AIBasis),
					Amount:  M(basisVariance(row), "USD"),
					RowKeys: []string{key},
				})
				res.RowIDs = append(res.RowIDs, key)
			}
		}
	}

	res.Flux = summarizeFlux(rows, p.TopVariances)
	return res, nil
}

// band classifies a variance against pct percent of the comparison base.
// A zero base bands above on any nonzero variance.
func band(variance, base decimal.Decimal, pct float64) Band {
	if base.IsZero() {
		if variance.IsZero() {
			return BandWithin
		}
		return BandAbove
	}
	threshold := base.Abs().Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	if variance.Abs().GreaterThan(threshold) {
		return BandAbove
	}
	return BandWithin
}

// basisVariance returns the variance on the row's ai_basis side.
func basisVariance(row FluxRow) decimal.Decimal {
	if row.AIBasis == "prior" {
		return row.VarVsPrior
	}
	return row.VarVsBudget
}

// summarizeFlux tallies the bands literally from the rows and ranks the top
// variances descending by the absolute variance of each row's basis.
func summarizeFlux(rows []FluxRow, top int) *FluxSummary {
	counts := map[string]int{"within": 0, "above": 0}
	for _, row := range rows {
		counts[row.BandVsBudget.String()]++
		counts[row.BandVsPrior.String()]++
	}

	ranked := make([]FluxRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := basisVariance(ranked[i]).Abs(), basisVariance(ranked[j]).Abs()
		if !vi.Equal(vj) {
			return vi.GreaterThan(vj)
		}
		if ranked[i].Entity != ranked[j].Entity {
			return ranked[i].Entity < ranked[j].Entity
		}
		return ranked[i].Account < ranked[j].Account
	})
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	return &FluxSummary{BandCounts: counts, TopVariances: ranked}
}
