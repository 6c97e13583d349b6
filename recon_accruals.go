package closebook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccrualsRollforward proposes reversal entries for reversible accruals
// posted in the prior period. The summary aggregates are recomputed
// literally from the proposal list so the list and its summary can never
// drift apart.
func AccrualsRollforward(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnAccruals, SourceKind: "accruals"}
	prior := s.Period().Prev().String()

	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		for _, row := range data.Accruals {
			// Every examined accrual is cited as evidence, proposed or not.
			res.RowIDs = append(res.RowIDs, row.Key())

			if !row.Reversible || row.PostedPeriod != prior {
				continue
			}
			res.Proposals = append(res.Proposals, Proposal{
				DocID:         row.AccrualID,
				Entity:        row.Entity,
				Module:        "accruals",
				Memo:          fmt.Sprintf("reverse prior-period accrual %s", row.AccrualID),
				AmountUSD:     row.Amount,
				DebitAccount:  row.Account,
				CreditAccount: "6000-Accrued Expense",
			})
		}
	}

	res.Accrual = summarizeAccruals(res.Proposals)
	return res, nil
}

// summarizeAccruals recomputes the rollforward aggregates from the proposal
// list itself.
func summarizeAccruals(proposals []Proposal) *AccrualSummary {
	total := decimal.Zero
	byEntity := make(map[string]decimal.Decimal)
	for _, prop := range proposals {
		total = total.Add(prop.AmountUSD)
		byEntity[prop.Entity] = byEntity[prop.Entity].Add(prop.AmountUSD)
	}
	for entity, sum := range byEntity {
		byEntity[entity] = RoundCents(sum)
	}
	return &AccrualSummary{
		ProposedReversalsTotalUSD: RoundCents(total),
		ProposedReversalsByEntity: byEntity,
	}
}
