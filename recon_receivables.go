package closebook

import "fmt"

// ReceivablesReconciliation produces ranked receipt candidates for every
// open receivable invoice, drawn from the entity's bank inflows.
func ReceivablesReconciliation(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnAR, SourceKind: "ar"}

	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		var pool []Candidate
		for _, txn := range data.Bank {
			if txn.Amount.IsPositive() {
				pool = append(pool, Candidate{
					Key:    txn.TxnID,
					Kind:   "txn_id",
					Amount: txn.Amount,
					Date:   txn.Date,
					Name:   txn.Counterparty,
				})
			}
		}

		for _, inv := range data.AR {
			if !inv.Open {
				continue
			}
			target := MatchTarget{Amount: inv.Amount, Date: inv.Date, Name: inv.Customer}
			candidates := ScoreCandidates(target, pool, p.Match, p.CandidateCap)
			res.Exceptions = append(res.Exceptions, Exception{
				Entity:     entity,
				Account:    "1200-Accounts Receivable",
				Reason:     fmt.Sprintf("open invoice %s to %s has no settled receipt", inv.InvoiceID, inv.Customer),
				Amount:     M(inv.Amount, "USD"),
				Candidates: candidates,
				RowKeys:    []string{inv.InvoiceID},
			})
			res.RowIDs = append(res.RowIDs, inv.InvoiceID)
		}
	}
	return res, nil
}
