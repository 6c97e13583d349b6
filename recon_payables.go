package closebook

import "fmt"

// PayablesReconciliation produces ranked payment candidates for every open
// payable bill. Candidates are drawn from the entity's bank outflows and
// scored by amount proximity, date proximity and vendor-name similarity.
func PayablesReconciliation(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnAP, SourceKind: "ap"}

	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		var pool []Candidate
		for _, txn := range data.Bank {
			if txn.Amount.IsNegative() {
				pool = append(pool, Candidate{
					Key:    txn.TxnID,
					Kind:   "txn_id",
					Amount: txn.Amount.Neg(), // compare magnitudes
					Date:   txn.Date,
					Name:   txn.Counterparty,
				})
			}
		}

		for _, bill := range data.AP {
			if !bill.Open {
				continue
			}
			target := MatchTarget{Amount: bill.Amount, Date: bill.Date, Name: bill.Vendor}
			candidates := ScoreCandidates(target, pool, p.Match, p.CandidateCap)
			res.Exceptions = append(res.Exceptions, Exception{
				Entity:     entity,
				Account:    "2000-Accounts Payable",
				Reason:     fmt.Sprintf("open bill %s from %s has no settled payment", bill.BillID, bill.Vendor),
				Amount:     M(bill.Amount, "USD"),
				Candidates: candidates,
				RowKeys:    []string{bill.BillID},
			})
			res.RowIDs = append(res.RowIDs, bill.BillID)
		}
	}
	return res, nil
}
