package closebook

import "fmt"

// IntercompanyReconciliation compares both legs of every intercompany
// document. When |amount_src - amount_dst| exceeds the policy tolerance, it
// emits an exception with up to ICCandidateCap ranked candidates and a
// proposal whose adjustment brings the destination leg level with the
// source leg: simulated_dst_after = amount_dst + adjustment_usd.
func IntercompanyReconciliation(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnIntercompany, SourceKind: "intercompany"}

	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		for _, doc := range data.IC {
			diff := doc.AmountSrc.Sub(doc.AmountDst).Abs()
			if diff.LessThanOrEqual(p.ICToleranceUSD) {
				continue
			}

			// Other documents between the same pair of entities are the
			// plausible mispostings.
			var pool []Candidate
			for _, other := range data.IC {
				if other.DocID == doc.DocID {
					continue
				}
				if other.SrcEntity == doc.SrcEntity && other.DstEntity == doc.DstEntity {
					pool = append(pool, Candidate{
						Key:    other.DocID,
						Kind:   "doc_id",
						Amount: other.AmountSrc,
						Date:   other.Date,
						Name:   other.DstEntity,
					})
				}
			}
			target := MatchTarget{Amount: doc.AmountSrc, Date: doc.Date, Name: doc.DstEntity}
			candidates := ScoreCandidates(target, pool, p.Match, p.ICCandidateCap)

			adjustment := doc.AmountSrc.Sub(doc.AmountDst)
			simulated := doc.AmountDst.Add(adjustment)
			balanced := simulated.Sub(doc.AmountSrc).Abs().LessThan(microTolerance)

			res.Exceptions = append(res.Exceptions, Exception{
				Entity:     doc.SrcEntity,
				Reason:     fmt.Sprintf("intercompany doc %s out of balance by %s between %s and %s", doc.DocID, diff, doc.SrcEntity, doc.DstEntity),
				Amount:     M(diff, "USD"),
				Candidates: candidates,
				RowKeys:    []string{doc.DocID},
			})
			res.Proposals = append(res.Proposals, Proposal{
				DocID:             doc.DocID,
				Entity:            doc.DstEntity,
				Module:            "intercompany",
				Memo:              fmt.Sprintf("true-up %s to source leg of %s", doc.DstEntity, doc.DocID),
				AmountUSD:         adjustment,
				DebitAccount:      "1400-Intercompany Receivable",
				CreditAccount:     "2400-Intercompany Payable",
				SimulatedDstAfter: simulated,
				BalancedAfter:     balanced,
			})
			res.RowIDs = append(res.RowIDs, doc.DocID)
		}
	}
	return res, nil
}
