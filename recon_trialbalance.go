package closebook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TrialBalanceDiagnostics checks every entity's general ledger for basic
// integrity: the trial balance must net to zero and every row must carry a
// currency. It cites every examined row as evidence, so a clean pass is
// still fully traceable.
func TrialBalanceDiagnostics(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnTB, SourceKind: "gl"}

	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		if len(data.GL) == 0 {
			continue
		}

		net := decimal.Zero
		keys := make([]string, 0, len(data.GL))
		for _, row := range data.GL {
			// A balance that cannot be attributed to an account breaks the
			// balancing invariant; this is not skippable.
			if Normalize(row.Account) == "" && !row.Balance.IsZero() {
				return nil, fmt.Errorf("entity %s: balance %s carries no account", entity, row.Balance)
			}
			net = net.Add(row.Balance)
			keys = append(keys, row.Key())
			res.RowIDs = append(res.RowIDs, row.Key())

			if Normalize(row.Currency) == "" {
				res.Exceptions = append(res.Exceptions, Exception{
					Entity:  entity,
					Account: row.Account,
					Reason:  fmt.Sprintf("account %s has no currency", row.Account),
					Amount:  M(row.Balance, "USD"),
					RowKeys: []string{row.Key()},
				})
			}
		}

		if !net.IsZero() {
			res.Exceptions = append(res.Exceptions, Exception{
				Entity:  entity,
				Reason:  fmt.Sprintf("trial balance nets to %s, expected zero", net),
				Amount:  M(net, "USD"),
				RowKeys: keys,
			})
		}
	}
	return res, nil
}
