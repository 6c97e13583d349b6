package closebook

import (
	"fmt"
	"strings"
)

// BankReconciliation classifies unmatched bank transactions.
//
// Rules, in order of precedence for each unmatched transaction:
//   - amounts under the policy tolerance are immaterial and skipped
//   - an unrecognized counterparty is a forensic risk
//   - a signature (amount, normalized description) already seen on a
//     matched transaction is a forensic risk: a cleared item resubmitted
//   - a signature duplicated among unmatched transactions is a duplicate error
//   - a transaction inside the date window around period end is a timing
//     difference (deposit in transit / outstanding payment)
//   - anything else is unknown
func BankReconciliation(s *Snapshot, p Policy) (*EngineResult, error) {
	res := &EngineResult{Fn: FnBank, SourceKind: "bank"}
	periodEnd := s.Period().End()

	for _, entity := range s.Entities() {
		data := s.Entity(entity)
		if len(data.Bank) == 0 {
			continue
		}

		recognized := recognizedCounterparties(data)
		matchedSigs := make(map[string]bool)
		unmatchedSigs := make(map[string]int)
		for _, txn := range data.Bank {
			sig := txnSignature(txn)
			if txn.Matched {
				matchedSigs[sig] = true
			} else {
				unmatchedSigs[sig]++
			}
		}

		for _, txn := range data.Bank {
			if txn.Matched {
				continue
			}
			if txn.Amount.Abs().LessThan(p.AmountToleranceUSD) {
				continue
			}

			sig := txnSignature(txn)
			days := DaysBetween(txn.Date, periodEnd)
			if days < 0 {
				days = -days
			}

			var cls Classification
			var reason string
			switch {
			case !recognized[strings.ToLower(txn.Counterparty)]:
				cls = ClassForensicRisk
				reason = fmt.Sprintf("unrecognized counterparty %q", txn.Counterparty)
			case matchedSigs[sig]:
				cls = ClassForensicRisk
				reason = "signature matches an already matched transaction"
			case unmatchedSigs[sig] > 1:
				cls = ClassErrorDuplicate
				reason = fmt.Sprintf("signature duplicated %d times among unmatched", unmatchedSigs[sig])
			case days <= p.DateWindowDays:
				cls = ClassTimingDifference
				reason = fmt.Sprintf("unmatched within %d days of period end", p.DateWindowDays)
			default:
				cls = ClassUnknown
				reason = "unmatched outside all tolerance windows"
			}

			res.Exceptions = append(res.Exceptions, Exception{
				Entity:         entity,
				Account:        "1000-Cash",
				Reason:         reason,
				Amount:         M(txn.Amount, "USD"),
				Classification: cls,
				RowKeys:        []string{txn.TxnID},
			})
			res.RowIDs = append(res.RowIDs, txn.TxnID)
		}
	}
	return res, nil
}

// recognizedCounterparties collects the names an entity legitimately
// transacts with: its vendors, its customers, and itself.
func recognizedCounterparties(data *EntityData) map[string]bool {
	known := make(map[string]bool)
	for _, bill := range data.AP {
		known[strings.ToLower(bill.Vendor)] = true
	}
	for _, inv := range data.AR {
		known[strings.ToLower(inv.Customer)] = true
	}
	for _, txn := range data.Bank {
		if txn.Matched {
			known[strings.ToLower(txn.Counterparty)] = true
		}
	}
	return known
}

// txnSignature is the duplicate-detection key for a bank transaction.
func txnSignature(txn BankTxn) string {
	desc := strings.ToLower(strings.Join(strings.Fields(txn.Description), " "))
	return txn.Amount.String() + "|" + desc
}
