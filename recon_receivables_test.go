package closebook

import (
	"testing"
)

func TestReceivablesReconciliation(t *testing.T) {
	res, err := ReceivablesReconciliation(testSnapshot(""), DefaultPolicy())
	if err != nil {
		t.Fatalf("ReceivablesReconciliation: %v", err)
	}

	// One open invoice per entity.
	if len(res.Exceptions) != 3 {
		t.Fatalf("got %d exceptions, want 3", len(res.Exceptions))
	}
	exc := res.Exceptions[0]
	if exc.RowKeys[0] != "INV-ENT-01-01" {
		t.Fatalf("first exception cites %s, want INV-ENT-01-01", exc.RowKeys[0])
	}
	if exc.Account != "1200-Accounts Receivable" {
		t.Errorf("exception account = %q", exc.Account)
	}

	// Inflow candidates only: the 7500 wire and the 30 interest credit.
	if len(exc.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(exc.Candidates))
	}
	if exc.Candidates[0].Key != "B-ENT-01-01" {
		t.Errorf("best candidate = %s, want the matching 7500 inflow", exc.Candidates[0].Key)
	}
	if exc.Candidates[0].Score <= exc.Candidates[1].Score {
		t.Errorf("exact-amount inflow should outrank the tiny credit")
	}
}

func TestReceivablesReconciliationNoInflows(t *testing.T) {
	s := NewSnapshot(MustParsePeriod("2025-08"), "")
	s.AddAR(ARItem{InvoiceID: "INV-1", Entity: "ENT-01", Amount: dec(900),
		Customer: "GLOBEX LLC", Open: true, Date: MustParseDate("2025-08-10")})
	s.AddBank(BankTxn{TxnID: "T-1", Entity: "ENT-01", Amount: dec(-900),
		Counterparty: "GLOBEX LLC", Date: MustParseDate("2025-08-10")})

	res, err := ReceivablesReconciliation(s, DefaultPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Exceptions) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(res.Exceptions))
	}
	if len(res.Exceptions[0].Candidates) != 0 {
		t.Errorf("outflows must not appear as receipt candidates: %v", res.Exceptions[0].Candidates)
	}
}
