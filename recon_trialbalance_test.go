package closebook

import (
	"testing"
)

func TestTrialBalanceDiagnostics(t *testing.T) {
	res, err := TrialBalanceDiagnostics(testSnapshot(""), DefaultPolicy())
	if err != nil {
		t.Fatalf("TrialBalanceDiagnostics: %v", err)
	}

	// Every examined row is cited: 6 accounts for each of 3 entities.
	if len(res.RowIDs) != 18 {
		t.Errorf("evidence cites %d rows, want 18", len(res.RowIDs))
	}

	// Only ENT-01's trial balance nets off zero, by 500.
	if len(res.Exceptions) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(res.Exceptions))
	}
	exc := res.Exceptions[0]
	if exc.Entity != "ENT-01" {
		t.Errorf("exception entity = %s, want ENT-01", exc.Entity)
	}
	if !exc.Amount.Amount().Equal(dec(500)) {
		t.Errorf("net = %s, want 500", exc.Amount.Amount())
	}
	if len(exc.RowKeys) != 6 {
		t.Errorf("net exception cites %d rows, want the 6 entity rows", len(exc.RowKeys))
	}
}

func TestTrialBalanceDiagnosticsMissingCurrency(t *testing.T) {
	s := NewSnapshot(MustParsePeriod("2025-08"), "")
	s.AddGL(
		GLRow{Entity: "ENT-01", Account: "1000-Cash", Balance: dec(100), Currency: "USD"},
		GLRow{Entity: "ENT-01", Account: "2000-Accounts Payable", Balance: dec(-100), Currency: "NaN"},
	)

	res, err := TrialBalanceDiagnostics(s, DefaultPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Exceptions) != 1 {
		t.Fatalf("got %d exceptions, want 1 for the missing currency", len(res.Exceptions))
	}
	if res.Exceptions[0].Account != "2000-Accounts Payable" {
		t.Errorf("exception account = %q", res.Exceptions[0].Account)
	}
}

func TestTrialBalanceDiagnosticsUnattributableBalance(t *testing.T) {
	s := NewSnapshot(MustParsePeriod("2025-08"), "")
	s.AddGL(GLRow{Entity: "ENT-01", Account: "null", Balance: dec(250), Currency: "USD"})

	if _, err := TrialBalanceDiagnostics(s, DefaultPolicy()); err == nil {
		t.Errorf("a nonzero balance without an account must fail the engine")
	}

	// A zero balance on a blank account is skippable noise, not fatal.
	s2 := NewSnapshot(MustParsePeriod("2025-08"), "")
	s2.AddGL(
		GLRow{Entity: "ENT-01", Account: "", Currency: "USD"},
		GLRow{Entity: "ENT-01", Account: "1000-Cash", Currency: "USD"},
	)
	if _, err := TrialBalanceDiagnostics(s2, DefaultPolicy()); err != nil {
		t.Errorf("zero balance without account should not fail: %v", err)
	}
}

func TestEmailEvidence(t *testing.T) {
	res, err := EmailEvidence(testSnapshot(""), DefaultPolicy())
	if err != nil {
		t.Fatalf("EmailEvidence: %v", err)
	}
	if len(res.Exceptions) != 0 {
		t.Errorf("email evidence never raises exceptions, got %d", len(res.Exceptions))
	}
	if len(res.RowIDs) != 3 {
		t.Fatalf("evidence cites %d rows, want 3", len(res.RowIDs))
	}
	if res.RowIDs[0] != "EM-ENT-01-01" {
		t.Errorf("first cited row = %q", res.RowIDs[0])
	}
}
