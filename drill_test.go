package closebook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// drillRun materializes the scenario snapshot on disk, runs the close, and
// returns the audit path plus the snapshot directory.
func drillRun(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	snap := testSnapshot(data)
	if err := EncodeSnapshot(snap); err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	res, err := Run(context.Background(), snap, DefaultPolicy(), 42, NopNarrator{}, filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res.AuditPath, data
}

func TestDrillThroughTrialBalance(t *testing.T) {
	auditPath, _ := drillRun(t)

	rows, err := DrillThrough(auditPath, FnTB, DrillOptions{})
	if err != nil {
		t.Fatalf("DrillThrough: %v", err)
	}
	if len(rows) != 18 {
		t.Fatalf("got %d rows, want all 18 cited ledger rows", len(rows))
	}
	for _, row := range rows {
		if _, ok := row["account"]; !ok {
			t.Errorf("row without account: %v", row)
		}
	}
}

func TestDrillThroughBankFiltersRows(t *testing.T) {
	auditPath, _ := drillRun(t)

	rows, err := DrillThrough(auditPath, FnBank, DrillOptions{})
	if err != nil {
		t.Fatal(err)
	}
	// 4 exception transactions per entity; matched and sub-tolerance rows
	// are not cited and must not surface.
	if len(rows) != 12 {
		t.Fatalf("got %d rows, want 12", len(rows))
	}
	for _, row := range rows {
		id, _ := row["txn_id"].(string)
		if strings.HasPrefix(id, "T-") {
			t.Errorf("matched transaction %s leaked into drill-through", id)
		}
		if strings.HasSuffix(id, "-05") {
			t.Errorf("sub-tolerance transaction %s leaked into drill-through", id)
		}
	}
}

func TestDrillThroughAccrualCompositeKeys(t *testing.T) {
	auditPath, _ := drillRun(t)
	rows, err := DrillThrough(auditPath, FnAccruals, DrillOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 9 {
		t.Errorf("got %d rows, want all 9 examined accruals", len(rows))
	}
}

func TestDrillThroughRowLimitAndSelect(t *testing.T) {
	auditPath, _ := drillRun(t)

	rows, err := DrillThrough(auditPath, FnTB, DrillOptions{RowLimit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Errorf("row limit ignored: got %d rows", len(rows))
	}

	rows, err = DrillThrough(auditPath, FnTB, DrillOptions{RowLimit: 3, Select: "$.account"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	if v, ok := rows[0]["value"].(string); !ok || v == "" {
		t.Errorf("selection result = %v, want the account string under \"value\"", rows[0])
	}

	if _, err := DrillThrough(auditPath, FnTB, DrillOptions{Select: "$.["}); err == nil {
		t.Errorf("invalid jsonpath should fail")
	}
}

func TestDrillThroughSeparatorFallback(t *testing.T) {
	auditPath, data := drillRun(t)

	// The evidence URI says bank_2025-08.jsonl; the file on disk uses the
	// underscore convention instead.
	hyphen := filepath.Join(data, "bank_2025-08.jsonl")
	underscore := filepath.Join(data, "bank_2025_08.jsonl")
	if err := os.Rename(hyphen, underscore); err != nil {
		t.Fatal(err)
	}

	rows, err := DrillThrough(auditPath, FnBank, DrillOptions{})
	if err != nil {
		t.Fatalf("DrillThrough with swapped separators: %v", err)
	}
	if len(rows) != 12 {
		t.Errorf("got %d rows, want 12", len(rows))
	}
}

func TestDrillThroughUnknownFn(t *testing.T) {
	auditPath, _ := drillRun(t)
	if _, err := DrillThrough(auditPath, "no_such_engine", DrillOptions{}); err == nil {
		t.Errorf("unknown function should fail")
	}
}

func TestDrillThroughNilRowIDsReturnsWholeFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ar_2025-08.jsonl")
	content := `{"invoice_id":"INV-1","entity":"ENT-01"}` + "\n" + `{"invoice_id":"INV-2","entity":"ENT-01"}` + "\n"
	if err := os.WriteFile(src, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	audit := filepath.Join(dir, "audit_2025-08.jsonl")
	err := WriteAuditLog(audit, []AuditRecord{
		Deterministic{Fn: FnAR, EvidenceID: "ev-0001"},
		Evidence{ID: "ev-0001", URI: src},
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := DrillThrough(audit, FnAR, DrillOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("nil input_row_ids should return the whole file, got %d rows", len(rows))
	}
}

func TestSwapDateSeparators(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"bank_2025-08.jsonl", "bank_2025_08.jsonl"},
		{"bank_2025_08.jsonl", "bank_2025-08.jsonl"},
		{"txns_2025-08-15.jsonl", "txns_2025_08_15.jsonl"},
		{filepath.Join("runs", "gl_2025-08.jsonl"), filepath.Join("runs", "gl_2025_08.jsonl")},
		{"nodates.jsonl", "nodates.jsonl"},
	}
	for _, tc := range testCases {
		if got := swapDateSeparators(tc.in); got != tc.want {
			t.Errorf("swapDateSeparators(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLatestRun(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "audit_2025-07.jsonl")
	recent := filepath.Join(dir, "audit_2025-08.jsonl")
	for _, path := range []string{old, recent} {
		if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := LatestRun(dir)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got != recent {
		t.Errorf("LatestRun = %q, want %q", got, recent)
	}

	_, err = LatestRun(t.TempDir())
	if !errors.Is(err, ErrNoAuditFile) {
		t.Errorf("empty dir error = %v, want ErrNoAuditFile", err)
	}
}
