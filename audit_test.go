package closebook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func testLedger() []AuditRecord {
	return []AuditRecord{
		Deterministic{Fn: FnBank, EvidenceID: "ev-0001"},
		Evidence{ID: "ev-0001", URI: "data/bank_2025-08.jsonl", InputRowIDs: []string{"T-1", "T-2"}},
		Deterministic{Fn: FnAR, EvidenceID: "ev-0002"},
		Evidence{ID: "ev-0002", URI: "data/ar_2025-08.jsonl"},
		AIOutput{Kind: "close_narrative", Artifact: "all quiet", GeneratedAt: "2025-08-31T12:00:00Z"},
		AIMetrics{Kind: "close_narrative", Tokens: 120, CostUSD: decimal.RequireFromString("0.000024")},
	}
}

func TestAuditLogRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeAuditLog(&buf, testLedger()); err != nil {
		t.Fatalf("EncodeAuditLog: %v", err)
	}

	records, err := DecodeAuditLog(&buf)
	if err != nil {
		t.Fatalf("DecodeAuditLog: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("decoded %d records, want 6", len(records))
	}

	det, ok := records[0].(Deterministic)
	if !ok || det.Fn != FnBank || det.EvidenceID != "ev-0001" {
		t.Errorf("record 0 = %+v", records[0])
	}
	ev, ok := records[1].(Evidence)
	if !ok || len(ev.InputRowIDs) != 2 {
		t.Errorf("record 1 = %+v", records[1])
	}
	lenientEv, ok := records[3].(Evidence)
	if !ok || lenientEv.InputRowIDs != nil {
		t.Errorf("nil input_row_ids should survive the round trip, got %+v", records[3])
	}
	metrics, ok := records[5].(AIMetrics)
	if !ok || metrics.Tokens != 120 {
		t.Errorf("record 5 = %+v", records[5])
	}
}

func TestAuditLogFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeAuditLog(&buf, []AuditRecord{
		Deterministic{Fn: FnTB, EvidenceID: "ev-0007"},
		Evidence{ID: "ev-0007", URI: "gl.jsonl", InputRowIDs: []string{"k1"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantDet := `{"type":"deterministic","fn":"tb_diagnostics","evidence_id":"ev-0007"}`
	if lines[0] != wantDet {
		t.Errorf("deterministic line = %s, want %s", lines[0], wantDet)
	}
	wantEv := `{"type":"evidence","id":"ev-0007","uri":"gl.jsonl","input_row_ids":["k1"]}`
	if lines[1] != wantEv {
		t.Errorf("evidence line = %s, want %s", lines[1], wantEv)
	}
}

func TestDecodeAuditLogSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"deterministic","fn":"bank_reconciliation","evidence_id":"ev-0001"}`,
		`not json`,
		`{"type":"wormhole","id":"x"}`,
		``,
		`{"type":"evidence","id":"ev-0001","uri":"bank.jsonl","input_row_ids":null}`,
	}, "\n")

	records, err := DecodeAuditLog(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeAuditLog: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("decoded %d records, want 2 (bad lines skipped)", len(records))
	}
	if _, ok := records[0].(Deterministic); !ok {
		t.Errorf("record 0 = %T", records[0])
	}
	if _, ok := records[1].(Evidence); !ok {
		t.Errorf("record 1 = %T", records[1])
	}
}

func TestWriteAuditLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs", "audit_2025-08.jsonl")

	if err := WriteAuditLog(path, testLedger()); err != nil {
		t.Fatalf("WriteAuditLog: %v", err)
	}
	records, err := ReadAuditLog(path)
	if err != nil {
		t.Fatalf("ReadAuditLog: %v", err)
	}
	if len(records) != 6 {
		t.Errorf("read %d records, want 6", len(records))
	}

	// No temporary file survives the rename.
	entries, err := os.ReadDir(filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".audit-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestReadAuditLogMissing(t *testing.T) {
	if _, err := ReadAuditLog(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Errorf("missing audit file should fail")
	}
}
