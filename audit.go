package closebook

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// Record type discriminators as they appear on the wire.
const (
	TypeDeterministic = "deterministic"
	TypeEvidence      = "evidence"
	TypeAIOutput      = "ai_output"
	TypeAIMetrics     = "ai_metrics"
)

// AuditRecord is one line of the append-only audit ledger. Exactly four
// variants exist: Deterministic, Evidence, AIOutput and AIMetrics. Records
// are never mutated once written.
type AuditRecord interface {
	// RecordType returns the wire discriminator.
	RecordType() string
	json.Marshaler
}

// Deterministic binds an engine function to the evidence justifying it.
type Deterministic struct {
	Fn         string `json:"fn"`
	EvidenceID string `json:"evidence_id"`
}

func (r Deterministic) RecordType() string { return TypeDeterministic }

func (r Deterministic) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", TypeDeterministic)
	w.Append("fn", r.Fn)
	w.Append("evidence_id", r.EvidenceID)
	return w.MarshalJSON()
}

// Evidence binds a deterministic computation to the exact source rows that
// justify it. InputRowIDs is nil when a lenient engine had nothing to cite.
type Evidence struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	InputRowIDs []string `json:"input_row_ids"`
}

func (r Evidence) RecordType() string { return TypeEvidence }

func (r Evidence) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", TypeEvidence)
	w.Append("id", r.ID)
	w.Append("uri", r.URI)
	w.Append("input_row_ids", r.InputRowIDs)
	return w.MarshalJSON()
}

// AIOutput stores a generated narrative artifact.
type AIOutput struct {
	Kind        string `json:"kind"`
	Artifact    string `json:"artifact"`
	GeneratedAt string `json:"generated_at"`
}

func (r AIOutput) RecordType() string { return TypeAIOutput }

func (r AIOutput) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", TypeAIOutput)
	w.Append("kind", r.Kind)
	w.Append("artifact", r.Artifact)
	w.Append("generated_at", r.GeneratedAt)
	return w.MarshalJSON()
}

// AIMetrics stores the token and cost accounting of a narrative call.
type AIMetrics struct {
	Kind    string          `json:"kind"`
	Tokens  int             `json:"tokens"`
	CostUSD decimal.Decimal `json:"cost_usd"`
}

func (r AIMetrics) RecordType() string { return TypeAIMetrics }

func (r AIMetrics) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", TypeAIMetrics)
	w.Append("kind", r.Kind)
	w.Append("tokens", r.Tokens)
	w.Append("cost_usd", r.CostUSD)
	return w.MarshalJSON()
}

// EncodeAuditLog writes records to w in JSONL format, one record per line,
// in emission order.
func EncodeAuditLog(w io.Writer, records []AuditRecord) error {
	for _, rec := range records {
		b, err := rec.MarshalJSON()
		if err != nil {
			return fmt.Errorf("could not marshal %s record: %w", rec.RecordType(), err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("could not write audit record: %w", err)
		}
	}
	return nil
}

// DecodeAuditLog reads an audit ledger from r. Malformed lines are skipped
// with a logged warning; the reader is robust by design, not fatal.
func DecodeAuditLog(r io.Reader) ([]AuditRecord, error) {
	var records []AuditRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var identifier struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &identifier); err != nil {
			log.Printf("warning: audit line %d: skipping malformed record: %v", line, err)
			continue
		}

		var rec AuditRecord
		var err error
		switch identifier.Type {
		case TypeDeterministic:
			var v Deterministic
			err = json.Unmarshal(raw, &v)
			rec = v
		case TypeEvidence:
			var v Evidence
			err = json.Unmarshal(raw, &v)
			rec = v
		case TypeAIOutput:
			var v AIOutput
			err = json.Unmarshal(raw, &v)
			rec = v
		case TypeAIMetrics:
			var v AIMetrics
			err = json.Unmarshal(raw, &v)
			rec = v
		default:
			log.Printf("warning: audit line %d: skipping record of unknown type %q", line, identifier.Type)
			continue
		}
		if err != nil {
			log.Printf("warning: audit line %d: skipping malformed %s record: %v", line, identifier.Type, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading audit log: %w", err)
	}
	return records, nil
}

// WriteAuditLog persists the ledger atomically: records are written to a
// temporary file and renamed into place, so a partial ledger never exists
// on disk.
func WriteAuditLog(path string, records []AuditRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create audit directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".audit-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary audit file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeAuditLog(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary audit file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not finalize audit file: %w", err)
	}
	return nil
}

// ReadAuditLog loads an audit ledger from disk.
func ReadAuditLog(path string) ([]AuditRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open audit file %q: %w", path, err)
	}
	defer f.Close()
	return DecodeAuditLog(f)
}
