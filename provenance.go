package closebook

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// strictEngines must cite a non-empty list of input rows in their evidence.
// Every other engine is lenient: a nil or empty list is a valid clean pass,
// but the evidence record itself must exist.
var strictEngines = map[string]bool{
	FnTB:       true,
	FnAccruals: true,
	FnEmail:    true,
}

// VerificationError is one provenance failure for one engine function.
type VerificationError struct {
	Fn     string
	Reason string
}

func (e VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Fn, e.Reason)
}

// VerificationReport aggregates the provenance check per engine.
type VerificationReport struct {
	// Checked lists the verified engine functions in sorted order.
	Checked []string
	// Failures holds one entry per failing engine.
	Failures []VerificationError
}

// OK reports whether every engine passed.
func (r *VerificationReport) OK() bool { return len(r.Failures) == 0 }

// Err returns the aggregated verification error, or nil when all passed.
func (r *VerificationReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Verify checks the provenance invariants of an audit ledger: every
// deterministic record's evidence_id must resolve to exactly one evidence
// record in the same ledger, and strict-tier engines must cite a non-empty
// row list. Among multiple deterministic records for the same function, the
// latest in log order is authoritative; this mirrors the ledger's
// append-only override semantics. Verify never mutates the ledger.
func Verify(records []AuditRecord) *VerificationReport {
	evidence := make(map[string]Evidence)
	latest := make(map[string]Deterministic)
	for _, rec := range records {
		switch v := rec.(type) {
		case Evidence:
			evidence[v.ID] = v
		case Deterministic:
			latest[v.Fn] = v // last write wins
		}
	}

	report := &VerificationReport{Checked: slices.Sorted(maps.Keys(latest))}
	for _, fn := range report.Checked {
		det := latest[fn]
		ev, ok := evidence[det.EvidenceID]
		if !ok {
			report.Failures = append(report.Failures, VerificationError{
				Fn:     fn,
				Reason: fmt.Sprintf("evidence record %q is missing", det.EvidenceID),
			})
			continue
		}
		if strictEngines[fn] && len(ev.InputRowIDs) == 0 {
			report.Failures = append(report.Failures, VerificationError{
				Fn:     fn,
				Reason: "strict engine cited no input rows",
			})
		}
	}
	return report
}
