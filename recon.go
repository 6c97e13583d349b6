package closebook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconStatus is the lifecycle status of a reconciliation record.
type ReconStatus int

const (
	// StatusOpen marks a record with unresolved exceptions.
	StatusOpen ReconStatus = iota
	// StatusCertified marks a record whose account reconciled clean.
	StatusCertified
	// StatusDecertified marks a record whose underlying data changed after
	// certification. The transition is one-way within a run.
	StatusDecertified
)

func (s ReconStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusCertified:
		return "certified"
	case StatusDecertified:
		return "decertified"
	default:
		return "unknown"
	}
}

// ParseReconStatus parses a string into a ReconStatus.
func ParseReconStatus(s string) (ReconStatus, error) {
	switch s {
	case "open":
		return StatusOpen, nil
	case "certified":
		return StatusCertified, nil
	case "decertified":
		return StatusDecertified, nil
	default:
		return 0, fmt.Errorf("unknown reconciliation status: %q", s)
	}
}

// ReconciliationRecord tracks the close status of one (entity, account).
// It is created by the run, certified when its account reconciles clean,
// and flipped to decertified only by the decertification monitor.
type ReconciliationRecord struct {
	Entity  string
	Account string
	Status  ReconStatus
}

// Classification is the disposition class of an unmatched bank transaction.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassTimingDifference
	ClassErrorDuplicate
	ClassForensicRisk
)

func (c Classification) String() string {
	switch c {
	case ClassTimingDifference:
		return "timing_difference"
	case ClassErrorDuplicate:
		return "error_duplicate"
	case ClassForensicRisk:
		return "forensic_risk"
	default:
		return "unknown"
	}
}

// ParseClassification parses a string into a Classification.
func ParseClassification(s string) (Classification, error) {
	switch s {
	case "timing_difference":
		return ClassTimingDifference, nil
	case "error_duplicate":
		return ClassErrorDuplicate, nil
	case "forensic_risk":
		return ClassForensicRisk, nil
	case "unknown":
		return ClassUnknown, nil
	default:
		return 0, fmt.Errorf("unknown classification: %q", s)
	}
}

// Exception is one unresolved finding emitted by an engine. Immutable once
// emitted; RowKeys cite the source rows that justify it.
type Exception struct {
	Entity         string
	Account        string
	Reason         string
	Amount         Money
	Classification Classification
	Candidates     []Candidate
	RowKeys        []string
	Narrative      string
}

// Proposal is a derived journal adjustment linked to its originating
// exception by DocID. SimulatedDstAfter and BalancedAfter are only
// meaningful for intercompany proposals.
type Proposal struct {
	DocID             string
	Entity            string
	Module            string
	Memo              string
	AmountUSD         decimal.Decimal
	DebitAccount      string
	CreditAccount     string
	SimulatedDstAfter decimal.Decimal
	BalancedAfter     bool
}

// AccrualSummary aggregates the accrual rollforward proposals. Both totals
// are recomputed literally from the proposal list; no independent drift is
// permitted.
type AccrualSummary struct {
	ProposedReversalsTotalUSD decimal.Decimal
	ProposedReversalsByEntity map[string]decimal.Decimal
}

// Band is the flux variance band.
type Band int

const (
	BandWithin Band = iota
	BandAbove
)

func (b Band) String() string {
	if b == BandAbove {
		return "above"
	}
	return "within"
}

// FluxRow is the computed variance for one (entity, account).
type FluxRow struct {
	Entity       string
	Account      string
	Actual       decimal.Decimal
	VarVsBudget  decimal.Decimal
	VarVsPrior   decimal.Decimal
	BandVsBudget Band
	BandVsPrior  Band
	// AIBasis names whichever of budget/prior has the larger absolute
	// variance; ties go to budget.
	AIBasis string
}

// FluxSummary aggregates the flux analysis rows.
type FluxSummary struct {
	// BandCounts is the literal tally of row bands across both columns.
	BandCounts map[string]int
	// TopVariances ranks rows by absolute variance, descending.
	TopVariances []FluxRow
}

// EngineResult is the output of one reconciliation engine pass.
type EngineResult struct {
	// Fn is the engine function name as it appears in the audit ledger.
	Fn string
	// SourceKind names the snapshot file kind backing the evidence URI.
	SourceKind string
	Exceptions []Exception
	Proposals  []Proposal
	// RowIDs are the composite keys for the evidence record. Strict-tier
	// engines cite every row they examined; lenient-tier engines cite
	// exception rows and leave this nil on a clean pass.
	RowIDs []string
	// Engine-specific summaries.
	Accrual *AccrualSummary
	Flux    *FluxSummary
}

// Engine names as they appear as `fn` in the audit ledger.
const (
	FnBank         = "bank_reconciliation"
	FnAP           = "ap_reconciliation"
	FnAR           = "ar_reconciliation"
	FnIntercompany = "intercompany_reconciliation"
	FnAccruals     = "accruals_check"
	FnFlux         = "flux_analysis"
	FnTB           = "tb_diagnostics"
	FnEmail        = "email_evidence"
)
