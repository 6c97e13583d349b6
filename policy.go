package closebook

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MatchWeights are the relative weights of the candidate scoring features.
type MatchWeights struct {
	Amount float64 `yaml:"amount"`
	Date   float64 `yaml:"date"`
	Name   float64 `yaml:"name"`
}

// Policy is the configuration of tolerances, materiality thresholds and
// approval rules consumed by every engine. It is read once per run and
// never mutated.
type Policy struct {
	// AmountToleranceUSD is the absolute amount below which unmatched bank
	// transactions are considered immaterial.
	AmountToleranceUSD decimal.Decimal
	// DateWindowDays is the window around period end within which an
	// unmatched bank transaction is treated as a timing difference.
	DateWindowDays int
	// ICToleranceUSD is the maximum tolerated src/dst amount difference on
	// an intercompany document.
	ICToleranceUSD decimal.Decimal
	// FluxThresholdPct bands a variance "above" when it exceeds this
	// percentage of the comparison base.
	FluxThresholdPct float64
	// MaterialityUSD is the exception amount above which a human review
	// case is raised.
	MaterialityUSD decimal.Decimal
	// ApprovalLimitUSD is the journal entry amount above which the checker
	// approval is withheld pending human review.
	ApprovalLimitUSD decimal.Decimal
	// CandidateCap truncates ranked candidate lists.
	CandidateCap int
	// ICCandidateCap truncates intercompany candidate lists.
	ICCandidateCap int
	// TopVariances truncates the flux analysis top-variance list.
	TopVariances int
	// Match weights the candidate scoring features.
	Match MatchWeights
	// Maker and Checker are the actors of the journal approval workflow.
	// They must be distinct.
	Maker   string
	Checker string
	// NarrativeModel is the model used for the close narrative. Empty
	// disables the narrative step.
	NarrativeModel string
}

// DefaultPolicy returns the policy used when no configuration file is
// given.
func DefaultPolicy() Policy {
	return Policy{
		AmountToleranceUSD: decimal.NewFromInt(50),
		DateWindowDays:     5,
		ICToleranceUSD:     decimal.NewFromInt(100),
		FluxThresholdPct:   10,
		MaterialityUSD:     decimal.NewFromInt(5000),
		ApprovalLimitUSD:   decimal.NewFromInt(25000),
		CandidateCap:       5,
		ICCandidateCap:     3,
		TopVariances:       5,
		Match:              MatchWeights{Amount: 0.5, Date: 0.2, Name: 0.3},
		Maker:              "close-bot",
		Checker:            "controller",
		NarrativeModel:     "gemini-2.0-flash",
	}
}

// policyFile is the YAML overlay. Pointer fields distinguish "absent, keep
// the default" from an explicit zero.
type policyFile struct {
	AmountToleranceUSD *float64      `yaml:"amount_tolerance_usd"`
	DateWindowDays     *int          `yaml:"date_window_days"`
	ICToleranceUSD     *float64      `yaml:"ic_tolerance_usd"`
	FluxThresholdPct   *float64      `yaml:"flux_threshold_pct"`
	MaterialityUSD     *float64      `yaml:"materiality_usd"`
	ApprovalLimitUSD   *float64      `yaml:"approval_limit_usd"`
	CandidateCap       *int          `yaml:"candidate_cap"`
	ICCandidateCap     *int          `yaml:"ic_candidate_cap"`
	TopVariances       *int          `yaml:"top_variances"`
	Match              *MatchWeights `yaml:"match"`
	Maker              *string       `yaml:"maker"`
	Checker            *string       `yaml:"checker"`
	NarrativeModel     *string       `yaml:"narrative_model"`
}

// LoadPolicy reads a YAML policy file. Fields absent from the file keep
// their default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("could not read policy file %q: %w", path, err)
	}
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return p, fmt.Errorf("could not parse policy file %q: %w", path, err)
	}

	if file.AmountToleranceUSD != nil {
		p.AmountToleranceUSD = decimal.NewFromFloat(*file.AmountToleranceUSD)
	}
	if file.DateWindowDays != nil {
		p.DateWindowDays = *file.DateWindowDays
	}
	if file.ICToleranceUSD != nil {
		p.ICToleranceUSD = decimal.NewFromFloat(*file.ICToleranceUSD)
	}
	if file.FluxThresholdPct != nil {
		p.FluxThresholdPct = *file.FluxThresholdPct
	}
	if file.MaterialityUSD != nil {
		p.MaterialityUSD = decimal.NewFromFloat(*file.MaterialityUSD)
	}
	if file.ApprovalLimitUSD != nil {
		p.ApprovalLimitUSD = decimal.NewFromFloat(*file.ApprovalLimitUSD)
	}
	if file.CandidateCap != nil {
		p.CandidateCap = *file.CandidateCap
	}
	if file.ICCandidateCap != nil {
		p.ICCandidateCap = *file.ICCandidateCap
	}
	if file.TopVariances != nil {
		p.TopVariances = *file.TopVariances
	}
	if file.Match != nil {
		p.Match = *file.Match
	}
	if file.Maker != nil {
		p.Maker = *file.Maker
	}
	if file.Checker != nil {
		p.Checker = *file.Checker
	}
	if file.NarrativeModel != nil {
		p.NarrativeModel = *file.NarrativeModel
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid policy file %q: %w", path, err)
	}
	return p, nil
}

// Validate checks the policy for internal consistency.
func (p Policy) Validate() error {
	if p.CandidateCap <= 0 || p.ICCandidateCap <= 0 {
		return fmt.Errorf("candidate caps must be positive")
	}
	if p.Match.Amount < 0 || p.Match.Date < 0 || p.Match.Name < 0 {
		return fmt.Errorf("match weights must not be negative")
	}
	if p.Match.Amount+p.Match.Date+p.Match.Name == 0 {
		return fmt.Errorf("at least one match weight must be positive")
	}
	if p.Maker == "" || p.Checker == "" {
		return fmt.Errorf("maker and checker must be set")
	}
	if p.Maker == p.Checker {
		return fmt.Errorf("maker and checker must be distinct actors")
	}
	return nil
}
