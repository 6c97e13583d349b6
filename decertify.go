package closebook

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
)

// Severity ranks a human-review case.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity: %q", s)
	}
}

// HITLCase is one item in the human review queue. Cases are closed
// externally by a human; the run only raises them.
type HITLCase struct {
	ID           string   `json:"id"`
	Severity     string   `json:"severity"`
	Source       string   `json:"source"`
	Title        string   `json:"title"`
	EvidenceURIs []string `json:"evidence_uris"`
}

// HITLQueue collects human review cases with deterministic ids.
// Reconciliation cases take the H-REC- prefix, journal cases H-JE-.
type HITLQueue struct {
	cases  []HITLCase
	recSeq int
	jeSeq  int
}

// AddReconCase queues a reconciliation review case.
func (q *HITLQueue) AddReconCase(sev Severity, source, title string, uris []string) HITLCase {
	q.recSeq++
	c := HITLCase{
		ID:           fmt.Sprintf("H-REC-%04d", q.recSeq),
		Severity:     sev.String(),
		Source:       source,
		Title:        title,
		EvidenceURIs: uris,
	}
	q.cases = append(q.cases, c)
	return c
}

// AddJournalCase queues a journal review case.
func (q *HITLQueue) AddJournalCase(sev Severity, source, title string, uris []string) HITLCase {
	q.jeSeq++
	c := HITLCase{
		ID:           fmt.Sprintf("H-JE-%04d", q.jeSeq),
		Severity:     sev.String(),
		Source:       source,
		Title:        title,
		EvidenceURIs: uris,
	}
	q.cases = append(q.cases, c)
	return c
}

// Cases returns the queue prioritized by severity, stable within a level.
func (q *HITLQueue) Cases() []HITLCase {
	out := make([]HITLCase, len(q.cases))
	copy(out, q.cases)
	rank := map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Severity] < rank[out[j].Severity]
	})
	return out
}

// WriteCases persists the review queue as a JSON list of cases.
func WriteCases(path string, cases []HITLCase) error {
	if cases == nil {
		cases = []HITLCase{}
	}
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal cases: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("could not write cases file: %w", err)
	}
	return nil
}

// ReadCases loads a cases file.
func ReadCases(path string) ([]HITLCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read cases file %q: %w", path, err)
	}
	var cases []HITLCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("could not parse cases file %q: %w", path, err)
	}
	return cases, nil
}

// DecertMonitor watches certified reconciliation records for underlying
// balance changes within the run. Certification fingerprints the balance;
// any later drift flips the record to decertified, one-way.
type DecertMonitor struct {
	baseline map[string]decimal.Decimal
}

// NewDecertMonitor creates an empty monitor.
func NewDecertMonitor() *DecertMonitor {
	return &DecertMonitor{baseline: make(map[string]decimal.Decimal)}
}

func decertKey(entity, account string) string { return entity + "|" + account }

// Certify marks a record certified and fingerprints its balance.
func (m *DecertMonitor) Certify(rec *ReconciliationRecord, balance decimal.Decimal) {
	rec.Status = StatusCertified
	m.baseline[decertKey(rec.Entity, rec.Account)] = balance
}

// Sweep re-reads the balance of every certified record and decertifies
// those whose balance drifted since certification. Each flip raises an
// elevated-severity review case. Returns the flipped records.
func (m *DecertMonitor) Sweep(records []*ReconciliationRecord, balance func(entity, account string) decimal.Decimal, q *HITLQueue, uris []string) []*ReconciliationRecord {
	var flipped []*ReconciliationRecord
	for _, rec := range records {
		if rec.Status != StatusCertified {
			continue
		}
		base, ok := m.baseline[decertKey(rec.Entity, rec.Account)]
		if !ok {
			continue
		}
		now := balance(rec.Entity, rec.Account)
		if now.Equal(base) {
			continue
		}
		rec.Status = StatusDecertified
		flipped = append(flipped, rec)
		q.AddReconCase(SeverityCritical, "decertification",
			fmt.Sprintf("%s %s decertified: balance moved from %s to %s after certification", rec.Entity, rec.Account, base, now),
			uris)
	}
	return flipped
}
