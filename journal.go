package closebook

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle status of a journal entry.
type EntryStatus int

const (
	StatusDraft EntryStatus = iota
	StatusPending
	StatusApproved
	StatusPosted
	StatusRejected
)

func (s EntryStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusPosted:
		return "posted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ParseEntryStatus parses a string into an EntryStatus.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch s {
	case "draft":
		return StatusDraft, nil
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "posted":
		return StatusPosted, nil
	case "rejected":
		return StatusRejected, nil
	default:
		return 0, fmt.Errorf("unknown journal entry status: %q", s)
	}
}

var (
	// ErrNotBalanced rejects the submission of an unbalanced entry.
	ErrNotBalanced = errors.New("journal entry is not balanced")
	// ErrSameActor rejects an approval by the entry's own maker.
	ErrSameActor = errors.New("checker must be distinct from maker")
)

// Line is a single journal entry line.
type Line struct {
	Account     string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// JournalEntry is one maker-checker controlled adjustment.
type JournalEntry struct {
	ID       string
	Module   string
	Scenario string
	Entity   string
	Period   Period
	Lines    []Line
	Status   EntryStatus
	Maker    string
	Checker  string
}

// Balanced reports whether debits and credits agree within a cent.
func (e *JournalEntry) Balanced() bool {
	net := decimal.Zero
	for _, line := range e.Lines {
		net = net.Add(line.Debit).Sub(line.Credit)
	}
	return net.Abs().LessThan(centTolerance)
}

// Total returns the entry's debit total.
func (e *JournalEntry) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

func (e *JournalEntry) badTransition(to EntryStatus) error {
	return fmt.Errorf("journal entry %s: illegal transition %s -> %s", e.ID, e.Status, to)
}

// Submit moves a balanced draft to pending and records the maker.
// An unbalanced entry can never leave draft.
func (e *JournalEntry) Submit(actor string) error {
	if e.Status != StatusDraft {
		return e.badTransition(StatusPending)
	}
	if !e.Balanced() {
		return fmt.Errorf("journal entry %s: %w", e.ID, ErrNotBalanced)
	}
	e.Status = StatusPending
	e.Maker = actor
	return nil
}

// Approve moves a pending entry to approved. The checker must be a distinct
// actor from the maker.
func (e *JournalEntry) Approve(actor string) error {
	if e.Status != StatusPending {
		return e.badTransition(StatusApproved)
	}
	if actor == e.Maker {
		return fmt.Errorf("journal entry %s: %w", e.ID, ErrSameActor)
	}
	e.Status = StatusApproved
	e.Checker = actor
	return nil
}

// Reject terminates a pending or approved entry. Rejected entries are
// excluded from posting.
func (e *JournalEntry) Reject(actor string) error {
	if e.Status != StatusPending && e.Status != StatusApproved {
		return e.badTransition(StatusRejected)
	}
	e.Status = StatusRejected
	return nil
}

// Post commits an approved entry. Irreversible.
func (e *JournalEntry) Post() error {
	if e.Status != StatusApproved {
		return e.badTransition(StatusPosted)
	}
	e.Status = StatusPosted
	return nil
}

// JournalStore is the repository of a run's journal entries. It is owned by
// the run context and scoped to one invocation; there is no ambient
// process-wide journal state.
type JournalStore struct {
	entries []*JournalEntry
	seq     int
}

// NewJournalStore creates an empty journal repository.
func NewJournalStore() *JournalStore {
	return &JournalStore{}
}

// Create adds a draft entry with a deterministic sequential id.
func (s *JournalStore) Create(module, scenario, entity string, period Period, lines []Line) *JournalEntry {
	s.seq++
	e := &JournalEntry{
		ID:       fmt.Sprintf("JE-%04d", s.seq),
		Module:   module,
		Scenario: scenario,
		Entity:   entity,
		Period:   period,
		Lines:    lines,
		Status:   StatusDraft,
	}
	s.entries = append(s.entries, e)
	return e
}

// Entries returns all entries in creation order.
func (s *JournalStore) Entries() []*JournalEntry {
	out := make([]*JournalEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Posted returns the posted entries in creation order.
func (s *JournalStore) Posted() []*JournalEntry {
	var out []*JournalEntry
	for _, e := range s.entries {
		if e.Status == StatusPosted {
			out = append(out, e)
		}
	}
	return out
}
