package closebook

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// engines is the fixed pipeline, in declaration order. Results are always
// merged in this order regardless of scheduling, so the ledger bytes do not
// depend on which engine finishes first.
var engines = []struct {
	fn  string
	run func(*Snapshot, Policy) (*EngineResult, error)
}{
	{FnBank, BankReconciliation},
	{FnAP, PayablesReconciliation},
	{FnAR, ReceivablesReconciliation},
	{FnIntercompany, IntercompanyReconciliation},
	{FnAccruals, AccrualsRollforward},
	{FnFlux, FluxAnalysis},
	{FnTB, TrialBalanceDiagnostics},
	{FnEmail, EmailEvidence},
}

// narrativeTimeout bounds the only suspending operation of a run.
const narrativeTimeout = 30 * time.Second

// RunResult is the outcome of one close run.
type RunResult struct {
	Period      Period
	Seed        int64
	Engines     []*EngineResult
	Records     []*ReconciliationRecord
	Decertified []*ReconciliationRecord
	Entries     []*JournalEntry
	Cases       []HITLCase
	Narrative   *Narrative
	AuditPath   string
	CasesPath   string
}

// AuditFileName returns the audit ledger file name for a period.
func AuditFileName(period Period) string {
	return "audit_" + period.String() + ".jsonl"
}

// Run executes the close pipeline once: engines over the frozen snapshot,
// journal lifecycle, decertification sweep, human review queue, narrative,
// and finally the atomic audit ledger write. It is not re-entrant mid-run.
//
// Determinism contract: identical (snapshot, policy, seed) inputs yield
// byte-identical deterministic/evidence ledger content. Any engine failure
// aborts the whole run before the ledger is finalized; a partial ledger
// never exists on disk.
func Run(ctx context.Context, snap *Snapshot, pol Policy, seed int64, narrator Narrator, outDir string) (*RunResult, error) {
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	result := &RunResult{Period: snap.Period(), Seed: seed}

	// Engines are read-only over the snapshot and independent of one
	// another, so they run in parallel. Results land in declaration order.
	results := make([]*EngineResult, len(engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, engine := range engines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := engine.run(snap, pol)
			if err != nil {
				return fmt.Errorf("engine %s failed: %w", engine.fn, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Engines = results

	// Deterministic and evidence records, in declaration order.
	var ledger []AuditRecord
	for i, res := range results {
		evidenceID := fmt.Sprintf("ev-%04d", i+1)
		ledger = append(ledger,
			Deterministic{Fn: res.Fn, EvidenceID: evidenceID},
			Evidence{ID: evidenceID, URI: snap.SourceURI(res.SourceKind), InputRowIDs: res.RowIDs},
		)
	}

	// Reconciliation records: one per (entity, account); accounts untouched
	// by any exception certify immediately.
	monitor := NewDecertMonitor()
	balances := glBalances(snap)
	openKeys := openAccounts(snap, results)
	for _, entity := range snap.Entities() {
		seen := make(map[string]bool)
		for _, row := range snap.Entity(entity).GL {
			if seen[row.Account] {
				continue
			}
			seen[row.Account] = true
			rec := &ReconciliationRecord{Entity: entity, Account: row.Account, Status: StatusOpen}
			if !openKeys[decertKey(entity, row.Account)] {
				monitor.Certify(rec, balances[decertKey(entity, row.Account)])
			}
			result.Records = append(result.Records, rec)
		}
	}

	// Human review for exceptions beyond auto-resolution thresholds.
	queue := &HITLQueue{}
	for _, res := range results {
		uri := snap.SourceURI(res.SourceKind)
		for _, exc := range res.Exceptions {
			switch {
			case exc.Classification == ClassForensicRisk:
				queue.AddReconCase(SeverityCritical, res.Fn, exc.Reason, []string{uri})
			case exc.Amount.Amount().Abs().GreaterThan(pol.MaterialityUSD):
				queue.AddReconCase(SeverityHigh, res.Fn, exc.Reason, []string{uri})
			}
		}
	}

	// Journal lifecycle over the engines' proposals, maker-checker
	// discipline throughout. Entries above the approval limit stay pending
	// behind a review case.
	journal := NewJournalStore()
	for _, res := range results {
		for _, prop := range res.Proposals {
			entry, err := draftEntry(journal, prop, snap.Period())
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue // zero-amount proposal, nothing to post
			}
			if err := entry.Submit(pol.Maker); err != nil {
				return nil, fmt.Errorf("submitting %s: %w", entry.ID, err)
			}
			if entry.Total().GreaterThan(pol.ApprovalLimitUSD) {
				queue.AddJournalCase(SeverityHigh, res.Fn,
					fmt.Sprintf("entry %s of %s exceeds approval limit", entry.ID, entry.Total()),
					[]string{snap.SourceURI(res.SourceKind)})
				continue
			}
			if err := entry.Approve(pol.Checker); err != nil {
				return nil, fmt.Errorf("approving %s: %w", entry.ID, err)
			}
			if err := entry.Post(); err != nil {
				return nil, fmt.Errorf("posting %s: %w", entry.ID, err)
			}
		}
	}
	result.Entries = journal.Entries()

	// Posting moves the working balances, which is the only mid-run data
	// change; the monitor decertifies any certified account it touched.
	for _, entry := range journal.Posted() {
		for _, line := range entry.Lines {
			key := decertKey(entry.Entity, line.Account)
			balances[key] = balances[key].Add(line.Debit).Sub(line.Credit)
		}
	}
	result.Decertified = monitor.Sweep(result.Records,
		func(entity, account string) decimal.Decimal { return balances[decertKey(entity, account)] },
		queue, []string{snap.SourceURI("gl")})
	result.Cases = queue.Cases()

	// The narrative is fire-and-forget with respect to deterministic
	// correctness: bounded timeout, placeholder on failure, never aborts.
	narrative := runNarrative(ctx, narrator, RenderRunSummary(result))
	result.Narrative = narrative
	ledger = append(ledger,
		AIOutput{Kind: narrative.Kind, Artifact: narrative.Artifact, GeneratedAt: narrative.GeneratedAt},
		AIMetrics{Kind: narrative.Kind, Tokens: narrative.Tokens, CostUSD: narrative.CostUSD},
	)

	result.AuditPath = filepath.Join(outDir, AuditFileName(snap.Period()))
	if err := WriteAuditLog(result.AuditPath, ledger); err != nil {
		return nil, err
	}
	result.CasesPath = filepath.Join(outDir, "cases_"+snap.Period().String()+".json")
	if err := WriteCases(result.CasesPath, result.Cases); err != nil {
		return nil, err
	}
	return result, nil
}

// draftEntry creates a balanced two-line draft from a proposal. A negative
// adjustment swaps the legs. Returns nil for a zero-cent proposal.
func draftEntry(journal *JournalStore, prop Proposal, period Period) (*JournalEntry, error) {
	amount := RoundCents(prop.AmountUSD.Abs())
	if amount.IsZero() {
		return nil, nil
	}
	debit, credit := prop.DebitAccount, prop.CreditAccount
	if prop.AmountUSD.IsNegative() {
		debit, credit = credit, debit
	}
	lines := []Line{
		{Account: debit, Description: prop.Memo, Debit: amount},
		{Account: credit, Description: prop.Memo, Credit: amount},
	}
	return journal.Create(prop.Module, prop.DocID, prop.Entity, period, lines), nil
}

// glBalances aggregates the snapshot's general ledger into a working
// balance per (entity, account). The snapshot itself stays frozen; this map
// is the only state posting is allowed to move.
func glBalances(snap *Snapshot) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, entity := range snap.Entities() {
		for _, row := range snap.Entity(entity).GL {
			key := decertKey(entity, row.Account)
			balances[key] = balances[key].Add(row.Balance)
		}
	}
	return balances
}

// openAccounts collects the (entity, account) keys touched by exceptions.
// An entity-wide exception (no account) keeps the whole entity open.
func openAccounts(snap *Snapshot, results []*EngineResult) map[string]bool {
	open := make(map[string]bool)
	for _, res := range results {
		for _, exc := range res.Exceptions {
			if exc.Account != "" {
				open[decertKey(exc.Entity, exc.Account)] = true
				continue
			}
			for _, row := range snap.Entity(exc.Entity).GL {
				open[decertKey(exc.Entity, row.Account)] = true
			}
		}
	}
	return open
}

// runNarrative calls the narrator under the pipeline timeout and degrades
// to the stored placeholder on any failure.
func runNarrative(ctx context.Context, narrator Narrator, summary string) *Narrative {
	if narrator == nil {
		return PlaceholderNarrative()
	}
	nctx, cancel := context.WithTimeout(ctx, narrativeTimeout)
	defer cancel()
	narrative, err := narrator.Narrate(nctx, summary)
	if err != nil {
		log.Printf("warning: narrative degraded to placeholder: %v", err)
		return PlaceholderNarrative()
	}
	return narrative
}

// FindExceptions flattens all exceptions of a run in engine order.
func (r *RunResult) FindExceptions() []Exception {
	var out []Exception
	for _, res := range r.Engines {
		out = append(out, res.Exceptions...)
	}
	return out
}

// Engine returns the result for one engine function, or nil.
func (r *RunResult) Engine(fn string) *EngineResult {
	idx := slices.IndexFunc(r.Engines, func(res *EngineResult) bool { return res.Fn == fn })
	if idx < 0 {
		return nil
	}
	return r.Engines[idx]
}
