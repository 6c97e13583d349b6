// Package closebook automates a periodic financial close over a frozen
// snapshot of subledger data. It is designed to be deterministic, auditable,
// and reproducible: identical inputs always produce identical conclusions.
//
// The core functionalities include:
//   - Snapshot Ingestion: Loading an immutable, period-scoped view of the
//     source ledgers (general ledger, AR, AP, bank, intercompany, budget, FX)
//     from human-readable JSONL files.
//   - Reconciliation Engines: A set of independent, read-only engines (bank,
//     payables, receivables, intercompany, accruals rollforward, flux
//     analysis, trial-balance diagnostics) that emit exceptions, ranked
//     match candidates, and proposed journal adjustments.
//   - Journal Lifecycle: A maker-checker state machine that takes proposed
//     adjustments from draft through approval to posting.
//   - Audit Ledger: An append-only, typed record log binding every
//     deterministic conclusion to the exact source rows that justify it,
//     with a post-run provenance verifier.
//
// This package serves as the foundational logic for the `closebook`
// command-line tool.
package closebook
