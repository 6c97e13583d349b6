package closebook

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// ErrNoAuditFile is returned when run selection finds no audit ledger.
var ErrNoAuditFile = errors.New("no audit file found")

// LatestRun returns the most recently modified audit ledger in dir.
func LatestRun(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "audit_*.jsonl"))
	if err != nil {
		return "", err
	}
	var best string
	var bestMod int64
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().UnixNano() > bestMod {
			best, bestMod = path, info.ModTime().UnixNano()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w in %q", ErrNoAuditFile, dir)
	}
	return best, nil
}

// DrillOptions tune the drill-through projection.
type DrillOptions struct {
	// RowLimit truncates the output when positive.
	RowLimit int
	// Select is an optional JSONPath expression applied to each row.
	Select string
}

// DrillThrough resolves a function name to its source rows: the latest
// deterministic record for fn (most recent in log order wins) leads to its
// evidence record, the evidence URI to the source file, and input_row_ids
// filter the rows. A nil input_row_ids returns the whole file.
func DrillThrough(auditPath, fn string, opt DrillOptions) ([]map[string]any, error) {
	records, err := ReadAuditLog(auditPath)
	if err != nil {
		return nil, err
	}

	var det *Deterministic
	evidence := make(map[string]Evidence)
	for _, rec := range records {
		switch v := rec.(type) {
		case Deterministic:
			if v.Fn == fn {
				det = &v // last one in log order wins
			}
		case Evidence:
			evidence[v.ID] = v
		}
	}
	if det == nil {
		return nil, fmt.Errorf("no deterministic record for function %q", fn)
	}
	ev, ok := evidence[det.EvidenceID]
	if !ok {
		return nil, fmt.Errorf("evidence record %q for function %q is missing", det.EvidenceID, fn)
	}

	rows, err := loadSourceRows(ev.URI)
	if err != nil {
		return nil, err
	}

	if ev.InputRowIDs != nil {
		wanted := make(map[string]bool, len(ev.InputRowIDs))
		for _, id := range ev.InputRowIDs {
			wanted[id] = true
		}
		var filtered []map[string]any
		for _, row := range rows {
			if rowMatchesAny(row, wanted) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	if opt.Select != "" {
		for i, row := range rows {
			value, err := jsonpath.Get(opt.Select, row)
			if err != nil {
				return nil, fmt.Errorf("invalid selection %q: %w", opt.Select, err)
			}
			rows[i] = map[string]any{"value": value}
		}
	}

	if opt.RowLimit > 0 && len(rows) > opt.RowLimit {
		rows = rows[:opt.RowLimit]
	}
	return rows, nil
}

// loadSourceRows opens a JSONL source file; when the exact path is missing
// it retries once with the alternate date-separator convention in the file
// name before failing.
func loadSourceRows(uri string) ([]map[string]any, error) {
	f, err := os.Open(uri)
	if os.IsNotExist(err) {
		alt := swapDateSeparators(uri)
		if alt != uri {
			if g, altErr := os.Open(alt); altErr == nil {
				f, err = g, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not open source file %q: %w", uri, err)
	}
	defer f.Close()

	var rows []map[string]any
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(raw, &row); err != nil {
			log.Printf("warning: %s line %d: skipping malformed row: %v", filepath.Base(uri), line, err)
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

var dateSepPattern = regexp.MustCompile(`(\d{4})([-_])(\d{2})(([-_])(\d{2}))?`)

// swapDateSeparators flips the date separators in a file name between the
// hyphen and underscore conventions, e.g. "bank_2025-08.jsonl" becomes
// "bank_2025_08.jsonl".
func swapDateSeparators(path string) string {
	dir, base := filepath.Split(path)
	swapped := dateSepPattern.ReplaceAllStringFunc(base, func(m string) string {
		return strings.Map(func(r rune) rune {
			switch r {
			case '-':
				return '_'
			case '_':
				return '-'
			}
			return r
		}, m)
	})
	return dir + swapped
}

// rowMatchesAny builds each composite key scheme the row supports and
// reports whether any of them is wanted. Key schemes are per domain:
// "period|entity|account" for ledger rows, "entity|accrual_id" for
// accruals, and the bare identifier for bank, intercompany, AR, AP and
// email rows.
func rowMatchesAny(row map[string]any, wanted map[string]bool) bool {
	str := func(field string) (string, bool) {
		v, ok := row[field]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return Normalize(s), ok
	}

	if period, ok := str("period"); ok {
		if entity, ok := str("entity"); ok {
			if account, ok := str("account"); ok {
				if wanted[period+"|"+entity+"|"+account] {
					return true
				}
			}
		}
	}
	if entity, ok := str("entity"); ok {
		if accrual, ok := str("accrual_id"); ok {
			if wanted[entity+"|"+accrual] {
				return true
			}
		}
	}
	for _, field := range []string{"email_id", "txn_id", "doc_id", "invoice_id", "bill_id"} {
		if id, ok := str(field); ok && wanted[id] {
			return true
		}
	}
	return false
}
