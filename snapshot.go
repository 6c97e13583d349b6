package closebook

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// GLRow is one general ledger balance line.
type GLRow struct {
	Entity   string          `json:"entity"`
	Account  string          `json:"account"`
	Period   string          `json:"period"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// Key returns the composite key "period|entity|account".
func (r GLRow) Key() string { return GLKey(r.Period, r.Entity, r.Account) }

// GLKey builds the composite key for a general ledger row.
func GLKey(period, entity, account string) string {
	return Normalize(period) + "|" + Normalize(entity) + "|" + Normalize(account)
}

// BankTxn is one bank statement transaction.
type BankTxn struct {
	TxnID        string          `json:"txn_id"`
	Entity       string          `json:"entity"`
	Date         Date            `json:"-"`
	DateStr      string          `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	Matched      bool            `json:"matched"`
}

// ARItem is one open or settled receivable invoice.
type ARItem struct {
	InvoiceID string          `json:"invoice_id"`
	Entity    string          `json:"entity"`
	Date      Date            `json:"-"`
	DateStr   string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Customer  string          `json:"customer"`
	Open      bool            `json:"open"`
}

// APItem is one open or settled payable bill.
type APItem struct {
	BillID  string          `json:"bill_id"`
	Entity  string          `json:"entity"`
	Date    Date            `json:"-"`
	DateStr string          `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Vendor  string          `json:"vendor"`
	Open    bool            `json:"open"`
}

// ICDoc is an intercompany document carried by both the source and the
// destination entity's books.
type ICDoc struct {
	DocID     string          `json:"doc_id"`
	SrcEntity string          `json:"src_entity"`
	DstEntity string          `json:"dst_entity"`
	AmountSrc decimal.Decimal `json:"amount_src"`
	AmountDst decimal.Decimal `json:"amount_dst"`
	DateStr   string          `json:"date"`
	Date      Date            `json:"-"`
}

// BudgetRow carries the budget and prior-period comparatives for an account.
type BudgetRow struct {
	Entity  string          `json:"entity"`
	Account string          `json:"account"`
	Budget  decimal.Decimal `json:"budget"`
	Prior   decimal.Decimal `json:"prior"`
}

// AccrualRow is one accrual eligible for rollforward.
type AccrualRow struct {
	AccrualID    string          `json:"accrual_id"`
	Entity       string          `json:"entity"`
	Account      string          `json:"account"`
	Amount       decimal.Decimal `json:"amount"`
	PostedPeriod string          `json:"posted_period"`
	Reversible   bool            `json:"reversible"`
}

// Key returns the composite key "entity|accrual_id".
func (r AccrualRow) Key() string { return Normalize(r.Entity) + "|" + Normalize(r.AccrualID) }

// EmailRow is one entry in the email evidence register.
type EmailRow struct {
	EmailID   string `json:"email_id"`
	Entity    string `json:"entity"`
	Subject   string `json:"subject"`
	RelatedID string `json:"related_id"`
}

// FXRate is the period-end rate to USD for one currency.
type FXRate struct {
	Currency string          `json:"currency"`
	RateUSD  decimal.Decimal `json:"rate_usd"`
}

// EntityData holds all source rows for one entity.
type EntityData struct {
	GL       []GLRow
	AR       []ARItem
	AP       []APItem
	Bank     []BankTxn
	IC       []ICDoc
	Budget   []BudgetRow
	Accruals []AccrualRow
	Emails   []EmailRow
	FX       []FXRate
}

// Snapshot is the immutable, period-scoped view of the source ledgers.
// It is populated once (by DecodeSnapshot or a builder) and never mutated
// during a run: every engine reads it, none writes it.
type Snapshot struct {
	period   Period
	dir      string
	entities map[string]*EntityData
}

// NewSnapshot creates an empty snapshot for a period. dir is the directory
// the snapshot's source files live in (or will be written to); it anchors
// the evidence URIs recorded in the audit ledger.
func NewSnapshot(period Period, dir string) *Snapshot {
	return &Snapshot{period: period, dir: dir, entities: make(map[string]*EntityData)}
}

func (s *Snapshot) Period() Period { return s.period }

// Entities returns all entity names in sorted order.
func (s *Snapshot) Entities() []string {
	names := slices.Collect(maps.Keys(s.entities))
	slices.Sort(names)
	return names
}

// Entity returns the data for one entity, or an empty set if unknown.
func (s *Snapshot) Entity(name string) *EntityData {
	if e, ok := s.entities[name]; ok {
		return e
	}
	return &EntityData{}
}

func (s *Snapshot) entity(name string) *EntityData {
	e, ok := s.entities[name]
	if !ok {
		e = &EntityData{}
		s.entities[name] = e
	}
	return e
}

// snapshotKinds are the source file kinds, one JSONL file per kind.
var snapshotKinds = []string{"gl", "ar", "ap", "bank", "intercompany", "budget", "accruals", "emails", "fx"}

// SourceURI returns the path of the source file backing one kind of row,
// e.g. "<dir>/bank_2025-08.jsonl". These paths are recorded in evidence
// records and resolved again by drill-through.
func (s *Snapshot) SourceURI(kind string) string {
	return filepath.Join(s.dir, kind+"_"+s.period.String()+".jsonl")
}

// Normalize coerces missing or NaN-like scalar inputs to the empty string so
// composite keys are always well-formed. It never fails.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "null", "none", "<nil>":
		return ""
	}
	return s
}

// AddGL appends general ledger rows. Builder methods must not be called once
// a run has started.
func (s *Snapshot) AddGL(rows ...GLRow) {
	for _, r := range rows {
		r.Entity, r.Account = Normalize(r.Entity), Normalize(r.Account)
		if r.Period == "" {
			r.Period = s.period.String()
		}
		e := s.entity(r.Entity)
		e.GL = append(e.GL, r)
	}
}

func (s *Snapshot) AddBank(rows ...BankTxn) {
	for _, r := range rows {
		r.Entity, r.Counterparty = Normalize(r.Entity), Normalize(r.Counterparty)
		r.syncDate()
		e := s.entity(r.Entity)
		e.Bank = append(e.Bank, r)
	}
}

func (s *Snapshot) AddAR(rows ...ARItem) {
	for _, r := range rows {
		r.Entity, r.Customer = Normalize(r.Entity), Normalize(r.Customer)
		r.syncDate()
		e := s.entity(r.Entity)
		e.AR = append(e.AR, r)
	}
}

func (s *Snapshot) AddAP(rows ...APItem) {
	for _, r := range rows {
		r.Entity, r.Vendor = Normalize(r.Entity), Normalize(r.Vendor)
		r.syncDate()
		e := s.entity(r.Entity)
		e.AP = append(e.AP, r)
	}
}

func (s *Snapshot) AddIC(rows ...ICDoc) {
	for _, r := range rows {
		r.SrcEntity, r.DstEntity = Normalize(r.SrcEntity), Normalize(r.DstEntity)
		r.syncDate()
		e := s.entity(r.SrcEntity)
		e.IC = append(e.IC, r)
	}
}

func (s *Snapshot) AddBudget(rows ...BudgetRow) {
	for _, r := range rows {
		r.Entity, r.Account = Normalize(r.Entity), Normalize(r.Account)
		e := s.entity(r.Entity)
		e.Budget = append(e.Budget, r)
	}
}

func (s *Snapshot) AddAccruals(rows ...AccrualRow) {
	for _, r := range rows {
		r.Entity, r.Account = Normalize(r.Entity), Normalize(r.Account)
		e := s.entity(r.Entity)
		e.Accruals = append(e.Accruals, r)
	}
}

func (s *Snapshot) AddEmails(rows ...EmailRow) {
	for _, r := range rows {
		r.Entity, r.EmailID = Normalize(r.Entity), Normalize(r.EmailID)
		e := s.entity(r.Entity)
		e.Emails = append(e.Emails, r)
	}
}

// AddFX appends period-end FX rates. Rates are not entity-scoped; they live
// under the blank entity.
func (s *Snapshot) AddFX(rows ...FXRate) {
	e := s.entity("")
	e.FX = append(e.FX, rows...)
}

func (r *BankTxn) syncDate() {
	if r.Date.IsZero() && r.DateStr != "" {
		if d, err := ParseDate(Normalize(r.DateStr)); err == nil {
			r.Date = d
		}
	}
	if r.DateStr == "" && !r.Date.IsZero() {
		r.DateStr = r.Date.String()
	}
}

func (r *ARItem) syncDate() {
	if r.Date.IsZero() && r.DateStr != "" {
		if d, err := ParseDate(Normalize(r.DateStr)); err == nil {
			r.Date = d
		}
	}
	if r.DateStr == "" && !r.Date.IsZero() {
		r.DateStr = r.Date.String()
	}
}

func (r *APItem) syncDate() {
	if r.Date.IsZero() && r.DateStr != "" {
		if d, err := ParseDate(Normalize(r.DateStr)); err == nil {
			r.Date = d
		}
	}
	if r.DateStr == "" && !r.Date.IsZero() {
		r.DateStr = r.Date.String()
	}
}

func (r *ICDoc) syncDate() {
	if r.Date.IsZero() && r.DateStr != "" {
		if d, err := ParseDate(Normalize(r.DateStr)); err == nil {
			r.Date = d
		}
	}
	if r.DateStr == "" && !r.Date.IsZero() {
		r.DateStr = r.Date.String()
	}
}

// DecodeSnapshot loads a snapshot for a period from a directory of JSONL
// source files. Missing files yield empty row sets. Malformed lines are
// skipped with a logged warning; they never abort ingestion.
func DecodeSnapshot(dir string, period Period) (*Snapshot, error) {
	s := NewSnapshot(period, dir)
	for _, kind := range snapshotKinds {
		path := s.SourceURI(kind)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not open snapshot file %q: %w", path, err)
		}
		if err := s.decodeKind(kind, f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not decode snapshot file %q: %w", path, err)
		}
		f.Close()
	}
	return s, nil
}

func (s *Snapshot) decodeKind(kind string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := s.decodeRow(kind, raw); err != nil {
			// A malformed source row is skipped, not fatal. Balancing
			// invariants are enforced later by the engines themselves.
			log.Printf("warning: %s line %d: skipping malformed row: %v", kind, line, err)
		}
	}
	return scanner.Err()
}

func (s *Snapshot) decodeRow(kind string, raw []byte) error {
	switch kind {
	case "gl":
		var row GLRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddGL(row)
	case "ar":
		var row ARItem
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddAR(row)
	case "ap":
		var row APItem
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddAP(row)
	case "bank":
		var row BankTxn
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddBank(row)
	case "intercompany":
		var row ICDoc
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddIC(row)
	case "budget":
		var row BudgetRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddBudget(row)
	case "accruals":
		var row AccrualRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddAccruals(row)
	case "emails":
		var row EmailRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddEmails(row)
	case "fx":
		var row FXRate
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		s.AddFX(row)
	default:
		return fmt.Errorf("unknown snapshot kind %q", kind)
	}
	return nil
}

// EncodeSnapshot persists a snapshot to its directory as one JSONL file per
// kind. Used by fixtures and the demo seeder; a production snapshot arrives
// already frozen on disk.
func EncodeSnapshot(s *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("could not create snapshot directory: %w", err)
	}
	for _, kind := range snapshotKinds {
		rows := s.rowsOf(kind)
		if len(rows) == 0 {
			continue
		}
		f, err := os.Create(s.SourceURI(kind))
		if err != nil {
			return fmt.Errorf("could not create snapshot file: %w", err)
		}
		for _, row := range rows {
			b, err := json.Marshal(row)
			if err != nil {
				f.Close()
				return fmt.Errorf("could not marshal %s row: %w", kind, err)
			}
			if _, err := f.Write(append(b, '\n')); err != nil {
				f.Close()
				return fmt.Errorf("could not write %s row: %w", kind, err)
			}
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// rowsOf flattens one kind of row across entities, in sorted entity order.
func (s *Snapshot) rowsOf(kind string) []any {
	var rows []any
	for _, name := range s.Entities() {
		e := s.entities[name]
		switch kind {
		case "gl":
			for _, r := range e.GL {
				rows = append(rows, r)
			}
		case "ar":
			for _, r := range e.AR {
				rows = append(rows, r)
			}
		case "ap":
			for _, r := range e.AP {
				rows = append(rows, r)
			}
		case "bank":
			for _, r := range e.Bank {
				rows = append(rows, r)
			}
		case "intercompany":
			for _, r := range e.IC {
				rows = append(rows, r)
			}
		case "budget":
			for _, r := range e.Budget {
				rows = append(rows, r)
			}
		case "accruals":
			for _, r := range e.Accruals {
				rows = append(rows, r)
			}
		case "emails":
			for _, r := range e.Emails {
				rows = append(rows, r)
			}
		case "fx":
			for _, r := range e.FX {
				rows = append(rows, r)
			}
		}
	}
	return rows
}
