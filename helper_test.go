package closebook

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func decFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// testSnapshot builds the three-entity August 2025 close used across the
// run-level tests. Every engine finds something to chew on:
//
//   - ENT-01's trial balance nets to 500 instead of zero
//   - each entity has one timing, one forensic and two duplicate bank txns
//   - each entity has an open bill and an open invoice with bank candidates
//   - ENT-01 carries an intercompany doc out of balance by 1000 with ENT-02
//   - each entity has one reversible prior-period accrual of 15000
//   - each entity's revenue runs 15000 under budget, above the 10% band
func testSnapshot(dir string) *Snapshot {
	s := NewSnapshot(MustParsePeriod("2025-08"), dir)

	for _, entity := range []string{"ENT-01", "ENT-02", "ENT-03"} {
		opex := dec(-5000)
		if entity == "ENT-01" {
			opex = dec(-4500) // nets the trial balance to 500
		}
		s.AddGL(
			GLRow{Entity: entity, Account: "1000-Cash", Balance: dec(120000), Currency: "USD"},
			GLRow{Entity: entity, Account: "1200-Accounts Receivable", Balance: dec(80000), Currency: "USD"},
			GLRow{Entity: entity, Account: "2000-Accounts Payable", Balance: dec(-50000), Currency: "USD"},
			GLRow{Entity: entity, Account: "4000-Revenue", Balance: dec(-115000), Currency: "USD"},
			GLRow{Entity: entity, Account: "5000-Opex", Balance: opex, Currency: "USD"},
			GLRow{Entity: entity, Account: "6000-Accrued Expense", Balance: dec(-30000), Currency: "USD"},
		)

		s.AddBank(
			BankTxn{TxnID: "T-" + entity + "-90", Entity: entity, Date: MustParseDate("2025-08-05"),
				Amount: dec(-2000), Description: "ACME monthly invoice", Counterparty: "ACME SUPPLY", Matched: true},
			BankTxn{TxnID: "B-" + entity + "-01", Entity: entity, Date: MustParseDate("2025-08-29"),
				Amount: dec(7500), Description: "wire transfer GLOBEX", Counterparty: "GLOBEX LLC"},
			BankTxn{TxnID: "B-" + entity + "-02", Entity: entity, Date: MustParseDate("2025-08-12"),
				Amount: dec(-9900), Description: "consulting retainer", Counterparty: "SHADY HOLDINGS"},
			BankTxn{TxnID: "B-" + entity + "-03", Entity: entity, Date: MustParseDate("2025-08-10"),
				Amount: dec(-1200), Description: "office supplies", Counterparty: "ACME SUPPLY"},
			BankTxn{TxnID: "B-" + entity + "-04", Entity: entity, Date: MustParseDate("2025-08-11"),
				Amount: dec(-1200), Description: "office  supplies", Counterparty: "ACME SUPPLY"},
			BankTxn{TxnID: "B-" + entity + "-05", Entity: entity, Date: MustParseDate("2025-08-18"),
				Amount: dec(30), Description: "interest", Counterparty: "GLOBEX LLC"},
		)

		s.AddAP(
			APItem{BillID: "AP-" + entity + "-01", Entity: entity, Date: MustParseDate("2025-08-08"),
				Amount: dec(1180), Vendor: "ACME SUPPLY", Open: true},
			APItem{BillID: "AP-" + entity + "-02", Entity: entity, Date: MustParseDate("2025-08-03"),
				Amount: dec(2000), Vendor: "ACME SUPPLY"},
		)
		s.AddAR(
			ARItem{InvoiceID: "INV-" + entity + "-01", Entity: entity, Date: MustParseDate("2025-08-20"),
				Amount: dec(7500), Customer: "GLOBEX LLC", Open: true},
			ARItem{InvoiceID: "INV-" + entity + "-02", Entity: entity, Date: MustParseDate("2025-08-02"),
				Amount: dec(3000), Customer: "GLOBEX LLC"},
		)

		s.AddAccruals(
			AccrualRow{AccrualID: "ACR-" + entity + "-01", Entity: entity, Account: "5000-Opex",
				Amount: dec(15000), PostedPeriod: "2025-07", Reversible: true},
			AccrualRow{AccrualID: "ACR-" + entity + "-02", Entity: entity, Account: "5000-Opex",
				Amount: dec(8000), PostedPeriod: "2025-06", Reversible: true},
			AccrualRow{AccrualID: "ACR-" + entity + "-03", Entity: entity, Account: "5000-Opex",
				Amount: dec(2500), PostedPeriod: "2025-07"},
		)

		s.AddBudget(
			BudgetRow{Entity: entity, Account: "4000-Revenue", Budget: dec(-100000), Prior: dec(-112000)},
			BudgetRow{Entity: entity, Account: "5000-Opex", Budget: dec(-5000), Prior: dec(-4900)},
		)

		s.AddEmails(EmailRow{EmailID: "EM-" + entity + "-01", Entity: entity,
			Subject: "Accrual support", RelatedID: "ACR-" + entity + "-01"})
	}

	s.AddIC(
		ICDoc{DocID: "DOC-100", SrcEntity: "ENT-01", DstEntity: "ENT-02",
			AmountSrc: dec(50000), AmountDst: dec(49000), Date: MustParseDate("2025-08-15")},
		ICDoc{DocID: "DOC-101", SrcEntity: "ENT-01", DstEntity: "ENT-02",
			AmountSrc: dec(20000), AmountDst: dec(20000), Date: MustParseDate("2025-08-16")},
	)
	s.AddFX(FXRate{Currency: "USD", RateUSD: dec(1)})
	return s
}
