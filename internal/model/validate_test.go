package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validTx() Transaction {
	return Transaction{
		Title:     "Groceries",
		Category:  "food",
		Amount:    dec("42.50"),
		Date:      date(2025, 3, 10),
		Type:      TypeExpense,
		AccountID: "acct-1",
		Currency:  "USD",
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr string
	}{
		{"valid expense", func(tx *Transaction) {}, ""},
		{"valid transfer", func(tx *Transaction) {
			tx.Type = TypeTransfer
			tx.ToAccountID = "acct-2"
		}, ""},
		{"valid debt", func(tx *Transaction) { tx.Type = TypeDebt }, ""},
		{"empty title", func(tx *Transaction) { tx.Title = "" }, "title"},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(tx *Transaction) { tx.Amount = dec("-5") }, "amount"},
		{"unknown type", func(tx *Transaction) { tx.Type = "loan" }, "type"},
		{"missing account", func(tx *Transaction) { tx.AccountID = "" }, "accountId"},
		{"transfer without target", func(tx *Transaction) { tx.Type = TypeTransfer }, "toAccountId"},
		{"transfer to itself", func(tx *Transaction) {
			tx.Type = TypeTransfer
			tx.ToAccountID = tx.AccountID
		}, "toAccountId"},
		{"target on expense", func(tx *Transaction) { tx.ToAccountID = "acct-2" }, "toAccountId"},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, "date"},
		{"bogus currency", func(tx *Transaction) { tx.Currency = "XYZZY" }, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTx()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestAccountValidate(t *testing.T) {
	acct := Account{Name: "Checking", Currency: "EUR", AccountType: AccountBank}
	require.NoError(t, acct.Validate())

	acct.Name = ""
	assert.Error(t, acct.Validate())

	acct = Account{Name: "Wallet", Currency: "EUR", AccountType: "shoe box"}
	assert.Error(t, acct.Validate())

	acct = Account{Name: "Wallet", Currency: "???", AccountType: AccountCash}
	assert.Error(t, acct.Validate())
}

func TestPlannedPaymentRuleValidate(t *testing.T) {
	rule := PlannedPaymentRule{
		Title:     "Rent",
		Amount:    dec("1200"),
		Type:      TypeExpense,
		AccountID: "acct-1",
		Currency:  "USD",
		Cadence:   Cadence{Unit: CadenceMonthly, Interval: 1},
		StartDate: date(2025, 1, 1),
	}
	require.NoError(t, rule.Validate())

	bad := rule
	bad.Type = TypeTransfer
	assert.Error(t, bad.Validate(), "transfer rules are not allowed")

	bad = rule
	bad.Cadence.Interval = 0
	assert.Error(t, bad.Validate())

	bad = rule
	bad.Cadence.Unit = "fortnightly"
	assert.Error(t, bad.Validate())

	bad = rule
	bad.Cadence.Weekdays = []time.Weekday{time.Monday}
	assert.Error(t, bad.Validate(), "weekday sets require a weekly cadence")

	bad = rule
	bad.EndDate = date(2024, 12, 31)
	assert.Error(t, bad.Validate(), "end before start")

	bad = rule
	bad.StartDate = time.Time{}
	assert.Error(t, bad.Validate())
}
