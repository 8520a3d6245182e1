// Package model defines the core ledger types: transactions, accounts, and
// the planned payment rules that generate recurring transactions.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType determines how a transaction affects account balances.
type TransactionType string

const (
	// TypeIncome credits the account with the amount.
	TypeIncome TransactionType = "income"
	// TypeExpense debits the account by the amount.
	TypeExpense TransactionType = "expense"
	// TypeTransfer moves the amount from AccountID to ToAccountID.
	TypeTransfer TransactionType = "transfer"
	// TypeDebt records an obligation without touching any balance.
	TypeDebt TransactionType = "debt"
)

// Transaction is a single ledger entry. Amount is always positive; the
// direction of the balance change is implied by Type.
type Transaction struct {
	ID                     string          `json:"id"`
	Title                  string          `json:"title"`
	Category               string          `json:"category,omitempty"`
	Amount                 decimal.Decimal `json:"amount"`
	Date                   time.Time       `json:"date"`
	OccurrenceDate         time.Time       `json:"occurrenceDate,omitzero"`
	Type                   TransactionType `json:"type"`
	AccountID              string          `json:"accountId"`
	ToAccountID            string          `json:"toAccountId,omitempty"`
	Currency               string          `json:"currency"`
	SourcePlannedPaymentID string          `json:"sourcePlannedPaymentId,omitempty"`
}

// Materialized reports whether the transaction was generated from a planned
// payment rule.
func (t Transaction) Materialized() bool {
	return t.SourcePlannedPaymentID != ""
}

// EffectiveDate is the day the transaction counts against: the materialized
// occurrence day when present, otherwise the entry timestamp.
func (t Transaction) EffectiveDate() time.Time {
	if !t.OccurrenceDate.IsZero() {
		return t.OccurrenceDate
	}
	return t.Date
}
