package model

import "github.com/shopspring/decimal"

// AccountType groups accounts for presentation.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCard       AccountType = "card"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
)

// Account holds a user balance. Balance is only ever mutated through the
// ledger service so that it stays consistent with the transaction log.
type Account struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Balance         decimal.Decimal `json:"balance"`
	Currency        string          `json:"currency"`
	AccountType     AccountType     `json:"accountType"`
	IncludedInTotal bool            `json:"includedInTotal"`
	IsPinned        bool            `json:"isPinned"`
	IsSavings       bool            `json:"isSavings"`
}
