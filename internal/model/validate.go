package model

import (
	"fmt"

	"github.com/Rhymond/go-money"
)

// ValidationError rejects a write before it reaches any store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidCurrency reports whether code names a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// Validate checks the transaction's field invariants. It does not check
// referential integrity; the ledger service resolves account references.
func (t Transaction) Validate() error {
	if t.Title == "" {
		return ValidationError{"title", "must not be empty"}
	}
	if !t.Amount.IsPositive() {
		return ValidationError{"amount", "must be positive"}
	}
	switch t.Type {
	case TypeIncome, TypeExpense, TypeTransfer, TypeDebt:
	default:
		return ValidationError{"type", fmt.Sprintf("unknown type %q", t.Type)}
	}
	if t.AccountID == "" {
		return ValidationError{"accountId", "must not be empty"}
	}
	if t.Type == TypeTransfer {
		if t.ToAccountID == "" {
			return ValidationError{"toAccountId", "required for transfers"}
		}
		if t.ToAccountID == t.AccountID {
			return ValidationError{"toAccountId", "must differ from accountId"}
		}
	} else if t.ToAccountID != "" {
		return ValidationError{"toAccountId", fmt.Sprintf("not allowed for %s transactions", t.Type)}
	}
	if t.Date.IsZero() {
		return ValidationError{"date", "must be set"}
	}
	if !ValidCurrency(t.Currency) {
		return ValidationError{"currency", fmt.Sprintf("unknown code %q", t.Currency)}
	}
	return nil
}

// Validate checks the account's field invariants.
func (a Account) Validate() error {
	if a.Name == "" {
		return ValidationError{"name", "must not be empty"}
	}
	switch a.AccountType {
	case AccountCash, AccountBank, AccountCard, AccountSavings, AccountInvestment:
	default:
		return ValidationError{"accountType", fmt.Sprintf("unknown type %q", a.AccountType)}
	}
	if !ValidCurrency(a.Currency) {
		return ValidationError{"currency", fmt.Sprintf("unknown code %q", a.Currency)}
	}
	return nil
}

// Validate checks the rule's field invariants, including its cadence.
func (r PlannedPaymentRule) Validate() error {
	if r.Title == "" {
		return ValidationError{"title", "must not be empty"}
	}
	if !r.Amount.IsPositive() {
		return ValidationError{"amount", "must be positive"}
	}
	if r.Type != TypeIncome && r.Type != TypeExpense {
		return ValidationError{"type", "planned payments must be income or expense"}
	}
	if r.AccountID == "" {
		return ValidationError{"accountId", "must not be empty"}
	}
	if !ValidCurrency(r.Currency) {
		return ValidationError{"currency", fmt.Sprintf("unknown code %q", r.Currency)}
	}
	if r.StartDate.IsZero() {
		return ValidationError{"startDate", "must be set"}
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return ValidationError{"endDate", "must not precede startDate"}
	}
	return r.Cadence.Validate()
}

// Validate checks the cadence's field invariants.
func (c Cadence) Validate() error {
	switch c.Unit {
	case CadenceMonthly, CadenceWeekly, CadenceDaily:
	default:
		return ValidationError{"cadence.unit", fmt.Sprintf("unknown unit %q", c.Unit)}
	}
	if c.Interval < 1 {
		return ValidationError{"cadence.interval", "must be at least 1"}
	}
	if len(c.Weekdays) > 0 && c.Unit != CadenceWeekly {
		return ValidationError{"cadence.weekdays", "only weekly cadences may set weekdays"}
	}
	return nil
}
