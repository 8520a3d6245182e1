// Package ledger coordinates transaction writes so that derived account
// balances always agree with the transaction log. Every lifecycle event is
// reduced to one net per-account delta map and one atomic balance apply.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// Effect returns the balance change each account sees when tx is applied.
// Income credits the account, expense debits it, a transfer debits the
// source and credits the target. Debt is tracked outside the account
// balances and has no effect.
func Effect(tx model.Transaction) map[string]decimal.Decimal {
	switch tx.Type {
	case model.TypeIncome:
		return map[string]decimal.Decimal{tx.AccountID: tx.Amount}
	case model.TypeExpense:
		return map[string]decimal.Decimal{tx.AccountID: tx.Amount.Neg()}
	case model.TypeTransfer:
		return map[string]decimal.Decimal{
			tx.AccountID:   tx.Amount.Neg(),
			tx.ToAccountID: tx.Amount,
		}
	default:
		return nil
	}
}

// NetDeltas collapses the revert of before and the application of after
// into the per-account balance changes of a single write. Nil stands for
// absent: creates pass (nil, new), deletes (old, nil), edits (old, new).
// Accounts whose reverted and applied effects cancel are dropped, so an
// edit that only changes the title yields an empty map.
func NetDeltas(before, after *model.Transaction) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)
	if before != nil {
		for id, d := range Effect(*before) {
			deltas[id] = deltas[id].Sub(d)
		}
	}
	if after != nil {
		for id, d := range Effect(*after) {
			deltas[id] = deltas[id].Add(d)
		}
	}
	for id, d := range deltas {
		if d.IsZero() {
			delete(deltas, id)
		}
	}
	return deltas
}
