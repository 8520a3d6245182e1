package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financeflow-dev/financeflow/internal/model"
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

func expense(account, amount string) model.Transaction {
	return model.Transaction{
		ID:        "tx-1",
		Title:     "Groceries",
		Amount:    dec(amount),
		Date:      date(2025, 3, 10),
		Type:      model.TypeExpense,
		AccountID: account,
		Currency:  "USD",
	}
}

func assertDeltas(t *testing.T, got map[string]decimal.Decimal, want map[string]string) {
	t.Helper()
	require.Len(t, got, len(want))
	for id, amount := range want {
		require.Contains(t, got, id)
		assert.True(t, got[id].Equal(dec(amount)), "account %s: want %s, got %s", id, amount, got[id])
	}
}

func TestEffect(t *testing.T) {
	income := expense("A", "25")
	income.Type = model.TypeIncome
	assertDeltas(t, Effect(income), map[string]string{"A": "25"})

	assertDeltas(t, Effect(expense("A", "50")), map[string]string{"A": "-50"})

	transfer := expense("A", "40")
	transfer.Type = model.TypeTransfer
	transfer.ToAccountID = "B"
	assertDeltas(t, Effect(transfer), map[string]string{"A": "-40", "B": "40"})

	debt := expense("A", "100")
	debt.Type = model.TypeDebt
	assert.Empty(t, Effect(debt), "debt never touches balances")
}

func TestNetDeltasCreateAndDelete(t *testing.T) {
	tx := expense("A", "50")
	assertDeltas(t, NetDeltas(nil, &tx), map[string]string{"A": "-50"})
	assertDeltas(t, NetDeltas(&tx, nil), map[string]string{"A": "50"})
	assert.Empty(t, NetDeltas(nil, nil))
}

func TestNetDeltasEditSameAccount(t *testing.T) {
	before := expense("A", "50")
	after := expense("A", "80")
	assertDeltas(t, NetDeltas(&before, &after), map[string]string{"A": "-30"})
}

func TestNetDeltasEditMovesAccount(t *testing.T) {
	before := expense("A", "25")
	before.Type = model.TypeIncome
	after := before
	after.AccountID = "C"
	assertDeltas(t, NetDeltas(&before, &after), map[string]string{"A": "-25", "C": "25"})
}

func TestNetDeltasEditChangesType(t *testing.T) {
	before := expense("A", "50")
	after := expense("A", "80")
	after.Type = model.TypeIncome
	// Reverting -50 and applying +80 nets to +130.
	assertDeltas(t, NetDeltas(&before, &after), map[string]string{"A": "130"})
}

func TestNetDeltasNoopEditIsEmpty(t *testing.T) {
	before := expense("A", "50")
	after := before
	after.Title = "Renamed"
	assert.Empty(t, NetDeltas(&before, &after), "title edits cancel out")
}

func TestNetDeltasTransferEdit(t *testing.T) {
	before := expense("A", "40")
	before.Type = model.TypeTransfer
	before.ToAccountID = "B"

	after := before
	after.ToAccountID = "C"
	assertDeltas(t, NetDeltas(&before, &after), map[string]string{"B": "-40", "C": "40"})

	bumped := before
	bumped.Amount = dec("55")
	assertDeltas(t, NetDeltas(&before, &bumped), map[string]string{"A": "-15", "B": "15"})
}
