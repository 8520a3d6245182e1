package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financeflow-dev/financeflow/internal/model"
	"github.com/financeflow-dev/financeflow/internal/store"
)

type fixture struct {
	svc    *Service
	txs    *store.TransactionStore
	accts  *store.AccountStore
	a, b   model.Account
	writes int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	txs, err := store.OpenTransactions(dir)
	require.NoError(t, err)
	accts, err := store.OpenAccounts(dir)
	require.NoError(t, err)

	f := &fixture{txs: txs, accts: accts}
	f.a, err = accts.Create(model.Account{
		Name: "Checking", Balance: dec("100"), Currency: "USD", AccountType: model.AccountBank,
	})
	require.NoError(t, err)
	f.b, err = accts.Create(model.Account{
		Name: "Savings", Balance: dec("0"), Currency: "USD", AccountType: model.AccountSavings,
	})
	require.NoError(t, err)

	f.svc = NewService(txs, accts, zerolog.Nop())
	f.svc.OnChange(func() { f.writes++ })
	return f
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acct, err := f.accts.Get(id)
	require.NoError(t, err)
	return acct.Balance
}

func (f *fixture) expense(amount string) model.Transaction {
	return model.Transaction{
		Title:     "Groceries",
		Amount:    dec(amount),
		Date:      date(2025, 3, 10),
		Type:      model.TypeExpense,
		AccountID: f.a.ID,
		Currency:  "USD",
	}
}

func (f *fixture) transfer(amount string) model.Transaction {
	tx := f.expense(amount)
	tx.Title = "Top up savings"
	tx.Type = model.TypeTransfer
	tx.ToAccountID = f.b.ID
	return tx
}

func TestCreateTransfer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.transfer("40"))
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.a.ID).Equal(dec("60")))
	assert.True(t, f.balance(t, f.b.ID).Equal(dec("40")))

	total := f.balance(t, f.a.ID).Add(f.balance(t, f.b.ID))
	assert.True(t, total.Equal(dec("100")), "a transfer never changes the combined balance")
}

func TestDeleteTransferRestoresBalances(t *testing.T) {
	f := newFixture(t)

	stored, err := f.svc.Create(f.transfer("40"))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(stored.ID))

	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")))
	assert.True(t, f.balance(t, f.b.ID).Equal(dec("0")))
	assert.Equal(t, 0, f.txs.Count())
}

func TestEditAmountAppliesNetDelta(t *testing.T) {
	f := newFixture(t)

	stored, err := f.svc.Create(f.expense("50"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("50")))

	stored.Amount = dec("80")
	_, err = f.svc.Update(stored)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.a.ID).Equal(dec("20")), "50 -> 80 moves the balance by exactly -30")
}

func TestEditMovesIncomeBetweenAccounts(t *testing.T) {
	f := newFixture(t)

	income := f.expense("25")
	income.Type = model.TypeIncome
	stored, err := f.svc.Create(income)
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("125")))

	stored.AccountID = f.b.ID
	_, err = f.svc.Update(stored)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")), "the old account gives the income back")
	assert.True(t, f.balance(t, f.b.ID).Equal(dec("25")), "the new account receives it")
}

func TestDebtLeavesBalancesAlone(t *testing.T) {
	f := newFixture(t)

	debt := f.expense("500")
	debt.Type = model.TypeDebt
	_, err := f.svc.Create(debt)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")))
	assert.Equal(t, 1, f.txs.Count(), "the debt is still recorded in the log")
}

func TestCreateValidatesBeforePersisting(t *testing.T) {
	f := newFixture(t)

	bad := f.transfer("40")
	bad.ToAccountID = ""
	_, err := f.svc.Create(bad)
	var verr model.ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, 0, f.txs.Count())
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")))
	assert.Equal(t, 0, f.writes, "rejected writes publish nothing")
}

func TestCreateRejectsUnknownAccount(t *testing.T) {
	f := newFixture(t)

	tx := f.expense("10")
	tx.AccountID = "nope"
	_, err := f.svc.Create(tx)
	var verr model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "accountId", verr.Field)
	assert.Equal(t, 0, f.txs.Count())
}

func TestCreateDefaultsOccurrenceDate(t *testing.T) {
	f := newFixture(t)

	stored, err := f.svc.Create(f.expense("10"))
	require.NoError(t, err)
	assert.True(t, stored.OccurrenceDate.Equal(stored.Date))
}

func TestUpdatePreservesRuleLink(t *testing.T) {
	f := newFixture(t)

	occ := f.expense("10")
	occ.SourcePlannedPaymentID = "rule-1"
	occ.OccurrenceDate = date(2025, 3, 15)
	stored, err := f.svc.Create(occ)
	require.NoError(t, err)

	edited := stored
	edited.Amount = dec("12")
	edited.SourcePlannedPaymentID = ""
	edited.OccurrenceDate = time.Time{}
	got, err := f.svc.Update(edited)
	require.NoError(t, err)
	assert.Equal(t, "rule-1", got.SourcePlannedPaymentID, "edits keep the rule back-reference")
	assert.True(t, got.OccurrenceDate.Equal(date(2025, 3, 15)), "the occurrence day survives a blanked edit")
}

func TestCreateRejectsDuplicateOccurrence(t *testing.T) {
	f := newFixture(t)

	occ := f.expense("10")
	occ.SourcePlannedPaymentID = "rule-1"
	_, err := f.svc.Create(occ)
	require.NoError(t, err)

	// Same rule, same day, different time of day.
	again := occ
	again.Date = occ.Date.Add(6 * time.Hour)
	_, err = f.svc.Create(again)
	var verr model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sourcePlannedPaymentId", verr.Field)
	assert.Equal(t, 1, f.txs.Count())
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("90")), "the duplicate is rejected before settling")
}

func TestUpdateRejectsOccupiedDay(t *testing.T) {
	f := newFixture(t)

	jan := f.expense("10")
	jan.SourcePlannedPaymentID = "rule-1"
	jan.Date = date(2025, 1, 15)
	_, err := f.svc.Create(jan)
	require.NoError(t, err)

	feb := f.expense("10")
	feb.SourcePlannedPaymentID = "rule-1"
	feb.Date = date(2025, 2, 15)
	stored, err := f.svc.Create(feb)
	require.NoError(t, err)

	// Moving the February occurrence onto January's day collides.
	moved := stored
	moved.OccurrenceDate = date(2025, 1, 15)
	_, err = f.svc.Update(moved)
	var verr model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sourcePlannedPaymentId", verr.Field)

	got, err := f.txs.Get(stored.ID)
	require.NoError(t, err)
	assert.True(t, got.OccurrenceDate.Equal(date(2025, 2, 15)), "the rejected edit changes nothing")
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("80")))

	// A free day is fine, and so is an edit that stays on its own day.
	moved.OccurrenceDate = date(2025, 3, 15)
	_, err = f.svc.Update(moved)
	require.NoError(t, err)

	sameDay := stored
	sameDay.OccurrenceDate = date(2025, 3, 15)
	sameDay.Amount = dec("12")
	_, err = f.svc.Update(sameDay)
	assert.NoError(t, err, "an occurrence does not collide with itself")
}

func TestUpdateMissingTransaction(t *testing.T) {
	f := newFixture(t)

	ghost := f.expense("10")
	ghost.ID = "nope"
	_, err := f.svc.Update(ghost)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBatchRevertsCombinedEffect(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.Create(f.expense("30"))
	require.NoError(t, err)
	tr, err := f.svc.Create(f.transfer("20"))
	require.NoError(t, err)
	require.True(t, f.balance(t, f.a.ID).Equal(dec("50")))
	require.True(t, f.balance(t, f.b.ID).Equal(dec("20")))
	writesBefore := f.writes

	require.NoError(t, f.svc.DeleteBatch([]string{e.ID, tr.ID}))

	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")))
	assert.True(t, f.balance(t, f.b.ID).Equal(dec("0")))
	assert.Equal(t, 0, f.txs.Count())
	assert.Equal(t, writesBefore+1, f.writes, "a batch publishes once")
}

func TestDeleteBatchUnknownIDTouchesNothing(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.Create(f.expense("30"))
	require.NoError(t, err)

	err = f.svc.DeleteBatch([]string{e.ID, "nope"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, f.txs.Count())
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("70")))
}

func TestDeleteBatchDuplicateIDsRevertOnce(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.Create(f.expense("30"))
	require.NoError(t, err)
	require.True(t, f.balance(t, f.a.ID).Equal(dec("70")))

	require.NoError(t, f.svc.DeleteBatch([]string{e.ID, e.ID}))

	assert.Equal(t, 0, f.txs.Count())
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")), "a repeated id reverts its effect once, not twice")
}

func TestDeleteBySourceKeepsPastOccurrences(t *testing.T) {
	f := newFixture(t)

	for _, d := range []time.Time{date(2025, 1, 15), date(2025, 2, 15), date(2025, 3, 15)} {
		occ := f.expense("10")
		occ.Date = d
		occ.OccurrenceDate = d
		occ.SourcePlannedPaymentID = "rule-1"
		_, err := f.svc.Create(occ)
		require.NoError(t, err)
	}
	user, err := f.svc.Create(f.expense("5"))
	require.NoError(t, err)
	require.True(t, f.balance(t, f.a.ID).Equal(dec("65")))

	// Cutoff Feb 1: the January occurrence is history, the February and
	// March ones are future.
	removed, err := f.svc.DeleteBySource("rule-1", date(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left := f.txs.List(store.TransactionFilter{})
	require.Len(t, left, 2)
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("85")), "only the removed occurrences are reverted")

	_, err = f.txs.Get(user.ID)
	assert.NoError(t, err, "user transactions are never cascade-deleted")
}

func TestDeleteBySourceNoMatches(t *testing.T) {
	f := newFixture(t)
	removed, err := f.svc.DeleteBySource("rule-1", date(2025, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 0, f.writes)
}

// failingBalances wraps the real account store and fails every balance
// apply on demand.
type failingBalances struct {
	*store.AccountStore
	fail bool
}

func (f *failingBalances) ApplyDeltas(deltas map[string]decimal.Decimal) error {
	if f.fail {
		return &store.PersistenceError{Op: "write", Path: "accounts.jsonl", Err: errors.New("disk full")}
	}
	return f.AccountStore.ApplyDeltas(deltas)
}

func TestCreateRollsBackLogWhenBalancesFail(t *testing.T) {
	f := newFixture(t)
	balances := &failingBalances{AccountStore: f.accts, fail: true}
	svc := NewService(f.txs, balances, zerolog.Nop())

	_, err := svc.Create(f.expense("10"))
	require.Error(t, err)
	var perr *store.PersistenceError
	assert.ErrorAs(t, err, &perr, "persistence failures surface as retryable")

	assert.Equal(t, 0, f.txs.Count(), "the log write is undone")
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("100")))
}

func TestDeleteRollsBackLogWhenBalancesFail(t *testing.T) {
	f := newFixture(t)
	balances := &failingBalances{AccountStore: f.accts}
	svc := NewService(f.txs, balances, zerolog.Nop())

	stored, err := svc.Create(f.expense("10"))
	require.NoError(t, err)

	balances.fail = true
	require.Error(t, svc.Delete(stored.ID))

	_, err = f.txs.Get(stored.ID)
	assert.NoError(t, err, "the transaction is restored after the failed revert")
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("90")))
}

func TestDeleteBatchRollsBackLogWhenBalancesFail(t *testing.T) {
	f := newFixture(t)
	balances := &failingBalances{AccountStore: f.accts}
	svc := NewService(f.txs, balances, zerolog.Nop())

	stored, err := svc.Create(f.expense("30"))
	require.NoError(t, err)

	// The repeated id must not break the rollback re-insert.
	balances.fail = true
	err = svc.DeleteBatch([]string{stored.ID, stored.ID})
	require.Error(t, err)
	var perr *store.PersistenceError
	assert.ErrorAs(t, err, &perr, "the balance failure surfaces, not a rollback failure")

	got, err := f.txs.Get(stored.ID)
	require.NoError(t, err, "the removed transaction is restored intact")
	assert.True(t, got.Amount.Equal(dec("30")))
	assert.True(t, f.balance(t, f.a.ID).Equal(dec("70")))
}

func TestRevertAgainstDeletedAccount(t *testing.T) {
	f := newFixture(t)

	stored, err := f.svc.Create(f.expense("10"))
	require.NoError(t, err)

	require.NoError(t, f.accts.Remove(f.a.ID))

	err = f.svc.Delete(stored.ID)
	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr, "reverting against a vanished account is a consistency violation")

	_, err = f.txs.Get(stored.ID)
	assert.NoError(t, err, "the log keeps the transaction when the revert cannot settle")
}

func TestOnChangeFiresPerSuccessfulMutation(t *testing.T) {
	f := newFixture(t)

	stored, err := f.svc.Create(f.expense("10"))
	require.NoError(t, err)
	stored.Amount = dec("12")
	_, err = f.svc.Update(stored)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(stored.ID))

	assert.Equal(t, 3, f.writes)
}
