package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/financeflow-dev/financeflow/internal/model"
	"github.com/financeflow-dev/financeflow/internal/store"
)

// TransactionLog is the slice of the transaction store the service writes.
type TransactionLog interface {
	Get(id string) (model.Transaction, error)
	ListBySource(sourceID string) []model.Transaction
	ExistsOnDay(sourceID string, day time.Time) bool
	Insert(tx model.Transaction) (model.Transaction, error)
	InsertBatch(txs []model.Transaction) ([]model.Transaction, error)
	Update(tx model.Transaction) error
	Remove(id string) error
	RemoveBatch(ids []string) error
}

// Balances is the slice of the account store the service adjusts.
type Balances interface {
	Get(id string) (model.Account, error)
	ApplyDeltas(deltas map[string]decimal.Decimal) error
}

// ConsistencyError reports that the transaction log and the account store
// no longer agree, for example when reverting a transaction whose account
// has been deleted. Unlike a persistence failure it is not retryable.
type ConsistencyError struct {
	Op  string
	Err error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("ledger consistency: %s: %v", e.Op, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// Service is the balance reconciler. All transaction writes go through it;
// a single mutex serializes the combined (transaction, account) write so
// readers never observe a log change without its balance effect. The log
// is written first and undone again if the balance apply fails.
type Service struct {
	mu       sync.Mutex
	txs      TransactionLog
	accounts Balances
	log      zerolog.Logger
	onChange func()
}

// NewService wires the reconciler over the two stores.
func NewService(txs TransactionLog, accounts Balances, log zerolog.Logger) *Service {
	return &Service{
		txs:      txs,
		accounts: accounts,
		log:      log,
		onChange: func() {},
	}
}

// OnChange registers fn to run after every successful mutation. The feeds
// use it to recompute their snapshots. Call it during wiring, before the
// service is shared between goroutines.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

// Create validates tx, appends it to the log, and applies its balance
// effect. A missing occurrence date defaults to the transaction date. A
// transaction generated by a rule is rejected when its day bucket already
// holds an occurrence of that rule. The stored transaction, including its
// assigned id, is returned.
func (s *Service) Create(tx model.Transaction) (model.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.resolveAccounts(tx); err != nil {
		return model.Transaction{}, err
	}
	if tx.OccurrenceDate.IsZero() {
		tx.OccurrenceDate = tx.Date
	}
	if tx.SourcePlannedPaymentID != "" {
		if err := s.occupiedDay(tx.SourcePlannedPaymentID, tx.EffectiveDate()); err != nil {
			return model.Transaction{}, err
		}
	}

	stored, err := s.txs.Insert(tx)
	if err != nil {
		return model.Transaction{}, err
	}
	err = s.settle(NetDeltas(nil, &stored), "create", func() error {
		return s.txs.Remove(stored.ID)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	s.log.Debug().Str("id", stored.ID).Str("type", string(stored.Type)).Msg("transaction created")
	s.onChange()
	return stored, nil
}

// Update replaces a transaction and settles the balances as one net
// adjustment: the old effect is reverted and the new one applied in a
// single balance write, so no intermediate revert-only state is ever
// visible. The occurrence date and rule back-reference of the stored
// transaction survive the edit unless explicitly replaced. Moving an
// occurrence onto a day its rule already fills is rejected, the same as
// on create.
func (s *Service) Update(tx model.Transaction) (model.Transaction, error) {
	if tx.ID == "" {
		return model.Transaction{}, model.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.txs.Get(tx.ID)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := s.resolveAccounts(tx); err != nil {
		return model.Transaction{}, err
	}
	if tx.OccurrenceDate.IsZero() {
		tx.OccurrenceDate = before.OccurrenceDate
	}
	if tx.OccurrenceDate.IsZero() {
		tx.OccurrenceDate = tx.Date
	}
	if tx.SourcePlannedPaymentID == "" {
		tx.SourcePlannedPaymentID = before.SourcePlannedPaymentID
	}
	moved := tx.SourcePlannedPaymentID != before.SourcePlannedPaymentID ||
		!model.SameDay(tx.EffectiveDate(), before.EffectiveDate())
	if tx.SourcePlannedPaymentID != "" && moved {
		if err := s.occupiedDay(tx.SourcePlannedPaymentID, tx.EffectiveDate()); err != nil {
			return model.Transaction{}, err
		}
	}

	if err := s.txs.Update(tx); err != nil {
		return model.Transaction{}, err
	}
	err = s.settle(NetDeltas(&before, &tx), "update", func() error {
		return s.txs.Update(before)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	s.log.Debug().Str("id", tx.ID).Msg("transaction updated")
	s.onChange()
	return tx, nil
}

// Delete removes a transaction and reverts its balance effect.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.txs.Get(id)
	if err != nil {
		return err
	}
	if err := s.txs.Remove(id); err != nil {
		return err
	}
	err = s.settle(NetDeltas(&before, nil), "delete", func() error {
		_, insErr := s.txs.Insert(before)
		return insErr
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("id", id).Msg("transaction deleted")
	s.onChange()
	return nil
}

// DeleteBatch removes several transactions and reverts their combined
// balance effect with one write per store. Either every transaction is
// removed or none. Duplicate ids count once.
func (s *Service) DeleteBatch(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteBatch(ids)
}

// DeleteBySource removes the transactions generated by the given rule
// whose occurrence day is on or after cutoff, reverting their balance
// effects. Past occurrences and user-created transactions are untouched.
// It returns the number of removed transactions.
func (s *Service) DeleteBySource(sourceID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := model.DayStart(cutoff)
	var ids []string
	for _, tx := range s.txs.ListBySource(sourceID) {
		if !tx.EffectiveDate().Before(day) {
			ids = append(ids, tx.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.deleteBatch(ids); err != nil {
		return 0, err
	}
	s.log.Info().Str("source", sourceID).Int("count", len(ids)).Msg("future occurrences removed")
	return len(ids), nil
}

// ExistsOnDay reports whether the rule already generated a transaction in
// the day bucket containing day.
func (s *Service) ExistsOnDay(sourceID string, day time.Time) bool {
	return s.txs.ExistsOnDay(sourceID, day)
}

// ListBySource returns the transactions generated by the given rule.
func (s *Service) ListBySource(sourceID string) []model.Transaction {
	return s.txs.ListBySource(sourceID)
}

func (s *Service) deleteBatch(ids []string) error {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil
	}
	removed := make([]model.Transaction, 0, len(unique))
	deltas := make(map[string]decimal.Decimal)
	for _, id := range unique {
		tx, err := s.txs.Get(id)
		if err != nil {
			return err
		}
		removed = append(removed, tx)
		for acctID, d := range NetDeltas(&tx, nil) {
			deltas[acctID] = deltas[acctID].Add(d)
		}
	}
	for acctID, d := range deltas {
		if d.IsZero() {
			delete(deltas, acctID)
		}
	}

	if err := s.txs.RemoveBatch(unique); err != nil {
		return err
	}
	err := s.settle(deltas, "delete batch", func() error {
		_, insErr := s.txs.InsertBatch(removed)
		return insErr
	})
	if err != nil {
		return err
	}

	s.log.Debug().Int("count", len(unique)).Msg("transactions deleted")
	s.onChange()
	return nil
}

// settle applies the computed deltas to the account store. On failure the
// already-persisted log write is undone so neither store moves; a failed
// undo means the stores disagree and is surfaced as a consistency error.
func (s *Service) settle(deltas map[string]decimal.Decimal, op string, undo func() error) error {
	if len(deltas) == 0 {
		return nil
	}
	if err := s.accounts.ApplyDeltas(deltas); err != nil {
		if undoErr := undo(); undoErr != nil {
			cerr := &ConsistencyError{Op: op + " rollback", Err: undoErr}
			s.log.Error().Err(cerr).Msg("log rollback failed, stores disagree")
			return cerr
		}
		if errors.Is(err, store.ErrNotFound) {
			return &ConsistencyError{Op: op, Err: err}
		}
		return err
	}
	return nil
}

// resolveAccounts checks that every account tx references exists, turning
// a miss into a validation error before anything is persisted.
func (s *Service) resolveAccounts(tx model.Transaction) error {
	if err := s.resolveAccount("accountId", tx.AccountID); err != nil {
		return err
	}
	if tx.Type == model.TypeTransfer {
		return s.resolveAccount("toAccountId", tx.ToAccountID)
	}
	return nil
}

func (s *Service) resolveAccount(field, id string) error {
	if _, err := s.accounts.Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.ValidationError{Field: field, Reason: fmt.Sprintf("unknown account %q", id)}
		}
		return err
	}
	return nil
}

// occupiedDay rejects a rule-generated transaction whose day bucket
// already holds an occurrence of the same rule.
func (s *Service) occupiedDay(sourceID string, day time.Time) error {
	if s.txs.ExistsOnDay(sourceID, day) {
		return model.ValidationError{
			Field:  "sourcePlannedPaymentId",
			Reason: fmt.Sprintf("occurrence already exists on %s", model.DayStart(day).Format(time.DateOnly)),
		}
	}
	return nil
}
