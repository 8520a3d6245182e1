package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// TransactionStore holds the transaction log. Every mutation writes through
// to disk before it becomes visible to readers; on a failed write the
// in-memory state is rolled back.
type TransactionStore struct {
	mu   sync.RWMutex
	path string
	byID map[string]model.Transaction
}

// OpenTransactions loads the transaction log from dir. A missing file
// yields an empty store.
func OpenTransactions(dir string) (*TransactionStore, error) {
	s := &TransactionStore{
		path: filepath.Join(dir, TransactionsFile),
		byID: make(map[string]model.Transaction),
	}
	items, err := readLines[model.Transaction](s.path)
	if err != nil {
		return nil, err
	}
	for _, tx := range items {
		s.byID[tx.ID] = tx
	}
	return s, nil
}

// TransactionFilter narrows List results. Zero fields match everything.
type TransactionFilter struct {
	AccountID string // matches either side of a transfer
	Type      model.TransactionType
	Category  string
	SourceID  string
	From      time.Time // inclusive, against the effective date
	Until     time.Time // exclusive
}

func (f TransactionFilter) matches(tx model.Transaction) bool {
	if f.AccountID != "" && tx.AccountID != f.AccountID && tx.ToAccountID != f.AccountID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.SourceID != "" && tx.SourcePlannedPaymentID != f.SourceID {
		return false
	}
	d := tx.EffectiveDate()
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.Until.IsZero() && !d.Before(f.Until) {
		return false
	}
	return true
}

// Get returns the transaction with the given id.
func (s *TransactionStore) Get(id string) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.byID[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return tx, nil
}

// List returns transactions matching the filter, ordered by date then id.
func (s *TransactionStore) List(f TransactionFilter) []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Transaction
	for _, tx := range s.byID {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	sortTransactions(out)
	return out
}

// ListBySource returns every transaction generated by the given rule.
func (s *TransactionStore) ListBySource(sourceID string) []model.Transaction {
	return s.List(TransactionFilter{SourceID: sourceID})
}

// Count returns the number of stored transactions.
func (s *TransactionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// ExistsOnDay reports whether a transaction generated by the given rule
// already occupies the day bucket containing day.
func (s *TransactionStore) ExistsOnDay(sourceID string, day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, end := model.DayRange(day)
	for _, tx := range s.byID {
		if tx.SourcePlannedPaymentID != sourceID {
			continue
		}
		if d := tx.EffectiveDate(); !d.Before(start) && d.Before(end) {
			return true
		}
	}
	return false
}

// Insert adds a new transaction, assigning it an id when it has none, and
// returns the stored value.
func (s *TransactionStore) Insert(tx model.Transaction) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if _, exists := s.byID[tx.ID]; exists {
		return model.Transaction{}, fmt.Errorf("transaction %s already exists", tx.ID)
	}
	s.byID[tx.ID] = tx
	if err := s.persist(); err != nil {
		delete(s.byID, tx.ID)
		return model.Transaction{}, err
	}
	return tx, nil
}

// InsertBatch adds transactions as one write. Either all of them are
// persisted or none.
func (s *TransactionStore) InsertBatch(txs []model.Transaction) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := make([]model.Transaction, 0, len(txs))
	undo := func() {
		for _, tx := range inserted {
			delete(s.byID, tx.ID)
		}
	}
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if _, exists := s.byID[tx.ID]; exists {
			undo()
			return nil, fmt.Errorf("transaction %s already exists", tx.ID)
		}
		s.byID[tx.ID] = tx
		inserted = append(inserted, tx)
	}
	if err := s.persist(); err != nil {
		undo()
		return nil, err
	}
	return inserted, nil
}

// Update replaces the stored transaction with the same id.
func (s *TransactionStore) Update(tx model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[tx.ID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}
	s.byID[tx.ID] = tx
	if err := s.persist(); err != nil {
		s.byID[tx.ID] = prev
		return err
	}
	return nil
}

// Remove deletes the transaction with the given id.
func (s *TransactionStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	if err := s.persist(); err != nil {
		s.byID[id] = prev
		return err
	}
	return nil
}

// RemoveBatch deletes the given ids as one write. An unknown id fails the
// whole batch before anything is deleted; duplicate ids count once.
func (s *TransactionStore) RemoveBatch(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
	}
	removed := make(map[string]model.Transaction, len(ids))
	for _, id := range ids {
		if _, done := removed[id]; done {
			continue
		}
		removed[id] = s.byID[id]
		delete(s.byID, id)
	}
	if err := s.persist(); err != nil {
		for id, tx := range removed {
			s.byID[id] = tx
		}
		return err
	}
	return nil
}

func (s *TransactionStore) persist() error {
	items := make([]model.Transaction, 0, len(s.byID))
	for _, tx := range s.byID {
		items = append(items, tx)
	}
	sortTransactions(items)
	return writeLines(s.path, items)
}

func sortTransactions(txs []model.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}
