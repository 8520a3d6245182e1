package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// AccountStore holds user accounts and their balances.
type AccountStore struct {
	mu   sync.RWMutex
	path string
	byID map[string]model.Account
}

// OpenAccounts loads the account file from dir. A missing file yields an
// empty store.
func OpenAccounts(dir string) (*AccountStore, error) {
	s := &AccountStore{
		path: filepath.Join(dir, AccountsFile),
		byID: make(map[string]model.Account),
	}
	items, err := readLines[model.Account](s.path)
	if err != nil {
		return nil, err
	}
	for _, acct := range items {
		s.byID[acct.ID] = acct
	}
	return s, nil
}

// Get returns the account with the given id.
func (s *AccountStore) Get(id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.byID[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return acct, nil
}

// List returns all accounts, pinned first, then by name.
func (s *AccountStore) List() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, 0, len(s.byID))
	for _, acct := range s.byID {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of stored accounts.
func (s *AccountStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Create validates and stores a new account, assigning it an id when it
// has none, and returns the stored value.
func (s *AccountStore) Create(acct model.Account) (model.Account, error) {
	if err := acct.Validate(); err != nil {
		return model.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if _, exists := s.byID[acct.ID]; exists {
		return model.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}
	s.byID[acct.ID] = acct
	if err := s.persist(); err != nil {
		delete(s.byID, acct.ID)
		return model.Account{}, err
	}
	return acct, nil
}

// Update replaces the stored account with the same id.
func (s *AccountStore) Update(acct model.Account) error {
	if err := acct.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[acct.ID]
	if !ok {
		return fmt.Errorf("account %s: %w", acct.ID, ErrNotFound)
	}
	s.byID[acct.ID] = acct
	if err := s.persist(); err != nil {
		s.byID[acct.ID] = prev
		return err
	}
	return nil
}

// Remove deletes the account with the given id. Transactions referencing
// it are left in place; later reverts against them fail as consistency
// violations.
func (s *AccountStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	if err := s.persist(); err != nil {
		s.byID[id] = prev
		return err
	}
	return nil
}

// ResetBalance sets an account's balance directly, outside the ledger's
// revert and apply flow. It backs the explicit user reset operation.
func (s *AccountStore) ResetBalance(id string, balance decimal.Decimal) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	prev := acct
	acct.Balance = balance
	s.byID[id] = acct
	if err := s.persist(); err != nil {
		s.byID[id] = prev
		return model.Account{}, err
	}
	return acct, nil
}

// ApplyDeltas adjusts several balances as one write. Either every account
// is updated and persisted or none are; an unknown id fails the whole
// batch untouched.
func (s *AccountStore) ApplyDeltas(deltas map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range deltas {
		if _, ok := s.byID[id]; !ok {
			return fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
	}
	prev := make(map[string]model.Account, len(deltas))
	for id, delta := range deltas {
		acct := s.byID[id]
		prev[id] = acct
		acct.Balance = acct.Balance.Add(delta)
		s.byID[id] = acct
	}
	if err := s.persist(); err != nil {
		for id, acct := range prev {
			s.byID[id] = acct
		}
		return err
	}
	return nil
}

func (s *AccountStore) persist() error {
	items := make([]model.Account, 0, len(s.byID))
	for _, acct := range s.byID {
		items = append(items, acct)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return writeLines(s.path, items)
}
