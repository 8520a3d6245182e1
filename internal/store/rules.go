package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// RuleStore holds planned payment rules.
type RuleStore struct {
	mu   sync.RWMutex
	path string
	byID map[string]model.PlannedPaymentRule
}

// OpenRules loads the planned payment file from dir. A missing file yields
// an empty store.
func OpenRules(dir string) (*RuleStore, error) {
	s := &RuleStore{
		path: filepath.Join(dir, RulesFile),
		byID: make(map[string]model.PlannedPaymentRule),
	}
	items, err := readLines[model.PlannedPaymentRule](s.path)
	if err != nil {
		return nil, err
	}
	for _, rule := range items {
		s.byID[rule.ID] = rule
	}
	return s, nil
}

// Get returns the rule with the given id.
func (s *RuleStore) Get(id string) (model.PlannedPaymentRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.byID[id]
	if !ok {
		return model.PlannedPaymentRule{}, fmt.Errorf("planned payment %s: %w", id, ErrNotFound)
	}
	return rule, nil
}

// List returns all rules ordered by title then id.
func (s *RuleStore) List() []model.PlannedPaymentRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PlannedPaymentRule, 0, len(s.byID))
	for _, rule := range s.byID {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of stored rules.
func (s *RuleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Insert validates and stores a new rule, assigning it an id when it has
// none, and returns the stored value.
func (s *RuleStore) Insert(rule model.PlannedPaymentRule) (model.PlannedPaymentRule, error) {
	if err := rule.Validate(); err != nil {
		return model.PlannedPaymentRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if _, exists := s.byID[rule.ID]; exists {
		return model.PlannedPaymentRule{}, fmt.Errorf("planned payment %s already exists", rule.ID)
	}
	s.byID[rule.ID] = rule
	if err := s.persist(); err != nil {
		delete(s.byID, rule.ID)
		return model.PlannedPaymentRule{}, err
	}
	return rule, nil
}

// Update replaces the stored rule with the same id.
func (s *RuleStore) Update(rule model.PlannedPaymentRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[rule.ID]
	if !ok {
		return fmt.Errorf("planned payment %s: %w", rule.ID, ErrNotFound)
	}
	s.byID[rule.ID] = rule
	if err := s.persist(); err != nil {
		s.byID[rule.ID] = prev
		return err
	}
	return nil
}

// Remove deletes the rule with the given id.
func (s *RuleStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("planned payment %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	if err := s.persist(); err != nil {
		s.byID[id] = prev
		return err
	}
	return nil
}

func (s *RuleStore) persist() error {
	items := make([]model.PlannedPaymentRule, 0, len(s.byID))
	for _, rule := range s.byID {
		items = append(items, rule)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return writeLines(s.path, items)
}
