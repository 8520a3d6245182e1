// Package recurrence expands planned payment rules into concrete dated
// transactions ahead of time, without ever duplicating an occurrence.
package recurrence

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// Ledger is the slice of the ledger service the materializer drives.
type Ledger interface {
	Create(tx model.Transaction) (model.Transaction, error)
	Delete(id string) error
	ExistsOnDay(sourceID string, day time.Time) bool
	ListBySource(sourceID string) []model.Transaction
	DeleteBySource(sourceID string, cutoff time.Time) (int, error)
}

// Rules is the slice of the rule store the materializer manages.
type Rules interface {
	Get(id string) (model.PlannedPaymentRule, error)
	List() []model.PlannedPaymentRule
	Insert(rule model.PlannedPaymentRule) (model.PlannedPaymentRule, error)
	Update(rule model.PlannedPaymentRule) error
	Remove(id string) error
}

// Materializer turns planned payment rules into dated transactions within
// a lookahead horizon. Materialization is idempotent: a day that already
// has an occurrence for a rule is never filled twice, and runs for the
// same rule are serialized so concurrent triggers cannot race the
// exists-then-create check.
type Materializer struct {
	rules  Rules
	ledger Ledger
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	perRule map[string]*sync.Mutex
}

// NewMaterializer wires the materializer over the rule store and the
// ledger service.
func NewMaterializer(rules Rules, ledger Ledger, log zerolog.Logger) *Materializer {
	return &Materializer{
		rules:   rules,
		ledger:  ledger,
		log:     log,
		now:     time.Now,
		perRule: make(map[string]*sync.Mutex),
	}
}

// EnsureFutureOccurrences materializes every rule from today through the
// next horizonMonths and returns the number of transactions created.
// Failures are isolated per occurrence: a day that cannot be created is
// logged and skipped while the scan continues.
func (m *Materializer) EnsureFutureOccurrences(horizonMonths int) int {
	from := model.DayStart(m.now())
	until := model.AddMonths(from, horizonMonths)

	created := 0
	for _, rule := range m.rules.List() {
		created += m.materializeRule(rule, from, until)
	}
	return created
}

// AddRule validates and stores a new rule. Its occurrences appear on the
// next materialization pass.
func (m *Materializer) AddRule(rule model.PlannedPaymentRule) (model.PlannedPaymentRule, error) {
	return m.rules.Insert(rule)
}

// UpdateRule replaces a rule and drops its future occurrences, which were
// generated under the old definition. Past occurrences stay as history;
// the next materialization pass regenerates the future set.
func (m *Materializer) UpdateRule(rule model.PlannedPaymentRule) error {
	lock := m.ruleLock(rule.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.rules.Update(rule); err != nil {
		return err
	}
	_, err := m.ledger.DeleteBySource(rule.ID, m.now())
	return err
}

// DeleteRule removes a rule together with its future occurrences.
func (m *Materializer) DeleteRule(id string) error {
	lock := m.ruleLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := m.rules.Remove(id); err != nil {
		return err
	}
	_, err := m.ledger.DeleteBySource(id, m.now())
	return err
}

// SkipOccurrence adds day to the rule's skipped set and deletes the
// materialized transaction for that day if it has not occurred yet.
func (m *Materializer) SkipOccurrence(id string, day time.Time) error {
	lock := m.ruleLock(id)
	lock.Lock()
	defer lock.Unlock()

	rule, err := m.rules.Get(id)
	if err != nil {
		return err
	}
	day = model.DayStart(day)
	for _, s := range rule.Skipped {
		if model.SameDay(s, day) {
			return nil
		}
	}
	rule.Skipped = append(rule.Skipped, day)
	if err := m.rules.Update(rule); err != nil {
		return err
	}

	today := model.DayStart(m.now())
	for _, tx := range m.ledger.ListBySource(id) {
		occ := tx.EffectiveDate()
		if model.SameDay(occ, day) && !occ.Before(today) {
			if err := m.ledger.Delete(tx.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Materializer) materializeRule(rule model.PlannedPaymentRule, from, until time.Time) int {
	lock := m.ruleLock(rule.ID)
	lock.Lock()
	defer lock.Unlock()

	created := 0
	for _, day := range rule.Occurrences(from, until) {
		if m.ledger.ExistsOnDay(rule.ID, day) {
			continue
		}
		if _, err := m.ledger.Create(rule.Occurrence(day)); err != nil {
			m.log.Warn().Err(err).
				Str("rule", rule.ID).
				Str("day", day.Format(time.DateOnly)).
				Msg("occurrence skipped")
			continue
		}
		created++
	}
	if created > 0 {
		m.log.Info().Str("rule", rule.ID).Int("created", created).Msg("occurrences materialized")
	}
	return created
}

func (m *Materializer) ruleLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.perRule[id]
	if !ok {
		l = &sync.Mutex{}
		m.perRule[id] = l
	}
	return l
}
