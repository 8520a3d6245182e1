package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CadenceUnit is the base period of a recurrence cadence.
type CadenceUnit string

const (
	CadenceMonthly CadenceUnit = "monthly"
	CadenceWeekly  CadenceUnit = "weekly"
	// CadenceDaily repeats every Interval days.
	CadenceDaily CadenceUnit = "daily"
)

// Cadence describes how often a planned payment recurs: every Interval
// months, weeks, or days. Weekly cadences may restrict occurrences to a set
// of weekdays; the default is the start date's weekday.
type Cadence struct {
	Unit     CadenceUnit    `json:"unit"`
	Interval int            `json:"interval"`
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
}

// PlannedPaymentRule describes a recurring payment. The materializer expands
// it into concrete transactions that point back at the rule through
// SourcePlannedPaymentID.
type PlannedPaymentRule struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Category  string          `json:"category,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	AccountID string          `json:"accountId"`
	Currency  string          `json:"currency"`
	Cadence   Cadence         `json:"cadence"`
	StartDate time.Time       `json:"startDate"`
	EndDate   time.Time       `json:"endDate,omitzero"`
	Skipped   []time.Time     `json:"skippedDates,omitempty"`
}

// Occurrences returns the days in [from, until) on which the rule is due,
// expanded from StartDate and filtered by EndDate and the skipped dates.
// Returned days are midnight UTC, ascending.
func (r PlannedPaymentRule) Occurrences(from, until time.Time) []time.Time {
	from = DayStart(from)
	until = DayStart(until)
	if !until.After(from) {
		return nil
	}

	interval := r.Cadence.Interval
	if interval < 1 {
		interval = 1
	}
	start := DayStart(r.StartDate)

	var candidates []time.Time
	switch r.Cadence.Unit {
	case CadenceMonthly:
		for k := 0; ; k++ {
			d := DayStart(AddMonths(start, k*interval))
			if !d.Before(until) {
				break
			}
			candidates = append(candidates, d)
		}
	case CadenceWeekly:
		include := make(map[time.Weekday]bool, len(r.Cadence.Weekdays))
		for _, wd := range r.Cadence.Weekdays {
			include[wd] = true
		}
		if len(include) == 0 {
			include[start.Weekday()] = true
		}
		for d := start; d.Before(until); d = d.AddDate(0, 0, 1) {
			week := daysBetween(start, d) / 7
			if week%interval == 0 && include[d.Weekday()] {
				candidates = append(candidates, d)
			}
		}
	case CadenceDaily:
		for k := 0; ; k++ {
			d := start.AddDate(0, 0, k*interval)
			if !d.Before(until) {
				break
			}
			candidates = append(candidates, d)
		}
	default:
		return nil
	}

	var days []time.Time
	for _, d := range candidates {
		if d.Before(from) || r.ended(d) || r.skips(d) {
			continue
		}
		days = append(days, d)
	}
	return days
}

// NextAfter returns the first occurrence strictly after t, or the zero time
// if none falls within the next five years.
func (r PlannedPaymentRule) NextAfter(t time.Time) time.Time {
	from := DayStart(t).AddDate(0, 0, 1)
	occs := r.Occurrences(from, AddMonths(from, 60))
	if len(occs) == 0 {
		return time.Time{}
	}
	return occs[0]
}

// Occurrence builds the concrete transaction for one occurrence day.
// The store assigns the transaction its identifier on insert.
func (r PlannedPaymentRule) Occurrence(day time.Time) Transaction {
	day = DayStart(day)
	return Transaction{
		Title:                  r.Title,
		Category:               r.Category,
		Amount:                 r.Amount,
		Date:                   day,
		OccurrenceDate:         day,
		Type:                   r.Type,
		AccountID:              r.AccountID,
		Currency:               r.Currency,
		SourcePlannedPaymentID: r.ID,
	}
}

func (r PlannedPaymentRule) ended(d time.Time) bool {
	return !r.EndDate.IsZero() && d.After(DayStart(r.EndDate))
}

func (r PlannedPaymentRule) skips(d time.Time) bool {
	for _, s := range r.Skipped {
		if SameDay(s, d) {
			return true
		}
	}
	return false
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
