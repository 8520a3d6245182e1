// Package export reads and writes the ledger's CSV interchange format.
// The transaction format is symmetric: a file produced by WriteTransactions
// parses back with ReadTransactions unchanged.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// TransactionHeader is the CSV header for transaction exports.
const TransactionHeader = "id,date,occurrence_date,title,category,type,amount,currency,account_id,to_account_id,source_planned_payment_id"

const (
	txNumFields   = 11
	dayFormat     = "2006-01-02"
	colID         = 0
	colDate       = 1
	colOccurrence = 2
	colTitle      = 3
	colCategory   = 4
	colType       = 5
	colAmount     = 6
	colCurrency   = 7
	colAccount    = 8
	colToAccount  = 9
	colSource     = 10
)

// ReadTransactions reads a transaction CSV, header row included.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = txNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transaction CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var txs []model.Transaction
	for i, rec := range records[1:] {
		tx, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// WriteTransactions writes transactions as CSV, header included.
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tx := range txs {
		if err := cw.Write(MarshalTransaction(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(tx model.Transaction) []string {
	row := make([]string, txNumFields)
	row[colID] = tx.ID
	row[colDate] = tx.Date.Format(time.RFC3339)
	if !tx.OccurrenceDate.IsZero() {
		row[colOccurrence] = tx.OccurrenceDate.Format(dayFormat)
	}
	row[colTitle] = tx.Title
	row[colCategory] = tx.Category
	row[colType] = string(tx.Type)
	row[colAmount] = tx.Amount.String()
	row[colCurrency] = tx.Currency
	row[colAccount] = tx.AccountID
	row[colToAccount] = tx.ToAccountID
	row[colSource] = tx.SourcePlannedPaymentID
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction. Dates accept
// either RFC 3339 timestamps or plain days, so hand-written files import
// cleanly.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != txNumFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", txNumFields, len(record))
	}

	date, err := parseDate(record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var occurrence time.Time
	if record[colOccurrence] != "" {
		occurrence, err = parseDate(record[colOccurrence])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing occurrence_date %q: %w", record[colOccurrence], err)
		}
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return model.Transaction{
		ID:                     record[colID],
		Date:                   date,
		OccurrenceDate:         occurrence,
		Title:                  record[colTitle],
		Category:               record[colCategory],
		Type:                   model.TransactionType(record[colType]),
		Amount:                 amount,
		Currency:               record[colCurrency],
		AccountID:              record[colAccount],
		ToAccountID:            record[colToAccount],
		SourcePlannedPaymentID: record[colSource],
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dayFormat, s)
}
