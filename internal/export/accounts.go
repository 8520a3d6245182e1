package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/financeflow-dev/financeflow/internal/model"
)

// AccountHeader is the CSV header for account exports.
const AccountHeader = "id,name,account_type,balance,currency,included_in_total,pinned,savings"

const (
	acctNumFields   = 8
	acctColID       = 0
	acctColName     = 1
	acctColType     = 2
	acctColBalance  = 3
	acctColCurrency = 4
	acctColIncluded = 5
	acctColPinned   = 6
	acctColSavings  = 7
)

// WriteAccounts writes accounts as CSV, header included.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(AccountHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, acctNumFields)
	row[acctColID] = acct.ID
	row[acctColName] = acct.Name
	row[acctColType] = string(acct.AccountType)
	row[acctColBalance] = acct.Balance.String()
	row[acctColCurrency] = acct.Currency
	row[acctColIncluded] = strconv.FormatBool(acct.IncludedInTotal)
	row[acctColPinned] = strconv.FormatBool(acct.IsPinned)
	row[acctColSavings] = strconv.FormatBool(acct.IsSavings)
	return row
}
