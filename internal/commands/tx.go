package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/model"
	"github.com/financeflow-dev/financeflow/internal/store"
)

func newTxCommand() *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}
	txCmd.AddCommand(newTxAddCommand())
	txCmd.AddCommand(newTxListCommand())
	txCmd.AddCommand(newTxEditCommand())
	txCmd.AddCommand(newTxRemoveCommand())
	return txCmd
}

func newTxAddCommand() *cobra.Command {
	var dir, title, amount, txType, account, to, category, currency, date string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction and settle account balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			when, err := parseDateFlag(date)
			if err != nil {
				return err
			}

			stored, err := a.ledger.Create(model.Transaction{
				Title:       title,
				Category:    category,
				Amount:      amt,
				Date:        when,
				Type:        model.TransactionType(txType),
				AccountID:   account,
				ToAccountID: to,
				Currency:    a.currencyOr(currency),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added transaction %s (%s)\n", stored.Title, stored.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&title, "title", "", "transaction title (required)")
	_ = cmd.MarkFlagRequired("title")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, always positive (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&txType, "type", string(model.TypeExpense), "income, expense, transfer or debt")
	cmd.Flags().StringVar(&account, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&to, "to", "", "destination account id for transfers")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code, defaults to the configured currency")
	cmd.Flags().StringVar(&date, "date", "", "transaction date, defaults to now")

	return cmd
}

func newTxListCommand() *cobra.Command {
	var dir, account, txType, category, source, from, until string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			filter := store.TransactionFilter{
				AccountID: account,
				Type:      model.TransactionType(txType),
				Category:  category,
				SourceID:  source,
			}
			if from != "" {
				d, err := parseDateFlag(from)
				if err != nil {
					return err
				}
				filter.From = model.DayStart(d)
			}
			if until != "" {
				d, err := parseDateFlag(until)
				if err != nil {
					return err
				}
				filter.Until = model.DayStart(d)
			}

			return printTransactions(a.txs.List(filter))
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&account, "account", "", "only this account, either side of a transfer")
	cmd.Flags().StringVar(&txType, "type", "", "only this transaction type")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&source, "source", "", "only occurrences of this planned payment")
	cmd.Flags().StringVar(&from, "from", "", "start day, inclusive")
	cmd.Flags().StringVar(&until, "until", "", "end day, exclusive")

	return cmd
}

func printTransactions(txs []model.Transaction) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tID\tTITLE\tTYPE\tAMOUNT\tCURRENCY\tACCOUNT")

	for _, tx := range txs {
		account := tx.AccountID
		if tx.Type == model.TypeTransfer {
			account = tx.AccountID + " > " + tx.ToAccountID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.EffectiveDate().Format(time.DateOnly), tx.ID, tx.Title, tx.Type,
			formatAmount(tx.Amount, tx.Currency), tx.Currency, account)
	}

	return w.Flush()
}

func newTxEditCommand() *cobra.Command {
	var dir, title, amount, txType, account, to, category, currency, date string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction, reverting and reapplying its balance effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			tx, err := a.txs.Get(args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("title") {
				tx.Title = title
			}
			if cmd.Flags().Changed("amount") {
				tx.Amount, err = decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("parsing amount %q: %w", amount, err)
				}
			}
			if cmd.Flags().Changed("type") {
				tx.Type = model.TransactionType(txType)
			}
			if cmd.Flags().Changed("account") {
				tx.AccountID = account
			}
			if cmd.Flags().Changed("to") {
				tx.ToAccountID = to
			}
			if cmd.Flags().Changed("category") {
				tx.Category = category
			}
			if cmd.Flags().Changed("currency") {
				tx.Currency = currency
			}
			if cmd.Flags().Changed("date") {
				tx.Date, err = parseDateFlag(date)
				if err != nil {
					return err
				}
			}

			updated, err := a.ledger.Update(tx)
			if err != nil {
				return err
			}

			fmt.Printf("Updated transaction %s (%s)\n", updated.Title, updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&title, "title", "", "transaction title")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, always positive")
	cmd.Flags().StringVar(&txType, "type", "", "income, expense, transfer or debt")
	cmd.Flags().StringVar(&account, "account", "", "account id")
	cmd.Flags().StringVar(&to, "to", "", "destination account id for transfers")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code")
	cmd.Flags().StringVar(&date, "date", "", "transaction date")

	return cmd
}

func newTxRemoveCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove transactions, reverting their balance effects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			seen := make(map[string]bool, len(args))
			ids := make([]string, 0, len(args))
			for _, id := range args {
				if seen[id] {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
			}

			if len(ids) == 1 {
				if err := a.ledger.Delete(ids[0]); err != nil {
					return err
				}
			} else if err := a.ledger.DeleteBatch(ids); err != nil {
				return err
			}

			fmt.Printf("Removed %d transaction(s)\n", len(ids))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")

	return cmd
}

// parseDateFlag accepts a plain day or an RFC 3339 timestamp. An empty
// value means now.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: expected %s or RFC 3339", s, time.DateOnly)
	}
	return t, nil
}
