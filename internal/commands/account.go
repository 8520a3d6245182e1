package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/model"
)

func newAccountCommand() *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	accountCmd.AddCommand(newAccountAddCommand())
	accountCmd.AddCommand(newAccountListCommand())
	accountCmd.AddCommand(newAccountResetCommand())
	accountCmd.AddCommand(newAccountRemoveCommand())
	return accountCmd
}

func newAccountAddCommand() *cobra.Command {
	var dir, name, acctType, currency, balance string
	var pinned, savings, exclude bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			bal, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("parsing balance %q: %w", balance, err)
			}

			acct, err := a.accounts.Create(model.Account{
				Name:            name,
				Balance:         bal,
				Currency:        a.currencyOr(currency),
				AccountType:     model.AccountType(acctType),
				IncludedInTotal: !exclude,
				IsPinned:        pinned,
				IsSavings:       savings,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added account %s (%s)\n", acct.Name, acct.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&acctType, "type", "bank", "account type (cash, bank, card, savings, investment)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code, defaults to the configured currency")
	cmd.Flags().StringVar(&balance, "balance", "0", "opening balance")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "pin to the top of listings")
	cmd.Flags().BoolVar(&savings, "savings", false, "mark as a savings account")
	cmd.Flags().BoolVar(&exclude, "exclude", false, "exclude from the total balance")

	return cmd
}

func newAccountListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}
			return printAccounts(a.accounts.List())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")

	return cmd
}

// printAccounts renders the account table with one total row per
// currency. Amounts in different currencies are never summed together.
func printAccounts(accounts []model.Account) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE\tCURRENCY")

	totals := make(map[string]decimal.Decimal)
	for _, acct := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			acct.ID, acct.Name, acct.AccountType, formatAmount(acct.Balance, acct.Currency), acct.Currency)
		if acct.IncludedInTotal {
			totals[acct.Currency] = totals[acct.Currency].Add(acct.Balance)
		}
	}
	codes := make([]string, 0, len(totals))
	for code := range totals {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "\tTOTAL\t\t%s\t%s\n", formatAmount(totals[code], code), code)
	}

	return w.Flush()
}

// formatAmount renders an amount with the currency's minor-unit precision.
func formatAmount(d decimal.Decimal, code string) string {
	if cur := money.GetCurrency(code); cur != nil {
		return d.StringFixed(int32(cur.Fraction))
	}
	return d.String()
}

func newAccountResetCommand() *cobra.Command {
	var dir, to string

	cmd := &cobra.Command{
		Use:   "reset-balance <id>",
		Short: "Set an account balance directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			bal, err := decimal.NewFromString(to)
			if err != nil {
				return fmt.Errorf("parsing balance %q: %w", to, err)
			}

			acct, err := a.accounts.ResetBalance(args[0], bal)
			if err != nil {
				return err
			}

			fmt.Printf("Reset %s to %s %s\n", acct.Name, formatAmount(acct.Balance, acct.Currency), acct.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&to, "to", "", "new balance (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newAccountRemoveCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}
			if err := a.accounts.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed account %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")

	return cmd
}
