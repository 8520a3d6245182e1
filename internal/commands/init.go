package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/config"
	"github.com/financeflow-dev/financeflow/internal/model"
	"github.com/financeflow-dev/financeflow/internal/store"
)

func newInitCommand() *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, currency)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "USD", "default currency for new accounts")

	return cmd
}

func runInit(dir, currency string) error {
	if !model.ValidCurrency(currency) {
		return model.ValidationError{Field: "currency", Reason: fmt.Sprintf("unknown code %q", currency)}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	if err := config.Save(cfgPath, config.Default(currency)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Touch the store files so the directory is recognizably a ledger even
	// before the first entry.
	for _, name := range []string{store.TransactionsFile, store.AccountsFile, store.RulesFile} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}

	accounts, err := store.OpenAccounts(dir)
	if err != nil {
		return err
	}
	for _, acct := range starterAccounts(currency) {
		if _, err := accounts.Create(acct); err != nil {
			return fmt.Errorf("creating starter account %s: %w", acct.Name, err)
		}
	}

	fmt.Printf("Initialized ledger at %s\n", dir)
	return nil
}

// starterAccounts is the default set a fresh ledger begins with, in the
// configured currency.
func starterAccounts(currency string) []model.Account {
	return []model.Account{
		{Name: "Cash", AccountType: model.AccountCash, Currency: currency, IncludedInTotal: true},
		{Name: "Bank", AccountType: model.AccountBank, Currency: currency, IncludedInTotal: true},
	}
}
