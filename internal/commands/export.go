package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/export"
	"github.com/financeflow-dev/financeflow/internal/model"
	"github.com/financeflow-dev/financeflow/internal/store"
)

func newExportCommand() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export ledger data as CSV",
	}
	exportCmd.AddCommand(newExportTransactionsCommand())
	exportCmd.AddCommand(newExportAccountsCommand())
	return exportCmd
}

func newExportTransactionsCommand() *cobra.Command {
	var dir, out, account, from, until string

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Export transactions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			filter := store.TransactionFilter{AccountID: account}
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

			w, closeOut, err := openOut(out)
			if err != nil {
				return err
			}
			if err := export.WriteTransactions(w, a.txs.List(filter)); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&account, "account", "", "only this account, either side of a transfer")
	cmd.Flags().StringVar(&from, "from", "", "start day, inclusive")
	cmd.Flags().StringVar(&until, "until", "", "end day, exclusive")

	return cmd
}

func newExportAccountsCommand() *cobra.Command {
	var dir, out string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Export accounts as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			w, closeOut, err := openOut(out)
			if err != nil {
				return err
			}
			if err := export.WriteAccounts(w, a.accounts.List()); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")

	return cmd
}

func openOut(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}
