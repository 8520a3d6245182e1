package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/export"
	"github.com/financeflow-dev/financeflow/internal/ledger"
)

func newImportCommand() *cobra.Command {
	var dir string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import transactions from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}
			return runImport(a, args[0], dryRun)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")

	return cmd
}

func runImport(a *app, path string, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txs, err := export.ReadTransactions(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if dryRun {
		rejected := 0
		for i, tx := range txs {
			if err := tx.Validate(); err != nil {
				rejected++
				fmt.Printf("row %d would be rejected: %v\n", i+2, err)
			}
		}
		fmt.Printf("Would import %d of %d transaction(s)\n", len(txs)-rejected, len(txs))
		return nil
	}

	// Rows fail independently, except a consistency failure which means the
	// stores disagree and nothing more should be written.
	imported := 0
	for i, tx := range txs {
		if _, err := a.ledger.Create(tx); err != nil {
			var cerr *ledger.ConsistencyError
			if errors.As(err, &cerr) {
				return err
			}
			a.log.Warn().Err(err).Int("row", i+2).Msg("import row skipped")
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d of %d transaction(s)\n", imported, len(txs))
	return nil
}
