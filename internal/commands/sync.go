package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/feed"
	"github.com/financeflow-dev/financeflow/internal/model"
)

func newSyncCommand() *cobra.Command {
	var dir string
	var horizon int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Materialize upcoming planned payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			months := horizon
			if months <= 0 {
				months = a.cfg.Ledger.HorizonMonths
			}

			// Balances move as occurrences land. Watch them through the
			// feed so the summary is only printed when something changed.
			balances := feed.New(func() ([]model.Account, error) {
				return a.accounts.List(), nil
			}, a.log)
			a.ledger.OnChange(func() {
				if err := balances.Refresh(); err != nil {
					a.log.Warn().Err(err).Msg("balance feed refresh failed")
				}
			})

			var latest []model.Account
			updates := 0
			cancel, err := balances.Subscribe(func(accts []model.Account) {
				latest = accts
				updates++
			})
			if err != nil {
				return fmt.Errorf("watching balances: %w", err)
			}
			defer cancel()

			created := a.planner.EnsureFutureOccurrences(months)

			fmt.Printf("Materialized %d occurrence(s) over %d month(s)\n", created, months)
			if updates > 1 {
				fmt.Println("Balances after sync:")
				return printAccounts(latest)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "months to look ahead, defaults to the configured horizon")

	return cmd
}
