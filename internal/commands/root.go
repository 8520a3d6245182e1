package commands

import (
	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "financeflow",
		Short:   "Personal finance ledger with planned payments",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAccountCommand())
	rootCmd.AddCommand(newTxCommand())
	rootCmd.AddCommand(newPlannedCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())

	return rootCmd
}
