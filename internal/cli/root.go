// Package cli wires the score ledger service into its commands.
package cli

import "github.com/spf13/cobra"

// NewRootCommand creates the root command for the scored CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scored",
		Short:         "Score ledger service",
		Long:          "Maintains per-user score balances with an auditable history and daily caps.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())

	return cmd
}
