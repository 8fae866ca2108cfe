package commands

import (
	"github.com/spf13/cobra"

	"github.com/bankreviews-dev/bankreviews/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bankreviews",
		Short:   "Load bank app reviews into the reviews database",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newBanksCommand())
	rootCmd.AddCommand(newRejectsCommand())

	return rootCmd
}
