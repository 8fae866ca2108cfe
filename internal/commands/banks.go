package commands

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/store"
)

func newBanksCommand() *cobra.Command {
	var configPath string
	var format string

	cmd := &cobra.Command{
		Use:   "banks",
		Short: "List the banks known to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "csv" {
				return fmt.Errorf("unknown format %q (want table or csv)", format)
			}
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			dsn, err := cfg.DSN()
			if err != nil {
				return fmt.Errorf("database config: %w", err)
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			sess, err := store.Open(cmd.Context(), cfg.Database.Driver, dsn, logger)
			if err != nil {
				return fmt.Errorf("connecting: %s", store.Describe(err))
			}
			defer sess.Close()

			dir, err := sess.ResolveBanks(cmd.Context())
			if err != nil {
				return err
			}
			if format == "csv" {
				return banks.WriteCSV(cmd.OutOrStdout(), dir)
			}
			return printBanks(cmd.OutOrStdout(), dir)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or csv")

	return cmd
}

func printBanks(w io.Writer, dir *banks.Directory) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, b := range dir.All() {
		fmt.Fprintf(tw, "%d\t%s\n", b.ID, b.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d banks\n", dir.Len())
	return nil
}
