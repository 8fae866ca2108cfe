package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bankreviews-dev/bankreviews/internal/rejects"
)

func newRejectsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rejects [file]",
		Short: "Summarize the rows earlier loads skipped",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			} else {
				cfg, err := loadConfig(cmd, configPath)
				if err != nil {
					return err
				}
				path = cfg.RejectsFile
			}
			if path == "" {
				return errors.New("no rejects file: pass one or set rejects_file in the config")
			}

			entries, err := rejects.Read(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REASON\tBANK\tROWS")
			for _, c := range rejects.Summarize(entries) {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Reason, c.Bank, c.N)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d rejected rows in %s\n", len(entries), path)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)

	return cmd
}
