package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bankreviews-dev/bankreviews/internal/config"
	"github.com/bankreviews-dev/bankreviews/internal/ingest"
	"github.com/bankreviews-dev/bankreviews/internal/rejects"
	"github.com/bankreviews-dev/bankreviews/internal/reviews"
)

type loadOptions struct {
	configPath  string
	dir         string
	rejectsPath string
	verbose     bool
}

func newLoadCommand() *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load [files...]",
		Short: "Load review files into the reviews table in one transaction",
		Long: `Load reads every review file, resolves each review's bank against the
banks table and inserts the reviews. All files share one transaction: it is
committed at the end, or rolled back on a fatal error.

Files given as arguments replace the files listed in the config. Files found
in --dir (or import_dir) are loaded after them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configPath)
			if err != nil {
				return err
			}
			return runLoad(cmd.Context(), cmd.OutOrStdout(), cfg, opts, args)
		},
	}

	addConfigFlag(cmd, &opts.configPath)
	exts := strings.Join(reviews.DefaultRegistry().Extensions(), ", ")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "also load every review file ("+exts+") in this directory")
	cmd.Flags().StringVar(&opts.rejectsPath, "rejects", "", "append skipped rows to this CSV file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log SQL statements")

	return cmd
}

func runLoad(ctx context.Context, out io.Writer, cfg *config.Config, opts loadOptions, args []string) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	dsn, err := cfg.DSN()
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	reg := reviews.DefaultRegistry()
	files, err := inputFiles(reg, cfg, opts, args)
	if err != nil {
		return err
	}

	runner := &ingest.Runner{
		Connect:  ingest.StoreConnector(cfg.Database.Driver, dsn, logger),
		Registry: reg,
		Logger:   logger,
		RunID:    uuid.NewString(),
		Now:      time.Now,
	}
	sum, runErr := runner.Run(ctx, files)

	rejectsPath := opts.rejectsPath
	if rejectsPath == "" {
		rejectsPath = cfg.RejectsFile
	}
	if rejectsPath != "" && sum.State == ingest.StateCommitted && len(sum.Rejects) > 0 {
		if err := rejects.Append(rejectsPath, sum.Rejects); err != nil {
			logger.Error("Writing rejects file", "path", rejectsPath, "error", err)
		} else {
			logger.Info(fmt.Sprintf("Wrote %d skipped rows to %s.", len(sum.Rejects), rejectsPath))
		}
	}

	fmt.Fprintf(out, "Run %s %s: %d files, %d inserted, %d skipped, %d failed\n",
		sum.RunID, sum.State, len(sum.Files), sum.Inserted, sum.Skipped, sum.Failed)

	if runErr != nil {
		return fmt.Errorf("load %s: %w", sum.State, runErr)
	}
	return nil
}

// inputFiles lists the files of a run: args (or the configured files)
// followed by the review files in the import directory.
func inputFiles(reg *reviews.Registry, cfg *config.Config, opts loadOptions, args []string) ([]string, error) {
	files := args
	if len(files) == 0 {
		files = cfg.Files
	}
	files = append([]string(nil), files...)

	dir := opts.dir
	if dir == "" {
		dir = cfg.ImportDir
	}
	if dir == "" {
		return files, nil
	}
	found, err := reg.Scan(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range found {
		files = append(files, f.Path)
	}
	return files, nil
}
