package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bankreviews-dev/bankreviews/internal/config"
)

func newInitCommand() *cobra.Command {
	var driver string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter bankreviews.yaml",
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

			if err := runInit(absDir, driver, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized bankreviews project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "oracle", "database driver: oracle, postgres or sqlite3")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(dir, driver string, force bool) error {
	path := filepath.Join(dir, config.FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, "import"), 0o755); err != nil {
		return fmt.Errorf("creating import directory: %w", err)
	}

	cfg := config.Default()
	cfg.ImportDir = "import"
	switch driver {
	case "oracle":
	case "postgres":
		cfg.Database = config.DatabaseConfig{
			Driver: "postgres", Host: "localhost", Port: 5432,
			User: "bank_reviews", ServiceName: "bank_reviews", SSLMode: "disable",
		}
	case "sqlite3":
		cfg.Database = config.DatabaseConfig{Driver: "sqlite3", Path: "reviews.db"}
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Credentials live in .env, never in the config.
	gitignore := ".env\nrejects.csv\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	envExample := config.EnvPassword + "=\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.example"), []byte(envExample), 0o644); err != nil {
		return fmt.Errorf("writing .env.example: %w", err)
	}
	return nil
}
