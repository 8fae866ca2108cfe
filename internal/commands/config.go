package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bankreviews-dev/bankreviews/internal/config"
)

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", config.FileName, "config file")
}

// loadConfig reads the config file, loading a .env next to it first. A
// missing config falls back to defaults unless the path was given
// explicitly.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	base := filepath.Dir(path)
	if err := config.LoadEnv(filepath.Join(base, ".env")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			cfg = config.Default()
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.ResolvePaths(base)
	return cfg, nil
}
