package commands_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bankreviews-dev/bankreviews/internal/commands"
	"github.com/bankreviews-dev/bankreviews/internal/config"
)

const sampleCSV = "../../testdata/processed_boa_bank_reviews.csv"

func runBankreviews(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := commands.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeConfig writes a config pointing at dsn and returns its path.
func writeConfig(t *testing.T, dsn string, mutate func(*config.Config)) string {
	t.Helper()
	t.Setenv(config.EnvDSN, "")
	t.Setenv(config.EnvPassword, "")

	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite3", DSN: dsn}
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, config.Save(path, cfg))
	return path
}
