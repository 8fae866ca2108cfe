package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankreviews-dev/bankreviews/internal/model"
	"github.com/bankreviews-dev/bankreviews/internal/testutil"
)

func TestBanks_Table(t *testing.T) {
	db, dsn := testutil.OpenSQLite(t)
	testutil.SeedBanks(t, db,
		model.BankRecord{ID: 2, Name: "Dashen Bank"},
		model.BankRecord{ID: 1, Name: "Bank of Abyssinia"},
	)
	cfgPath := writeConfig(t, dsn, nil)

	out, err := runBankreviews(t, "banks", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Bank of Abyssinia")
	assert.Contains(t, out, "Dashen Bank")
	assert.Contains(t, out, "2 banks")
}

func TestBanks_CSV(t *testing.T) {
	db, dsn := testutil.OpenSQLite(t)
	testutil.SeedBanks(t, db, model.BankRecord{ID: 7, Name: "Commercial Bank of Ethiopia"})
	cfgPath := writeConfig(t, dsn, nil)

	out, err := runBankreviews(t, "banks", "--config", cfgPath, "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n7,Commercial Bank of Ethiopia\n", out)
}

func TestBanks_UnknownFormat(t *testing.T) {
	_, err := runBankreviews(t, "banks", "--format", "json")
	require.Error(t, err)
}
