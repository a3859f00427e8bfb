package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpal/internal/tax"
)

// runCLI executes finpalctl with args against a throwaway config file and
// returns what it printed to stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	flagJSON, flagCity, flagState, flagMonth, flagUser, flagYes = false, false, "", "", "", false

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	base := []string{"--config", filepath.Join(dir, "config.toml"), "--db", filepath.Join(dir, "finpal.db")}
	rootCmd.SetArgs(append(base, args...))
	runErr := rootCmd.Execute()

	w.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), runErr
}

func TestTaxJSON(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "tax", "100000", "--state", "new york", "--city", "--json")
	require.NoError(t, err)

	var res tax.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 100000.0, res.GrossIncome)
	assert.Equal(t, tax.NY, res.Jurisdiction)
	assert.True(t, res.CityResident)
	assert.Greater(t, res.CityTax, 0.0)
	assert.InDelta(t, res.GrossIncome-res.TotalTax, res.NetIncome, 0.001)
}

func TestTaxRejectsNegativeIncome(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "tax", "-5")
	assert.Error(t, err)
}

func TestImportAndSummary(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "march.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Date,Description,Amount,Category\n"+
		"2024-03-01,March rent,-1500.00,Rent\n"+
		"2024-04-02,Groceries,-52.50,Groceries\n"), 0o644))

	out, err := runCLI(t, dir, "--user", "alice", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 transactions for alice")

	out, err = runCLI(t, dir, "--user", "alice", "summary", "--month", "2024-03", "--json")
	require.NoError(t, err)

	var sum summaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 2024, sum.Year)
	assert.Equal(t, 3, sum.Month)
	assert.Equal(t, int64(150000), sum.TotalExpensesCents)
}

func TestSummaryRequiresUser(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "summary")
	assert.ErrorContains(t, err, "no user given")
}

func TestResetRequiresConfirmation(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "reset")
	assert.ErrorContains(t, err, "--yes")
}
