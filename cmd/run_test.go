package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reconcile-cli/internal/config"
	"github.com/sells-group/reconcile-cli/internal/ingest"
	"github.com/sells-group/reconcile-cli/internal/recon"
	"github.com/sells-group/reconcile-cli/internal/table"
)

func resetRunFlags(t *testing.T) {
	t.Helper()
	origCfg := cfg
	t.Cleanup(func() {
		runProfile, runOur, runProvider = "", "", ""
		runOurKey, runProviderKey = "", ""
		runOurPrice, runProviderPrice = "", ""
		runOurFieldA, runProviderFieldA = "", ""
		runOurFieldB, runProviderFieldB = "", ""
		runOurDate, runProviderDate = "", ""
		runMonth, runYear = 0, 0
		runHideMissing = false
		runDelimiter, runEncoding = "", ""
		runMaxDisplay = 0
		cfg = origCfg
	})
}

func TestResolveRunInputs_FromFlags(t *testing.T) {
	resetRunFlags(t)

	runOur, runProvider = "ours.csv", "theirs.csv"
	runOurKey, runProviderKey = "Invoice ID", "id"
	runOurPrice, runProviderPrice = "Amount", "amount"
	runOurDate, runProviderDate = "Date", "posted_at"
	runMonth, runYear = 7, 2026
	runHideMissing = true

	rc, srcOur, srcProvider, _, err := resolveRunInputs()
	require.NoError(t, err)

	assert.Equal(t, "ours.csv", srcOur)
	assert.Equal(t, "theirs.csv", srcProvider)
	assert.Equal(t, "Invoice ID", rc.Our.KeyColumn)
	assert.True(t, rc.ComparePrice)
	assert.False(t, rc.CompareFieldA)
	assert.True(t, rc.Temporal)
	assert.False(t, rc.ReportMissing)
}

func TestResolveRunInputs_TemporalNeedsBothDates(t *testing.T) {
	resetRunFlags(t)

	runOur, runProvider = "a.csv", "b.csv"
	runOurKey, runProviderKey = "id", "id"
	runMonth, runYear = 7, 2026
	runOurDate = "Date" // provider date column missing

	rc, _, _, _, err := resolveRunInputs()
	require.NoError(t, err)
	assert.False(t, rc.Temporal)
}

func TestResolveRunInputs_ProfileWins(t *testing.T) {
	resetRunFlags(t)

	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
our:
  source: from-profile.csv
  key: id
provider:
  source: other.csv
  key: id
`), 0o644))

	runProfile = path
	runOur = "ignored.csv"

	rc, srcOur, _, _, err := resolveRunInputs()
	require.NoError(t, err)
	assert.Equal(t, "from-profile.csv", srcOur)
	assert.Equal(t, "id", rc.Our.KeyColumn)
}

func TestResolveRunInputs_SourcesRequired(t *testing.T) {
	resetRunFlags(t)

	runOur = "only-one.csv"
	_, _, _, _, err := resolveRunInputs()
	assert.Error(t, err)
}

func TestDelimiterRune(t *testing.T) {
	resetRunFlags(t)

	cfg = &config.Config{}
	assert.Equal(t, ',', delimiterRune())

	runDelimiter = ";"
	assert.Equal(t, ';', delimiterRune())

	runDelimiter = `\t`
	assert.Equal(t, '\t', delimiterRune())

	runDelimiter = ""
	cfg.Ingest.Delimiter = "|"
	assert.Equal(t, '|', delimiterRune())
}

func TestResolveEncoding(t *testing.T) {
	resetRunFlags(t)

	cfg = &config.Config{}
	assert.Equal(t, "", resolveEncoding(""))

	cfg.Ingest.Encoding = "windows-1252"
	assert.Equal(t, "windows-1252", resolveEncoding(""))

	// A flag always beats the config.
	assert.Equal(t, "iso-8859-1", resolveEncoding("iso-8859-1"))
}

func TestIngestHTTPOptions_FromConfig(t *testing.T) {
	resetRunFlags(t)

	cfg = &config.Config{}
	cfg.Ingest.TimeoutSecs = 5
	cfg.Ingest.MaxRetries = 7
	cfg.Ingest.RatePerSec = 2.5

	opts := ingestHTTPOptions()
	assert.Equal(t, ingest.HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 7,
		RatePerSec: 2.5,
	}, opts)

	cfg = nil
	assert.Equal(t, ingest.HTTPOptions{}, ingestHTTPOptions())
}

func TestPrintSummary_UsesFieldLabels(t *testing.T) {
	resetRunFlags(t)

	our := table.New("ours.csv", []string{"id", "owner"})
	our.AppendRow([]table.Cell{table.StringCell("A1"), table.StringCell("Alice")})
	provider := table.New("theirs.csv", []string{"id", "owner_name"})
	provider.AppendRow([]table.Cell{table.StringCell("A1"), table.StringCell("Bob")})

	result, err := recon.Run(recon.RunConfig{
		Our:           recon.SideConfig{KeyColumn: "id", FieldAColumn: "owner"},
		Provider:      recon.SideConfig{KeyColumn: "id", FieldAColumn: "owner_name"},
		CompareFieldA: true,
		FieldALabel:   "Manager",
		ReportMissing: true,
	}, our, provider)
	require.NoError(t, err)

	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	printSummary(c, result)

	assert.Contains(t, buf.String(), "Manager mismatches: 1")
	assert.NotContains(t, buf.String(), "owner mismatches")
}

func TestMaxDisplayRows(t *testing.T) {
	resetRunFlags(t)

	cfg = &config.Config{}
	assert.Equal(t, 100000, maxDisplayRows())

	cfg.Display.MaxRows = 250
	assert.Equal(t, 250, maxDisplayRows())

	runMaxDisplay = 10
	assert.Equal(t, 10, maxDisplayRows())
}
