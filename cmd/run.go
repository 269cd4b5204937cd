package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/reconcile-cli/internal/ingest"
	"github.com/sells-group/reconcile-cli/internal/profile"
	"github.com/sells-group/reconcile-cli/internal/recon"
	"github.com/sells-group/reconcile-cli/internal/table"
)

var (
	runProfile  string
	runOur      string
	runProvider string

	runOurKey       string
	runProviderKey  string
	runOurPrice     string
	runProviderPrice string
	runOurFieldA    string
	runProviderFieldA string
	runOurFieldB    string
	runProviderFieldB string
	runOurDate      string
	runProviderDate string

	runFieldALabel string
	runFieldBLabel string
	runMonth       int
	runYear        int
	runHideMissing bool

	runShowAll    bool
	runOutput     string
	runMaxDisplay int
	runDelimiter  string
	runEncoding   string
	runOurSheet   string
	runProviderSheet string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile two files and report discrepancies",
	Long: `Reconciles an OUR export against a PROVIDER export.

Sources are local paths or http(s)/ftp URLs; .xlsx is read as a spreadsheet,
anything else as delimited text. Column selection comes from flags or from a
YAML profile (--profile replaces all source and column flags).

Examples:
  # Non-temporal price check
  reconcile-cli run --our ours.csv --provider theirs.csv \
    --our-key "Invoice ID" --provider-key id \
    --our-price Amount --provider-price amount --output report.csv

  # Temporal run from a saved profile
  reconcile-cli run --profile july.yaml --show-all`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rc, srcOur, srcProvider, sheets, err := resolveRunInputs()
		if err != nil {
			return err
		}

		our, provider, err := loadPair(ctx, srcOur, srcProvider, sheets)
		if err != nil {
			return err
		}

		// Pre-flight: warn on duplicated anchors before the join multiplies them.
		warnDuplicates(our, rc.Our.KeyColumn, provider, rc.Provider.KeyColumn)

		result, err := recon.Run(rc, our, provider)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		printSummary(cmd, result)
		printIssues(cmd, result)

		view := result.View(!runShowAll)
		printPreview(cmd, view, maxDisplayRows())

		if runOutput != "" {
			if err := writeReport(view, runOutput); err != nil {
				return err
			}
			cmd.Printf("report written to %s (%d rows)\n", runOutput, len(view.Rows))
		}

		return nil
	},
}

// resolveRunInputs builds the engine config plus source references from the
// profile or from flags.
func resolveRunInputs() (recon.RunConfig, string, string, [2]string, error) {
	if runProfile != "" {
		p, err := profile.Load(runProfile)
		if err != nil {
			return recon.RunConfig{}, "", "", [2]string{}, err
		}
		return p.RunConfig(), p.Our.Source, p.Provider.Source, [2]string{p.Our.Sheet, p.Provider.Sheet}, nil
	}

	if runOur == "" || runProvider == "" {
		return recon.RunConfig{}, "", "", [2]string{}, eris.New("run: --our and --provider are required (or use --profile)")
	}

	rc := recon.RunConfig{
		Our: recon.SideConfig{
			KeyColumn:    runOurKey,
			PriceColumn:  runOurPrice,
			FieldAColumn: runOurFieldA,
			FieldBColumn: runOurFieldB,
			DateColumn:   runOurDate,
		},
		Provider: recon.SideConfig{
			KeyColumn:    runProviderKey,
			PriceColumn:  runProviderPrice,
			FieldAColumn: runProviderFieldA,
			FieldBColumn: runProviderFieldB,
			DateColumn:   runProviderDate,
		},
		FieldALabel:   runFieldALabel,
		FieldBLabel:   runFieldBLabel,
		TargetMonth:   runMonth,
		TargetYear:    runYear,
		ReportMissing: !runHideMissing,
	}
	rc.ComparePrice = runOurPrice != "" && runProviderPrice != ""
	rc.CompareFieldA = runOurFieldA != "" && runProviderFieldA != ""
	rc.CompareFieldB = runOurFieldB != "" && runProviderFieldB != ""
	rc.Temporal = runMonth != 0 && runYear != 0 && runOurDate != "" && runProviderDate != ""

	return rc, runOur, runProvider, [2]string{runOurSheet, runProviderSheet}, nil
}

// loadPair loads both sources concurrently.
func loadPair(ctx context.Context, srcOur, srcProvider string, sheets [2]string) (*table.Table, *table.Table, error) {
	httpOpts := ingestHTTPOptions()
	csvOpts := ingest.CSVOptions{
		Delimiter: delimiterRune(),
		Encoding:  resolveEncoding(runEncoding),
		TrimSpace: true,
	}

	var our, provider *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l := ingest.NewLoader(httpOpts, csvOpts, ingest.XLSXOptions{SheetName: sheets[0]})
		t, err := l.Load(gctx, srcOur)
		if err != nil {
			return eris.Wrap(err, "load OUR source")
		}
		our = t
		return nil
	})
	g.Go(func() error {
		l := ingest.NewLoader(httpOpts, csvOpts, ingest.XLSXOptions{SheetName: sheets[1]})
		t, err := l.Load(gctx, srcProvider)
		if err != nil {
			return eris.Wrap(err, "load PROVIDER source")
		}
		provider = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return our, provider, nil
}

func delimiterRune() rune {
	d := runDelimiter
	if d == "" && cfg != nil {
		d = cfg.Ingest.Delimiter
	}
	if d == "" {
		return ','
	}
	if d == `\t` {
		return '\t'
	}
	return []rune(d)[0]
}

// resolveEncoding picks the charset the same way delimiterRune picks the
// delimiter: command flag first, then the ingest config.
func resolveEncoding(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil {
		return cfg.Ingest.Encoding
	}
	return ""
}

// ingestHTTPOptions maps the ingest config onto the HTTP fetcher.
func ingestHTTPOptions() ingest.HTTPOptions {
	if cfg == nil {
		return ingest.HTTPOptions{}
	}
	return ingest.HTTPOptions{
		Timeout:    time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Ingest.MaxRetries,
		RatePerSec: cfg.Ingest.RatePerSec,
	}
}

func maxDisplayRows() int {
	if runMaxDisplay > 0 {
		return runMaxDisplay
	}
	if cfg != nil && cfg.Display.MaxRows > 0 {
		return cfg.Display.MaxRows
	}
	return 100000
}

func warnDuplicates(our *table.Table, ourKey string, provider *table.Table, providerKey string) {
	dupOur, err1 := recon.DuplicateKeys(our, ourKey)
	dupProvider, err2 := recon.DuplicateKeys(provider, providerKey)
	if err1 != nil || err2 != nil {
		// Validation rejects missing columns with a proper message shortly.
		return
	}
	if dupOur > 0 || dupProvider > 0 {
		fmt.Fprintf(os.Stderr,
			"warning: anchor column contains duplicates (OUR: %d, PROVIDER: %d); the join produces every pairing per key\n",
			dupOur, dupProvider)
	}
}

func printSummary(cmd *cobra.Command, result *recon.Result) {
	s := result.Summary
	cmd.Printf("Rows in scope:        %d\n", s.TotalRows)
	cmd.Printf("Missing in OUR:       %d\n", s.MissingOur)
	cmd.Printf("Missing in PROVIDER:  %d\n", s.MissingProvider)
	if result.Config.Temporal {
		cmd.Printf("Different period:     %d\n", s.OutOfPeriod)
	}
	if result.Config.ComparePrice {
		cmd.Printf("Price mismatches:     %d (signed sum %.2f)\n", s.PriceMismatches, s.PriceDiffSum)
	}
	if result.Config.CompareFieldA {
		cmd.Printf("%s mismatches: %d\n", result.Config.FieldADisplay(), s.FieldAMismatches)
	}
	if result.Config.CompareFieldB {
		cmd.Printf("%s mismatches: %d\n", result.Config.FieldBDisplay(), s.FieldBMismatches)
	}
}

func printIssues(cmd *cobra.Command, result *recon.Result) {
	if len(result.Issues) == 0 {
		return
	}
	cmd.Printf("Value issues:         %d\n", len(result.Issues))
	for _, iss := range result.Issues {
		cmd.Printf("  row %d, column %q (%s): %s: %q\n", iss.Row, iss.Column, iss.Side, iss.Reason, iss.Raw)
	}
}

// printPreview renders the view as an aligned text table, capped so a huge
// cross product cannot flood the terminal. The CSV export is never capped.
func printPreview(cmd *cobra.Command, view *recon.View, maxRows int) {
	if len(view.Rows) == 0 {
		cmd.Println("no discrepancies found")
		return
	}

	capped := false
	rows := view.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
		capped = true
	}

	cmd.Println()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(view.Columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()

	if capped {
		cmd.Printf("(preview capped at %d of %d rows; use --output for the full report)\n", maxRows, len(view.Rows))
	}
}

func writeReport(view *recon.View, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "run: create %s", path)
	}
	defer f.Close()
	return view.WriteCSV(f)
}

func init() {
	runCmd.Flags().StringVar(&runProfile, "profile", "", "YAML mapping profile (replaces source/column flags)")
	runCmd.Flags().StringVar(&runOur, "our", "", "OUR source (path or URL)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "PROVIDER source (path or URL)")
	runCmd.Flags().StringVar(&runOurKey, "our-key", "", "anchor key column in OUR")
	runCmd.Flags().StringVar(&runProviderKey, "provider-key", "", "anchor key column in PROVIDER")
	runCmd.Flags().StringVar(&runOurPrice, "our-price", "", "price column in OUR")
	runCmd.Flags().StringVar(&runProviderPrice, "provider-price", "", "price column in PROVIDER")
	runCmd.Flags().StringVar(&runOurFieldA, "our-field-a", "", "first text comparison column in OUR")
	runCmd.Flags().StringVar(&runProviderFieldA, "provider-field-a", "", "first text comparison column in PROVIDER")
	runCmd.Flags().StringVar(&runOurFieldB, "our-field-b", "", "second text comparison column in OUR")
	runCmd.Flags().StringVar(&runProviderFieldB, "provider-field-b", "", "second text comparison column in PROVIDER")
	runCmd.Flags().StringVar(&runOurDate, "our-date", "", "date column in OUR (temporal mode)")
	runCmd.Flags().StringVar(&runProviderDate, "provider-date", "", "date column in PROVIDER (temporal mode)")
	runCmd.Flags().StringVar(&runFieldALabel, "field-a-label", "", "display label for text field A")
	runCmd.Flags().StringVar(&runFieldBLabel, "field-b-label", "", "display label for text field B")
	runCmd.Flags().IntVar(&runMonth, "month", 0, "target month 1-12 (temporal mode)")
	runCmd.Flags().IntVar(&runYear, "year", 0, "target year (temporal mode)")
	runCmd.Flags().BoolVar(&runHideMissing, "hide-missing", false, "drop one-sided rows from the report")
	runCmd.Flags().BoolVar(&runShowAll, "show-all", false, "include matched rows, not only discrepancies")
	runCmd.Flags().StringVar(&runOutput, "output", "", "write the full CSV report to this path")
	runCmd.Flags().IntVar(&runMaxDisplay, "max-display", 0, "cap preview rows (0 = config default)")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", `CSV delimiter (default ",", use \t for tab)`)
	runCmd.Flags().StringVar(&runEncoding, "encoding", "", "CSV charset (IANA name, e.g. windows-1252)")
	runCmd.Flags().StringVar(&runOurSheet, "our-sheet", "", "sheet name for OUR xlsx")
	runCmd.Flags().StringVar(&runProviderSheet, "provider-sheet", "", "sheet name for PROVIDER xlsx")

	rootCmd.AddCommand(runCmd)
}
