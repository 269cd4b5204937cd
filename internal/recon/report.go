package recon

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// missingPlaceholder renders absent values in row views and exports.
const missingPlaceholder = "None"

// Summary aggregates one run's counts. Field mismatch counters are zero for
// disabled comparison modules.
type Summary struct {
	TotalRows             int
	MissingOur            int
	MissingProvider       int
	OutOfPeriod           int
	PriceMismatches       int
	PriceDiffSum          float64 // signed sum over mismatched rows, OUR minus PROVIDER
	FieldAMismatches      int
	FieldBMismatches      int
	ValueIssues           int
	DuplicateKeysOur      int
	DuplicateKeysProvider int
}

// Result is the complete outcome of one reconciliation run: a pure value,
// owned by whoever started the run. Holding it is the only persistence the
// engine offers.
type Result struct {
	Config  RunConfig
	Summary Summary
	// Rows holds every in-scope classified row, discrepancies first.
	Rows   []ClassifiedRow
	Issues []ValueIssue
}

// Discrepancies returns the rows flagged as errors.
func (r *Result) Discrepancies() []ClassifiedRow {
	var out []ClassifiedRow
	for _, row := range r.Rows {
		if row.IsError {
			out = append(out, row)
		}
	}
	return out
}

// View is a flat, display-ready rendering of a row collection: one column
// per exposed field plus the status column(s), every value already a string.
type View struct {
	Columns []string
	Rows    [][]string
}

// View renders either row collection. Column names echo the operator's
// source column choices, suffixed with the owning side.
func (r *Result) View(discrepanciesOnly bool) *View {
	rows := r.Rows
	if discrepanciesOnly {
		rows = r.Discrepancies()
	}

	cfg := &r.Config
	v := &View{}

	v.Columns = append(v.Columns,
		cfg.Our.KeyColumn+" (OUR)",
		cfg.Provider.KeyColumn+" (PROVIDER)",
	)
	if cfg.Temporal {
		v.Columns = append(v.Columns,
			cfg.Our.DateColumn+" (OUR)",
			cfg.Provider.DateColumn+" (PROVIDER)",
		)
	}
	if cfg.ComparePrice {
		v.Columns = append(v.Columns,
			cfg.Our.PriceColumn+" (OUR)",
			cfg.Provider.PriceColumn+" (PROVIDER)",
			"Diff",
		)
	}
	if cfg.CompareFieldA {
		v.Columns = append(v.Columns,
			cfg.Our.FieldAColumn+" (OUR)",
			cfg.Provider.FieldAColumn+" (PROVIDER)",
		)
	}
	if cfg.CompareFieldB {
		v.Columns = append(v.Columns,
			cfg.Our.FieldBColumn+" (OUR)",
			cfg.Provider.FieldBColumn+" (PROVIDER)",
		)
	}
	v.Columns = append(v.Columns, "Status")
	if cfg.Temporal {
		v.Columns = append(v.Columns, "Investigation")
	}

	for i := range rows {
		v.Rows = append(v.Rows, renderRow(&rows[i], cfg))
	}
	return v
}

func renderRow(cr *ClassifiedRow, cfg *RunConfig) []string {
	out := []string{
		sideString(cr.Left, func(n *NormalizedRow) string { return n.DisplayID }),
		sideString(cr.Right, func(n *NormalizedRow) string { return n.DisplayID }),
	}

	if cfg.Temporal {
		out = append(out,
			sideString(cr.Left, formatRowDate),
			sideString(cr.Right, formatRowDate),
		)
	}

	if cfg.ComparePrice {
		out = append(out,
			sideString(cr.Left, formatRowPrice),
			sideString(cr.Right, formatRowPrice),
			formatDiff(cr),
		)
	}
	if cfg.CompareFieldA {
		out = append(out,
			sideString(cr.Left, func(n *NormalizedRow) string { return n.FieldA }),
			sideString(cr.Right, func(n *NormalizedRow) string { return n.FieldA }),
		)
	}
	if cfg.CompareFieldB {
		out = append(out,
			sideString(cr.Left, func(n *NormalizedRow) string { return n.FieldB }),
			sideString(cr.Right, func(n *NormalizedRow) string { return n.FieldB }),
		)
	}

	out = append(out, cr.Status)
	if cfg.Temporal {
		inv := cr.Investigation
		if inv == "" {
			inv = missingPlaceholder
		}
		out = append(out, inv)
	}
	return out
}

func sideString(n *NormalizedRow, f func(*NormalizedRow) string) string {
	if n == nil {
		return missingPlaceholder
	}
	return f(n)
}

func formatRowDate(n *NormalizedRow) string {
	if n.Date == nil {
		return missingPlaceholder
	}
	return n.Date.Format("2006-01-02")
}

func formatRowPrice(n *NormalizedRow) string {
	if !n.HasPrice {
		return missingPlaceholder
	}
	return strconv.FormatFloat(n.Price, 'f', 2, 64)
}

func formatDiff(cr *ClassifiedRow) string {
	if cr.PriceStatus == FieldNotApplicable {
		return missingPlaceholder
	}
	return strconv.FormatFloat(cr.PriceDiff, 'f', 2, 64)
}

// WriteCSV serializes the view as a flat delimited table: one header row,
// one data row per classified row.
func (v *View) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Columns); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, row := range v.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// summarize builds the aggregate metrics over the classified set.
func summarize(rows []ClassifiedRow) Summary {
	var s Summary
	s.TotalRows = len(rows)
	for i := range rows {
		cr := &rows[i]
		switch cr.Existence {
		case ExistMissingOur:
			s.MissingOur++
		case ExistMissingProvider:
			s.MissingProvider++
		case ExistOurElsewhere, ExistProviderElsewhere:
			s.OutOfPeriod++
		}
		if cr.PriceStatus == FieldMismatch {
			s.PriceMismatches++
			s.PriceDiffSum += cr.PriceDiff
		}
		if cr.FieldAStatus == FieldMismatch {
			s.FieldAMismatches++
		}
		if cr.FieldBStatus == FieldMismatch {
			s.FieldBMismatches++
		}
	}
	s.PriceDiffSum = roundCents(s.PriceDiffSum)
	return s
}

// sortRows orders discrepancies before clean rows, then by status label for
// deterministic output. Stable, so join order breaks ties.
func sortRows(rows []ClassifiedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].IsError != rows[j].IsError {
			return rows[i].IsError
		}
		return rows[i].Status < rows[j].Status
	})
}
