package recon

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/reconcile-cli/internal/table"
)

// NormalizedRow is the comparison-ready form of one source row.
type NormalizedRow struct {
	// Key is the join key: trimmed, case-folded, float artifact stripped.
	// Never displayed. Empty string is a valid, matchable key.
	Key string
	// DisplayID is the raw anchor value for human-facing output.
	DisplayID string
	// Date is the parsed period date, nil when no strategy could parse it.
	Date *time.Time

	HasPrice bool
	Price    float64

	FieldA string
	FieldB string
}

var (
	keyFolder       = cases.Fold()
	currencyStripRe = regexp.MustCompile(`[^\d.,-]`)
	trailingFloatRe = regexp.MustCompile(`^-?\d+\.0$`)
)

// NormalizeKey canonicalizes an anchor key: trim, case-fold, and strip the
// trailing ".0" that spreadsheet ingestion leaves on integer IDs loaded as
// floats. The strip only fires on pure integer-as-float values, which keeps
// the function idempotent. Empty input stays empty and still matches.
func NormalizeKey(raw string) string {
	s := keyFolder.String(strings.TrimSpace(raw))
	if trailingFloatRe.MatchString(s) {
		s = strings.TrimSuffix(s, ".0")
	}
	return s
}

// NormalizeCurrency cleans a money string: every character outside digits,
// comma, period, and minus is removed, comma becomes period, the residue is
// parsed as a float. A non-numeric residue is a value error for the caller
// to report; it is never coerced to zero.
func NormalizeCurrency(raw string) (float64, error) {
	cleaned := currencyStripRe.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, eris.Errorf("normalize: no numeric content in %q", raw)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "normalize: parse currency %q", raw)
	}
	return v, nil
}

// NormalizeText canonicalizes a free-text comparison value. Missing input
// becomes the empty string.
func NormalizeText(raw string) string {
	return strings.TrimSpace(raw)
}

// ValueIssue is a contained, per-cell parse failure. It names the exact row,
// column, and side at fault; the run continues without the value.
type ValueIssue struct {
	Side   Side
	Row    int // 1-based data row index
	Column string
	Raw    string
	Reason string
}

// NormalizeSide converts one table into normalized rows according to the
// side's column selection. Currency parse failures are collected as issues
// (the row keeps a zero price); unparseable dates simply leave the row
// without a date. The returned date failure count lets the engine escalate
// a column where every single row fails to parse.
func NormalizeSide(cfg *RunConfig, side Side, t *table.Table) ([]NormalizedRow, []ValueIssue, int, error) {
	sc := cfg.Our
	if side == SideProvider {
		sc = cfg.Provider
	}

	keyCol, ok := t.ColumnIndex(sc.KeyColumn)
	if !ok {
		return nil, nil, 0, eris.Errorf("normalize: column %q not found in %s", sc.KeyColumn, t.Name)
	}

	priceCol, fieldACol, fieldBCol, dateCol := -1, -1, -1, -1
	if cfg.ComparePrice {
		priceCol, _ = t.ColumnIndex(sc.PriceColumn)
	}
	if cfg.CompareFieldA {
		fieldACol, _ = t.ColumnIndex(sc.FieldAColumn)
	}
	if cfg.CompareFieldB {
		fieldBCol, _ = t.ColumnIndex(sc.FieldBColumn)
	}
	if cfg.Temporal {
		dateCol, _ = t.ColumnIndex(sc.DateColumn)
	}

	rows := make([]NormalizedRow, 0, t.Len())
	var issues []ValueIssue
	dateFailures := 0

	for i := 0; i < t.Len(); i++ {
		raw := t.Cell(i, keyCol)
		nr := NormalizedRow{
			Key:       NormalizeKey(raw.String()),
			DisplayID: raw.String(),
		}

		if priceCol >= 0 {
			cell := t.Cell(i, priceCol)
			switch {
			case cell.IsNumber:
				// Native numeric cells pass through untouched.
				nr.Price = cell.Number
				nr.HasPrice = true
			case cell.Empty():
				// Absent value, defaults to zero at comparison time.
			default:
				v, err := NormalizeCurrency(cell.Raw)
				if err != nil {
					issues = append(issues, ValueIssue{
						Side:   side,
						Row:    i + 1,
						Column: sc.PriceColumn,
						Raw:    cell.Raw,
						Reason: "not a numeric amount",
					})
				} else {
					nr.Price = v
					nr.HasPrice = true
				}
			}
		}

		if fieldACol >= 0 {
			nr.FieldA = NormalizeText(t.Cell(i, fieldACol).String())
		}
		if fieldBCol >= 0 {
			nr.FieldB = NormalizeText(t.Cell(i, fieldBCol).String())
		}

		if dateCol >= 0 {
			if d, ok := ParseDate(t.Cell(i, dateCol).String()); ok {
				nr.Date = &d
			} else {
				dateFailures++
			}
		}

		rows = append(rows, nr)
	}

	return rows, issues, dateFailures, nil
}
