// Package recon implements the reconciliation engine: key normalization,
// full outer join matching, per-field discrepancy classification, period
// scoping, and the global fallback search that separates timing differences
// from truly missing records.
package recon

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/reconcile-cli/internal/table"
)

// Side identifies which dataset a value came from.
type Side int

const (
	SideOur Side = iota
	SideProvider
)

// String returns the operator-facing side label.
func (s Side) String() string {
	if s == SideOur {
		return "OUR"
	}
	return "PROVIDER"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideOur {
		return SideProvider
	}
	return SideOur
}

// SideConfig names the columns to read from one side's table.
// KeyColumn is required; the rest are enabled per run.
type SideConfig struct {
	KeyColumn    string
	PriceColumn  string
	FieldAColumn string
	FieldBColumn string
	DateColumn   string
}

// RunConfig is the full configuration for one reconciliation run. The engine
// consumes it once; the enabled comparison set and display labels are fixed
// for the lifetime of the run's result.
type RunConfig struct {
	Our      SideConfig
	Provider SideConfig

	ComparePrice  bool
	CompareFieldA bool
	CompareFieldB bool

	// Display labels for the text comparison columns. Default to the OUR
	// column names when left empty.
	FieldALabel string
	FieldBLabel string

	// Temporal mode: rows are scoped to TargetMonth/TargetYear and
	// cross-period matches land in the timing bucket.
	Temporal    bool
	TargetMonth int
	TargetYear  int

	// ReportMissing controls whether one-sided rows appear in the report at
	// all. When false they are dropped, and only field mismatches remain.
	ReportMissing bool
}

// ConfigError is a rejected configuration. It always names the offending
// column and side so the operator can fix the selection.
type ConfigError struct {
	Side   Side
	Column string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: column " + e.Column + " (" + e.Side.String() + "): " + e.Reason
}

// Validate checks the configuration against the two loaded tables before any
// computation runs. Violations halt the run.
func (c *RunConfig) Validate(our, provider *table.Table) error {
	for _, side := range []struct {
		side Side
		cfg  SideConfig
		tab  *table.Table
	}{
		{SideOur, c.Our, our},
		{SideProvider, c.Provider, provider},
	} {
		if side.cfg.KeyColumn == "" {
			return &ConfigError{Side: side.side, Column: "(anchor)", Reason: "anchor key column not set"}
		}
		if err := requireColumn(side.side, side.tab, side.cfg.KeyColumn); err != nil {
			return err
		}
		if c.ComparePrice {
			if err := requireColumn(side.side, side.tab, side.cfg.PriceColumn); err != nil {
				return err
			}
		}
		if c.CompareFieldA {
			if err := requireCompareColumn(side.side, side.tab, side.cfg.FieldAColumn, side.cfg.KeyColumn); err != nil {
				return err
			}
		}
		if c.CompareFieldB {
			if err := requireCompareColumn(side.side, side.tab, side.cfg.FieldBColumn, side.cfg.KeyColumn); err != nil {
				return err
			}
		}
		if c.Temporal {
			if err := requireColumn(side.side, side.tab, side.cfg.DateColumn); err != nil {
				return err
			}
		}
	}

	if c.Temporal {
		if c.TargetMonth < 1 || c.TargetMonth > 12 {
			return eris.Errorf("config: target month %d out of range 1..12", c.TargetMonth)
		}
		if c.TargetYear <= 0 {
			return eris.Errorf("config: target year %d invalid", c.TargetYear)
		}
	}

	return nil
}

// FieldADisplay returns the display label for text field A: the override
// when set, otherwise the OUR column name.
func (c *RunConfig) FieldADisplay() string {
	if c.FieldALabel != "" {
		return c.FieldALabel
	}
	if c.Our.FieldAColumn != "" {
		return c.Our.FieldAColumn
	}
	return "Field A"
}

// FieldBDisplay returns the display label for text field B.
func (c *RunConfig) FieldBDisplay() string {
	if c.FieldBLabel != "" {
		return c.FieldBLabel
	}
	if c.Our.FieldBColumn != "" {
		return c.Our.FieldBColumn
	}
	return "Field B"
}

func requireColumn(side Side, t *table.Table, name string) error {
	if name == "" {
		return &ConfigError{Side: side, Column: "(unset)", Reason: "column not set"}
	}
	if _, ok := t.ColumnIndex(name); !ok {
		return &ConfigError{Side: side, Column: name, Reason: "column not found in " + t.Name}
	}
	return nil
}

// requireCompareColumn additionally rejects comparing a column against the
// anchor key itself: such a comparison always matches and carries no signal.
func requireCompareColumn(side Side, t *table.Table, name, keyColumn string) error {
	if err := requireColumn(side, t, name); err != nil {
		return err
	}
	if name == keyColumn {
		return &ConfigError{Side: side, Column: name, Reason: "comparison column equals the anchor key column"}
	}
	return nil
}

// DuplicateKeys counts rows whose normalized anchor key repeats an earlier
// row's key. Surfaced to the operator as a pre-run warning: duplicated
// anchors multiply the outer join into a cross product per key group.
func DuplicateKeys(t *table.Table, keyColumn string) (int, error) {
	col, ok := t.ColumnIndex(keyColumn)
	if !ok {
		return 0, eris.Errorf("recon: column %q not found in %s", keyColumn, t.Name)
	}
	seen := make(map[string]bool, t.Len())
	dupes := 0
	for i := range t.Rows {
		k := NormalizeKey(t.Cell(i, col).String())
		if seen[k] {
			dupes++
		}
		seen[k] = true
	}
	return dupes, nil
}
