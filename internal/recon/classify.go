package recon

import (
	"math"
	"strings"
)

// ExistenceStatus classifies whether a joined row's record exists on both
// sides within the run's scope. Exactly one status applies to every row.
type ExistenceStatus int

const (
	// ExistOK means present on both sides in scope; field comparison ran.
	ExistOK ExistenceStatus = iota
	// ExistMissingOur means absent from OUR in every period.
	ExistMissingOur
	// ExistMissingProvider means absent from PROVIDER in every period.
	ExistMissingProvider
	// ExistOurElsewhere means the OUR copy exists but in a different period.
	ExistOurElsewhere
	// ExistProviderElsewhere means the PROVIDER copy exists but in a different period.
	ExistProviderElsewhere
)

// Label returns the status text used in composite status columns. OK rows
// contribute nothing.
func (s ExistenceStatus) Label() string {
	switch s {
	case ExistMissingOur:
		return "Missing in OUR"
	case ExistMissingProvider:
		return "Missing in PROVIDER"
	case ExistOurElsewhere:
		return "OUR in different period"
	case ExistProviderElsewhere:
		return "PROVIDER in different period"
	default:
		return ""
	}
}

// OutOfPeriod reports whether the status is a timing discrepancy rather than
// a true absence.
func (s ExistenceStatus) OutOfPeriod() bool {
	return s == ExistOurElsewhere || s == ExistProviderElsewhere
}

// FieldStatus is the per-field comparison outcome.
type FieldStatus int

const (
	// FieldNotApplicable marks fields on rows not present-in-scope on both sides.
	FieldNotApplicable FieldStatus = iota
	FieldMatch
	FieldMismatch
)

// priceTolerance is the fixed absolute tolerance for currency comparison.
// floatSlack absorbs float64 representation error so that a difference of
// exactly 0.01 still counts as a match.
const (
	priceTolerance = 0.01
	floatSlack     = 1e-9
)

// ClassifiedRow is a joined row plus its derived statuses. Computed once per
// run and never mutated afterward.
type ClassifiedRow struct {
	JoinedRow

	InPeriodLeft  bool
	InPeriodRight bool

	Existence    ExistenceStatus
	PriceStatus  FieldStatus
	PriceDiff    float64 // left minus right, rounded to cents; valid when PriceStatus applies
	FieldAStatus FieldStatus
	FieldBStatus FieldStatus

	// Status is the composite label: the ordered concatenation of every
	// triggered condition, or "OK".
	Status string
	// Investigation is the global-search verdict for non-OK rows.
	Investigation string
	IsError       bool
}

// classify derives the existence status and, for rows present in scope on
// both sides, the per-field statuses. The caller supplies the period
// booleans; in non-temporal mode they are simply "side present".
func classify(row JoinedRow, inLeft, inRight bool, cfg *RunConfig) ClassifiedRow {
	cr := ClassifiedRow{
		JoinedRow:     row,
		InPeriodLeft:  inLeft,
		InPeriodRight: inRight,
	}

	switch {
	case inLeft && inRight:
		cr.Existence = ExistOK
	case inLeft:
		if row.Provenance == Both {
			cr.Existence = ExistProviderElsewhere
		} else {
			cr.Existence = ExistMissingProvider
		}
	default:
		if row.Provenance == Both {
			cr.Existence = ExistOurElsewhere
		} else {
			cr.Existence = ExistMissingOur
		}
	}

	if cr.Existence == ExistOK {
		compareFields(&cr, cfg)
	}

	cr.Status = compositeStatus(&cr, cfg)
	cr.IsError = cr.Existence != ExistOK ||
		cr.PriceStatus == FieldMismatch ||
		cr.FieldAStatus == FieldMismatch ||
		cr.FieldBStatus == FieldMismatch

	return cr
}

func compareFields(cr *ClassifiedRow, cfg *RunConfig) {
	l, r := cr.Left, cr.Right

	if cfg.ComparePrice {
		pl, pr := 0.0, 0.0
		if l.HasPrice {
			pl = l.Price
		}
		if r.HasPrice {
			pr = r.Price
		}
		cr.PriceDiff = roundCents(pl - pr)
		if math.Abs(pl-pr) > priceTolerance+floatSlack {
			cr.PriceStatus = FieldMismatch
		} else {
			cr.PriceStatus = FieldMatch
		}
	}

	if cfg.CompareFieldA {
		if l.FieldA != r.FieldA {
			cr.FieldAStatus = FieldMismatch
		} else {
			cr.FieldAStatus = FieldMatch
		}
	}

	if cfg.CompareFieldB {
		if l.FieldB != r.FieldB {
			cr.FieldBStatus = FieldMismatch
		} else {
			cr.FieldBStatus = FieldMatch
		}
	}
}

func compositeStatus(cr *ClassifiedRow, cfg *RunConfig) string {
	var parts []string
	if lbl := cr.Existence.Label(); lbl != "" {
		parts = append(parts, lbl)
	}
	if cr.PriceStatus == FieldMismatch {
		parts = append(parts, "Price Mismatch")
	}
	if cr.FieldAStatus == FieldMismatch {
		parts = append(parts, cfg.FieldADisplay()+" Mismatch")
	}
	if cr.FieldBStatus == FieldMismatch {
		parts = append(parts, cfg.FieldBDisplay()+" Mismatch")
	}
	if len(parts) == 0 {
		return "OK"
	}
	return strings.Join(parts, ", ")
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
