package recon

import "time"

// investigate produces the human-readable verdict for a row that is not
// plain-OK. It re-reads the unfiltered join: a globally one-sided row never
// existed on the other side in any period, while a both-provenance row that
// fell out of scope exists in a different reporting period. No additional
// join is required.
func investigate(cr *ClassifiedRow) string {
	switch cr.Existence {
	case ExistMissingOur:
		return "not found anywhere in OUR"
	case ExistMissingProvider:
		return "not found anywhere in PROVIDER"
	case ExistOurElsewhere:
		return foundVerdict(SideOur, cr.Left.Date)
	case ExistProviderElsewhere:
		return foundVerdict(SideProvider, cr.Right.Date)
	default:
		return ""
	}
}

func foundVerdict(side Side, d *time.Time) string {
	if d == nil {
		return "found in " + side.String() + " without a parseable date"
	}
	return "found in " + side.String() + " on " + d.Format("2006-01-02")
}
