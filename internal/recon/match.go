package recon

// Provenance records which side(s) of the join contributed to a joined row.
type Provenance int

const (
	LeftOnly Provenance = iota
	RightOnly
	Both
)

// String returns the provenance tag name.
func (p Provenance) String() string {
	switch p {
	case LeftOnly:
		return "left_only"
	case RightOnly:
		return "right_only"
	default:
		return "both"
	}
}

// JoinedRow is one row of the full outer join on the anchor key. Left is nil
// only for right_only rows, Right only for left_only rows.
type JoinedRow struct {
	Left       *NormalizedRow
	Right      *NormalizedRow
	Provenance Provenance
}

// Join performs a full outer join of the two normalized row sets on the
// anchor key. Duplicated keys are not deduplicated: every (left, right) pair
// sharing a key yields one joined row, the standard cross product per key
// group. Output order is left-driven, then unmatched right rows in source
// order. Pure function; no row is ever dropped.
func Join(left, right []NormalizedRow) []JoinedRow {
	rightByKey := make(map[string][]int, len(right))
	for i := range right {
		rightByKey[right[i].Key] = append(rightByKey[right[i].Key], i)
	}

	joined := make([]JoinedRow, 0, max(len(left), len(right)))
	matchedRight := make([]bool, len(right))

	for i := range left {
		l := &left[i]
		partners := rightByKey[l.Key]
		if len(partners) == 0 {
			joined = append(joined, JoinedRow{Left: l, Provenance: LeftOnly})
			continue
		}
		for _, j := range partners {
			matchedRight[j] = true
			joined = append(joined, JoinedRow{Left: l, Right: &right[j], Provenance: Both})
		}
	}

	for j := range right {
		if !matchedRight[j] {
			joined = append(joined, JoinedRow{Right: &right[j], Provenance: RightOnly})
		}
	}

	return joined
}
