package recon

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/table"
)

// Run executes one reconciliation: normalize both tables, outer-join on the
// anchor key, scope to the target period, classify every joined row, and
// aggregate the summary. Pure with respect to its inputs: all state lives
// in the returned Result, so overlapping runs never interfere.
func Run(cfg RunConfig, our, provider *table.Table) (*Result, error) {
	log := zap.L().With(zap.String("component", "recon.engine"))

	if err := cfg.Validate(our, provider); err != nil {
		return nil, err
	}

	log.Info("starting reconciliation",
		zap.String("our", our.Name),
		zap.Int("our_rows", our.Len()),
		zap.String("provider", provider.Name),
		zap.Int("provider_rows", provider.Len()),
		zap.Bool("temporal", cfg.Temporal),
	)

	leftRows, leftIssues, leftDateFails, err := NormalizeSide(&cfg, SideOur, our)
	if err != nil {
		return nil, err
	}
	rightRows, rightIssues, rightDateFails, err := NormalizeSide(&cfg, SideProvider, provider)
	if err != nil {
		return nil, err
	}

	// A date column where not a single row parses means the wrong column was
	// chosen. Escalated to a configuration error; scattered failures are not.
	if cfg.Temporal {
		if len(leftRows) > 0 && leftDateFails == len(leftRows) {
			return nil, &ConfigError{Side: SideOur, Column: cfg.Our.DateColumn, Reason: "no value in this column parses as a date"}
		}
		if len(rightRows) > 0 && rightDateFails == len(rightRows) {
			return nil, &ConfigError{Side: SideProvider, Column: cfg.Provider.DateColumn, Reason: "no value in this column parses as a date"}
		}
	}

	issues := append(leftIssues, rightIssues...)
	if len(issues) > 0 {
		log.Warn("value parse issues", zap.Int("count", len(issues)))
	}

	dupOur := duplicateCount(leftRows)
	dupProvider := duplicateCount(rightRows)
	if dupOur > 0 || dupProvider > 0 {
		log.Warn("anchor key contains duplicates; join will cross-multiply per key",
			zap.Int("our", dupOur),
			zap.Int("provider", dupProvider),
		)
	}

	joined := Join(leftRows, rightRows)

	classified := make([]ClassifiedRow, 0, len(joined))
	for _, jr := range joined {
		inL, inR := jr.Left != nil, jr.Right != nil
		if cfg.Temporal {
			inL = inPeriod(dateOf(jr.Left), cfg.TargetMonth, cfg.TargetYear)
			inR = inPeriod(dateOf(jr.Right), cfg.TargetMonth, cfg.TargetYear)
			// Rows with neither side in the target period are out of scope.
			if !inL && !inR {
				continue
			}
		}

		cr := classify(jr, inL, inR, &cfg)

		if !cfg.ReportMissing && (cr.Existence == ExistMissingOur || cr.Existence == ExistMissingProvider) {
			continue
		}

		if cfg.Temporal && cr.Existence != ExistOK {
			cr.Investigation = investigate(&cr)
		}

		classified = append(classified, cr)
	}

	sortRows(classified)

	summary := summarize(classified)
	summary.ValueIssues = len(issues)
	summary.DuplicateKeysOur = dupOur
	summary.DuplicateKeysProvider = dupProvider

	log.Info("reconciliation complete",
		zap.Int("rows", summary.TotalRows),
		zap.Int("missing_our", summary.MissingOur),
		zap.Int("missing_provider", summary.MissingProvider),
		zap.Int("out_of_period", summary.OutOfPeriod),
		zap.Int("price_mismatches", summary.PriceMismatches),
	)

	return &Result{
		Config:  cfg,
		Summary: summary,
		Rows:    classified,
		Issues:  issues,
	}, nil
}

func dateOf(n *NormalizedRow) *time.Time {
	if n == nil {
		return nil
	}
	return n.Date
}

func duplicateCount(rows []NormalizedRow) int {
	seen := make(map[string]bool, len(rows))
	dupes := 0
	for i := range rows {
		if seen[rows[i].Key] {
			dupes++
		}
		seen[rows[i].Key] = true
	}
	return dupes
}
