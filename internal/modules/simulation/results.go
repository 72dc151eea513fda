package simulation

import (
	"github.com/aristath/quantalloc/pkg/formulas"
)

// Result aggregates the distribution of trial values. SharpeRatio is nil when
// the distribution is degenerate (zero standard deviation).
type Result struct {
	Mean           float64  `json:"mean"`
	StdDev         float64  `json:"std_dev"`
	PercentileLow  float64  `json:"percentile_low"`
	PercentileHigh float64  `json:"percentile_high"`
	SharpeRatio    *float64 `json:"sharpe_ratio,omitempty"`

	TrialsRequested int   `json:"trials_requested"`
	TrialsCompleted int   `json:"trials_completed"`
	Seed            int64 `json:"seed"`
}

// aggregate reduces completed trial values into summary statistics. The
// reduction depends only on the multiset of values, never on completion
// order, so worker scheduling cannot change the result.
func aggregate(values []float64, cfg Config, seed int64) *Result {
	mean := formulas.Mean(values)
	stdDev := formulas.StdDev(values)

	return &Result{
		Mean:            mean,
		StdDev:          stdDev,
		PercentileLow:   formulas.Percentile(values, cfg.PercentileLow),
		PercentileHigh:  formulas.Percentile(values, cfg.PercentileHigh),
		SharpeRatio:     formulas.SharpeRatio(mean, stdDev),
		TrialsRequested: cfg.Trials,
		TrialsCompleted: len(values),
		Seed:            seed,
	}
}
