package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/quantalloc/internal/modules/optimization"
	"github.com/aristath/quantalloc/internal/modules/simulation"
)

// Report is the consolidated output of one engine run: the efficient
// frontier, the chosen allocation, the scenario simulation of that
// allocation, and every warning raised along the way.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`

	Frontier   *optimization.Frontier `json:"frontier,omitempty"`
	Chosen     *optimization.Solution `json:"chosen,omitempty"`
	Simulation *simulation.Result     `json:"simulation,omitempty"`

	Warnings []optimization.Warning `json:"warnings,omitempty"`
}

// Aggregator assembles reports from the engine's stage outputs.
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates a new report aggregator.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "report_aggregator").Logger(),
	}
}

// Compose builds a report from the stage outputs. Warnings from every stage
// are merged and deduplicated by code, preserving first-seen order. Any stage
// may be nil; the report carries whatever completed.
func (a *Aggregator) Compose(
	frontier *optimization.Frontier,
	chosen *optimization.Solution,
	sim *simulation.Result,
	extra []optimization.Warning,
) *Report {
	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Frontier:    frontier,
		Chosen:      chosen,
		Simulation:  sim,
	}

	var all []optimization.Warning
	all = append(all, extra...)
	if frontier != nil {
		all = append(all, frontier.Warnings...)
	}
	if chosen != nil {
		all = append(all, chosen.Warnings...)
	}
	report.Warnings = dedupeWarnings(all)

	a.log.Debug().
		Str("report_id", report.ID).
		Int("num_warnings", len(report.Warnings)).
		Msg("Composed report")

	return report
}

// ToMap renders the report as plain nested maps and slices, decoupled from
// the engine's internal types, so any serializer can consume it.
func (r *Report) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"id":           r.ID,
		"generated_at": r.GeneratedAt.Format(time.RFC3339),
	}

	if r.Frontier != nil {
		points := make([]map[string]interface{}, 0, len(r.Frontier.Points))
		for _, p := range r.Frontier.Points {
			points = append(points, map[string]interface{}{
				"expected_return": p.ExpectedReturn,
				"risk":            p.Risk,
				"lambda":          p.Lambda,
				"weights":         weightsToMap(p.Weights),
			})
		}
		out["frontier"] = points
	}

	if r.Chosen != nil {
		out["chosen"] = map[string]interface{}{
			"expected_return": r.Chosen.ExpectedReturn,
			"risk":            r.Chosen.Risk,
			"lambda":          r.Chosen.Lambda,
			"weights":         weightsToMap(r.Chosen.Weights),
		}
	}

	if r.Simulation != nil {
		sim := map[string]interface{}{
			"mean":             r.Simulation.Mean,
			"std_dev":          r.Simulation.StdDev,
			"percentile_low":   r.Simulation.PercentileLow,
			"percentile_high":  r.Simulation.PercentileHigh,
			"trials_requested": r.Simulation.TrialsRequested,
			"trials_completed": r.Simulation.TrialsCompleted,
			"seed":             r.Simulation.Seed,
		}
		if r.Simulation.SharpeRatio != nil {
			sim["sharpe_ratio"] = *r.Simulation.SharpeRatio
		}
		out["simulation"] = sim
	}

	if len(r.Warnings) > 0 {
		warnings := make([]map[string]interface{}, 0, len(r.Warnings))
		for _, w := range r.Warnings {
			warnings = append(warnings, map[string]interface{}{
				"code":    w.Code,
				"message": w.Message,
			})
		}
		out["warnings"] = warnings
	}

	return out
}

func weightsToMap(weights optimization.Allocation) map[string]interface{} {
	out := make(map[string]interface{}, len(weights))
	for id, w := range weights {
		out[id] = w
	}
	return out
}

// dedupeWarnings keeps the first warning per code.
func dedupeWarnings(warnings []optimization.Warning) []optimization.Warning {
	if len(warnings) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(warnings))
	var out []optimization.Warning
	for _, w := range warnings {
		if seen[w.Code] {
			continue
		}
		seen[w.Code] = true
		out = append(out, w)
	}
	return out
}
