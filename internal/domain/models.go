package domain

// Candidate is one unit of the selection universe: something the engine can
// allocate engagement budget to. Instances are supplied by the caller and are
// read-only to the engine; expected return and risk are fixed for the duration
// of an optimization run.
type Candidate struct {
	ID       string    `json:"id"`
	Alpha    float64   `json:"alpha"`    // Expected-return estimate (classifier output)
	Risk     float64   `json:"risk"`     // Standard deviation of the outcome
	Features []float64 `json:"features"` // Optional, used for default correlation estimation
}

// ScoreFunc is an injected scoring capability. When provided it overrides the
// Alpha carried on each candidate, keeping the engine independent of the
// classifier's internal representation.
type ScoreFunc func(Candidate) float64

// View is a subjective, confidence-weighted adjustment to the prior return of
// one candidate (or of one candidate relative to another).
type View struct {
	Type       string  `json:"type"`              // "absolute" or "relative"
	Target     string  `json:"target"`            // Candidate ID (absolute views)
	Target1    string  `json:"target1,omitempty"` // Outperformer (relative views)
	Target2    string  `json:"target2,omitempty"` // Underperformer (relative views)
	Return     float64 `json:"return"`            // Return override or outperformance
	Confidence float64 `json:"confidence"`        // In [0, 1]
}

// View types
const (
	ViewAbsolute = "absolute"
	ViewRelative = "relative"
)
