package optimization

// Allocation maps candidate ID to portfolio weight. Weights are in [0, 1] and
// sum to at most 1 (no leverage, no shorting). Built fresh per optimization
// call and never mutated afterwards.
type Allocation map[string]float64

// TotalWeight returns the sum of all weights.
func (a Allocation) TotalWeight() float64 {
	var total float64
	for _, w := range a {
		total += w
	}
	return total
}

// Clone returns an independent copy of the allocation.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for id, w := range a {
		out[id] = w
	}
	return out
}

// Solution is the result of a single mean-variance solve at one risk-aversion
// level.
type Solution struct {
	Weights        Allocation `json:"weights"`
	ExpectedReturn float64    `json:"expected_return"`
	Risk           float64    `json:"risk"` // Portfolio standard deviation
	Lambda         float64    `json:"lambda"`
	Warnings       []Warning  `json:"warnings,omitempty"`
}

// RiskModel holds the estimator output consumed by the blender and optimizer.
type RiskModel struct {
	IDs       []string           `json:"ids"`
	Returns   map[string]float64 `json:"returns"`
	CovMatrix [][]float64        `json:"cov_matrix"`
	Warnings  []Warning          `json:"warnings,omitempty"`
}

// BlendResult holds the posterior returns produced by view blending.
type BlendResult struct {
	Posterior map[string]float64 `json:"posterior"`
	Warnings  []Warning          `json:"warnings,omitempty"`
}
