package optimization

import (
	"fmt"
	"math"
	"sort"
)

// FrontierPoint is one non-dominated (return, risk, allocation) triple.
type FrontierPoint struct {
	ExpectedReturn float64    `json:"expected_return"`
	Risk           float64    `json:"risk"`
	Lambda         float64    `json:"lambda"`
	Weights        Allocation `json:"weights"`
}

// Frontier is the efficient frontier: points ordered by increasing risk, none
// dominating another.
type Frontier struct {
	Points   []FrontierPoint `json:"points"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// TraceFrontier sweeps risk aversion from 0 to lambdaMax and retains the
// non-dominated solutions. The sweep is quadratic in λ so low-aversion
// (high-return) points are sampled densely where the frontier curves most.
// Ties between equally-dominant points break toward lower risk.
func (mvo *MVOptimizer) TraceFrontier(
	returns map[string]float64,
	covMatrix [][]float64,
	ids []string,
	numPoints int,
	lambdaMax float64,
) (*Frontier, error) {
	if numPoints < 2 {
		numPoints = 2
	}
	if lambdaMax <= 0 {
		lambdaMax = 50.0
	}

	frontier := &Frontier{}
	warned := make(map[string]bool)
	var solutions []Solution

	for i := 0; i < numPoints; i++ {
		frac := float64(i) / float64(numPoints-1)
		lambda := lambdaMax * frac * frac

		solution, err := mvo.Optimize(returns, covMatrix, ids, lambda)
		if err != nil {
			// Structural failures abort the whole sweep; they will not heal
			// at a different λ.
			return nil, fmt.Errorf("frontier solve at λ=%.4g: %w", lambda, err)
		}
		solutions = append(solutions, *solution)

		for _, w := range solution.Warnings {
			if !warned[w.Code] {
				warned[w.Code] = true
				frontier.Warnings = append(frontier.Warnings, w)
			}
		}
	}

	frontier.Points = dominantPoints(solutions)
	return frontier, nil
}

// dominantPoints filters a λ sweep down to the efficient set: sorted by
// increasing risk, strictly increasing return, no point with both lower
// return and higher risk than another.
func dominantPoints(solutions []Solution) []FrontierPoint {
	sorted := make([]Solution, len(solutions))
	copy(sorted, solutions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Risk != sorted[j].Risk {
			return sorted[i].Risk < sorted[j].Risk
		}
		// Equal risk: higher return first so the later dominance pass keeps
		// it; among equal (return, risk) the lower-λ representative wins.
		return sorted[i].ExpectedReturn > sorted[j].ExpectedReturn
	})

	const tolerance = 1e-9
	var points []FrontierPoint
	bestReturn := math.Inf(-1)
	for _, s := range sorted {
		if s.ExpectedReturn <= bestReturn+tolerance {
			continue // Dominated: no more return for more risk
		}
		bestReturn = s.ExpectedReturn
		points = append(points, FrontierPoint{
			ExpectedReturn: s.ExpectedReturn,
			Risk:           s.Risk,
			Lambda:         s.Lambda,
			Weights:        s.Weights.Clone(),
		})
	}

	return points
}
