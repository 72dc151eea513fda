package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/rs/zerolog"

	"github.com/aristath/quantalloc/pkg/formulas"
)

// Constants for the mean-variance solver
const (
	DefaultConditionThreshold = 1e8
	PenaltyWeight             = 1000.0
	WeightCutoff              = 1e-6 // Weights below this are snapped to zero
)

// MVOptimizer solves the constrained mean-variance program
//
//	maximize   μᵀw − λ·wᵀΣw
//	subject to Σw = 1, w ≥ 0
//
// for a risk-aversion level λ ≥ 0. λ=0 degenerates to pure return
// maximization; λ→∞ approaches the minimum-variance portfolio.
type MVOptimizer struct {
	conditionThreshold float64
	log                zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer. conditionThreshold
// bounds the covariance condition number before diagonal shrinkage is applied
// (<= 0 selects the default).
func NewMVOptimizer(conditionThreshold float64, log zerolog.Logger) *MVOptimizer {
	if conditionThreshold <= 0 {
		conditionThreshold = DefaultConditionThreshold
	}
	return &MVOptimizer{
		conditionThreshold: conditionThreshold,
		log:                log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// Optimize solves for allocation weights at one risk-aversion level.
//
// An ill-conditioned covariance matrix is shrunk toward its diagonal before
// solving and reported as a regularized_covariance warning. ErrInfeasible is
// returned only for contradictory inputs (empty universe, negative λ,
// mismatched dimensions). Reported return and risk are computed against the
// caller's original covariance matrix, not the regularized copy.
func (mvo *MVOptimizer) Optimize(
	returns map[string]float64,
	covMatrix [][]float64,
	ids []string,
	lambda float64,
) (*Solution, error) {
	n := len(ids)
	if n == 0 {
		return nil, fmt.Errorf("no candidates to allocate: %w", ErrInfeasible)
	}
	if lambda < 0 {
		return nil, fmt.Errorf("negative risk aversion %g: %w", lambda, ErrInfeasible)
	}
	if len(covMatrix) != n {
		return nil, fmt.Errorf("covariance matrix size %d does not match %d candidates: %w", len(covMatrix), n, ErrInfeasible)
	}
	for i := range covMatrix {
		if len(covMatrix[i]) != n {
			return nil, fmt.Errorf("covariance matrix row %d has size %d, expected %d: %w", i, len(covMatrix[i]), n, ErrInfeasible)
		}
	}

	mu := make([]float64, n)
	for i, id := range ids {
		ret, ok := returns[id]
		if !ok {
			return nil, fmt.Errorf("missing expected return for candidate %s: %w", id, ErrInfeasible)
		}
		mu[i] = ret
	}

	sigma, warnings := mvo.conditionCovariance(covMatrix)

	var weights []float64
	if lambda == 0 {
		// The objective is linear, so the maximizer sits on a vertex of the
		// simplex: full weight on the best-returning candidate. Ties break
		// toward lower variance.
		weights = bestReturnVertex(mu, sigma)
	} else {
		solved, err := mvo.solvePenalty(mu, sigma, lambda)
		if err != nil {
			return nil, err
		}
		weights = solved
	}

	allocation := make(Allocation, n)
	for i, id := range ids {
		w := weights[i]
		if w < WeightCutoff {
			w = 0
		}
		allocation[id] = w
	}
	normalizeWeights(allocation)

	var portfolioReturn float64
	for i, id := range ids {
		portfolioReturn += mu[i] * allocation[id]
	}
	risk := math.Sqrt(math.Max(0, formulas.PortfolioVariance(allocation, covMatrix, ids)))

	mvo.log.Debug().
		Float64("lambda", lambda).
		Float64("expected_return", portfolioReturn).
		Float64("risk", risk).
		Msg("Solved mean-variance allocation")

	return &Solution{
		Weights:        allocation,
		ExpectedReturn: portfolioReturn,
		Risk:           risk,
		Lambda:         lambda,
		Warnings:       warnings,
	}, nil
}

// conditionCovariance checks the covariance condition number and applies
// diagonal shrinkage Σ' = (1−δ)Σ + δ·diag(Σ) when it exceeds the threshold.
func (mvo *MVOptimizer) conditionCovariance(covMatrix [][]float64) (*mat.Dense, []Warning) {
	n := len(covMatrix)
	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, covMatrix[i][j])
		}
	}

	cond := condNumber(sigma)
	if cond <= mvo.conditionThreshold {
		return sigma, nil
	}

	shrunk := mat.NewDense(n, n, nil)
	for _, delta := range []float64{0.1, 0.2, 0.4, 0.8, 1.0} {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := (1 - delta) * covMatrix[i][j]
				if i == j {
					v += delta * covMatrix[i][i]
				}
				shrunk.Set(i, j, v)
			}
		}
		if condNumber(shrunk) <= mvo.conditionThreshold {
			break
		}
	}
	// A fully diagonal matrix can still be singular (zero variance); a tiny
	// ridge keeps the solver away from it.
	if condNumber(shrunk) > mvo.conditionThreshold {
		for i := 0; i < n; i++ {
			shrunk.Set(i, i, shrunk.At(i, i)+TikhonovEpsilon)
		}
	}

	mvo.log.Warn().
		Float64("condition_number", cond).
		Float64("threshold", mvo.conditionThreshold).
		Msg("Covariance ill-conditioned, applied diagonal shrinkage")

	return shrunk, []Warning{{
		Code:    WarnRegularizedCovariance,
		Message: fmt.Sprintf("covariance condition number %.3g exceeds threshold, applied diagonal shrinkage", cond),
	}}
}

// solvePenalty minimizes −(μᵀw − λ·wᵀΣw) + penalty·(Σw−1)² over w projected
// into [0,1]ⁿ, with BFGS and a NelderMead fallback.
func (mvo *MVOptimizer) solvePenalty(mu []float64, sigma *mat.Dense, lambda float64) ([]float64, error) {
	n := len(mu)
	// The penalty must dominate the λ-scaled variance term.
	penaltyWeight := PenaltyWeight * math.Max(1, lambda)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToUnitBox(x)

			var portfolioReturn, portfolioVar float64
			for i := 0; i < n; i++ {
				portfolioReturn += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					portfolioVar += xProj[i] * xProj[j] * sigma.At(i, j)
				}
			}

			obj := -(portfolioReturn - lambda*portfolioVar)

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)

			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := projectToUnitBox(x)

			for i := 0; i < n; i++ {
				grad[i] = -mu[i]
				for j := 0; j < n; j++ {
					grad[i] += 2 * lambda * sigma.At(i, j) * xProj[j]
				}
			}

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	return projectToUnitBox(result.X), nil
}

// bestReturnVertex returns full weight on the highest-return candidate,
// breaking ties toward lower variance.
func bestReturnVertex(mu []float64, sigma *mat.Dense) []float64 {
	best := 0
	for i := 1; i < len(mu); i++ {
		if mu[i] > mu[best] {
			best = i
		} else if mu[i] == mu[best] && sigma.At(i, i) < sigma.At(best, best) {
			best = i
		}
	}
	weights := make([]float64, len(mu))
	weights[best] = 1.0
	return weights
}

// Helper functions

func projectToUnitBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}

func normalizeWeights(a Allocation) {
	sum := a.TotalWeight()
	if sum <= 0 {
		return
	}
	for id := range a {
		a[id] /= sum
	}
}

// condNumber returns the 2-norm condition number, +Inf for singular input.
func condNumber(a *mat.Dense) float64 {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return math.Inf(1)
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[len(values)-1] <= 0 {
		return math.Inf(1)
	}
	return values[0] / values[len(values)-1]
}
