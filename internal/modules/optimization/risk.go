package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/quantalloc/internal/domain"
)

// Constants for risk model configuration
const (
	DefaultCorrelationBandwidth = 2.0
	MaxAbsCorrelation           = 1.0 // Off-diagonal correlations clamped into [-1, 1]
)

// CorrelationSource provides pairwise correlation between two candidates.
// Implementations must be symmetric: Correlation(a, b) == Correlation(b, a).
type CorrelationSource interface {
	Correlation(a, b domain.Candidate) float64
}

// FeatureDistanceCorrelation is the default correlation model: correlation
// decays with the Euclidean distance between candidate feature vectors,
// ρ = exp(-(d/bandwidth)²). Candidates without comparable feature vectors are
// treated as uncorrelated.
type FeatureDistanceCorrelation struct {
	Bandwidth float64
}

// Correlation implements CorrelationSource.
func (f FeatureDistanceCorrelation) Correlation(a, b domain.Candidate) float64 {
	if len(a.Features) == 0 || len(a.Features) != len(b.Features) {
		return 0
	}
	bandwidth := f.Bandwidth
	if bandwidth <= 0 {
		bandwidth = DefaultCorrelationBandwidth
	}

	var sumSq float64
	for i := range a.Features {
		d := a.Features[i] - b.Features[i]
		sumSq += d * d
	}
	dist := math.Sqrt(sumSq)

	return math.Exp(-(dist / bandwidth) * (dist / bandwidth))
}

// RiskModelBuilder converts candidate-level alpha and risk estimates plus a
// pairwise correlation source into the return vector and covariance matrix
// consumed by the blender and optimizer. Pure function of its inputs; no
// state is retained between calls.
type RiskModelBuilder struct {
	correlations CorrelationSource
	score        domain.ScoreFunc
	log          zerolog.Logger
}

// NewRiskModelBuilder creates a new risk model builder. correlations may be
// nil (the feature-distance default is used) and score may be nil (each
// candidate's own Alpha is used).
func NewRiskModelBuilder(correlations CorrelationSource, score domain.ScoreFunc, log zerolog.Logger) *RiskModelBuilder {
	if correlations == nil {
		correlations = FeatureDistanceCorrelation{Bandwidth: DefaultCorrelationBandwidth}
	}
	return &RiskModelBuilder{
		correlations: correlations,
		score:        score,
		log:          log.With().Str("component", "risk_model").Logger(),
	}
}

// Build produces the expected-return vector and covariance matrix for the
// candidate universe.
//
// Invariants on the returned matrix:
//   - square, symmetric
//   - diagonal entries equal Risk²
//   - off-diagonal entries are ρ·σᵢ·σⱼ with ρ clamped into [-1, 1]
//
// A universe of fewer than two candidates cannot support cross-correlation
// estimation; the builder falls back to a diagonal matrix of variances and
// reports an insufficient_data warning. An empty universe is a structural
// failure and returns ErrInsufficientData.
func (rb *RiskModelBuilder) Build(candidates []domain.Candidate) (*RiskModel, error) {
	n := len(candidates)
	if n == 0 {
		return nil, fmt.Errorf("no candidates provided: %w", ErrInsufficientData)
	}

	ids := make([]string, n)
	returns := make(map[string]float64, n)
	for i, cand := range candidates {
		if cand.ID == "" {
			return nil, fmt.Errorf("candidate %d has empty ID: %w", i, ErrInsufficientData)
		}
		if _, dup := returns[cand.ID]; dup {
			return nil, fmt.Errorf("duplicate candidate ID %q: %w", cand.ID, ErrInsufficientData)
		}
		ids[i] = cand.ID
		alpha := cand.Alpha
		if rb.score != nil {
			alpha = rb.score(cand)
		}
		returns[cand.ID] = alpha
	}

	model := &RiskModel{
		IDs:       ids,
		Returns:   returns,
		CovMatrix: make([][]float64, n),
	}
	for i := range model.CovMatrix {
		model.CovMatrix[i] = make([]float64, n)
	}

	if n < 2 {
		model.CovMatrix[0][0] = candidates[0].Risk * candidates[0].Risk
		model.Warnings = append(model.Warnings, Warning{
			Code:    WarnInsufficientData,
			Message: "fewer than 2 candidates: falling back to diagonal covariance",
		})
		rb.log.Warn().
			Int("num_candidates", n).
			Msg("Insufficient candidates for covariance estimation, using diagonal fallback")
		return model, nil
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				model.CovMatrix[i][i] = candidates[i].Risk * candidates[i].Risk
				continue
			}
			rho := rb.correlations.Correlation(candidates[i], candidates[j])
			rho = math.Max(-MaxAbsCorrelation, math.Min(MaxAbsCorrelation, rho))
			cov := rho * candidates[i].Risk * candidates[j].Risk
			model.CovMatrix[i][j] = cov
			model.CovMatrix[j][i] = cov
		}
	}

	rb.log.Debug().
		Int("num_candidates", n).
		Msg("Built covariance matrix")

	return model, nil
}
