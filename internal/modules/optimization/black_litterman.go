package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rs/zerolog"

	"github.com/aristath/quantalloc/internal/domain"
)

// Constants for view blending
const (
	DefaultTau          = 0.05
	MinConfidenceSlack  = 1e-6 // Floor for (1 − confidence) so Ω stays invertible
	TikhonovEpsilon     = 1e-8 // Initial ridge added to a singular matrix
	TikhonovMaxAttempts = 6    // Ridge grows 100x per attempt before giving up
)

// ViewBlender combines a prior return vector with subjective views using the
// Black-Litterman posterior formula:
//
//	E[R] = [(τΣ)⁻¹ + PᵀΩ⁻¹P]⁻¹ · [(τΣ)⁻¹π + PᵀΩ⁻¹Q]
//
// where π is the prior, Σ the covariance, P the view-selection matrix, Q the
// view-return vector, Ω the diagonal view-uncertainty matrix derived from
// each view's confidence, and τ scales the prior's uncertainty.
type ViewBlender struct {
	log zerolog.Logger
}

// NewViewBlender creates a new view blender.
func NewViewBlender(log zerolog.Logger) *ViewBlender {
	return &ViewBlender{
		log: log.With().Str("component", "view_blender").Logger(),
	}
}

// Blend produces the posterior return vector. With no views the prior is
// returned unchanged. A singular (τΣ) or Ω is recovered with a Tikhonov
// ridge and reported as a singular_blend warning; ErrSingularBlend is
// returned only when even the regularized inverse fails.
func (vb *ViewBlender) Blend(
	prior map[string]float64,
	views []domain.View,
	covMatrix [][]float64,
	ids []string,
	tau float64,
) (*BlendResult, error) {
	n := len(ids)
	if n == 0 {
		return nil, fmt.Errorf("empty prior: %w", ErrInsufficientData)
	}
	if len(covMatrix) != n {
		return nil, fmt.Errorf("covariance matrix size %d does not match %d candidates", len(covMatrix), n)
	}
	if tau <= 0 {
		tau = DefaultTau
	}

	// No views: posterior degenerates to the prior.
	if len(views) == 0 {
		posterior := make(map[string]float64, n)
		for _, id := range ids {
			posterior[id] = prior[id]
		}
		return &BlendResult{Posterior: posterior}, nil
	}

	indexByID := make(map[string]int, n)
	for i, id := range ids {
		indexByID[id] = i
	}

	// Build P (view-selection), Q (view returns) and Ω (view uncertainties).
	m := len(views)
	P := mat.NewDense(m, n, nil)
	Q := mat.NewVecDense(m, nil)
	omega := mat.NewDense(m, m, nil)

	for i, view := range views {
		Q.SetVec(i, view.Return)

		// Lower confidence means larger uncertainty and less influence.
		// Confidence is clamped into [0, 1] so overlapping views can never
		// produce a negative effective confidence.
		confidence := view.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
		// Scaling by τ keeps view precision and prior precision on the same
		// footing: a confidence-1.0 view dominates the posterior for its
		// target at every τ, and stays dominant as τ→0.
		slack := 1.0 - confidence
		if slack < MinConfidenceSlack {
			slack = MinConfidenceSlack
		}
		omega.Set(i, i, slack * tau)

		switch view.Type {
		case domain.ViewRelative:
			j1, ok1 := indexByID[view.Target1]
			j2, ok2 := indexByID[view.Target2]
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("relative view %d targets unknown candidate (%q, %q)", i, view.Target1, view.Target2)
			}
			P.Set(i, j1, 1.0)
			P.Set(i, j2, -1.0)
		default: // absolute
			j, ok := indexByID[view.Target]
			if !ok {
				return nil, fmt.Errorf("view %d targets unknown candidate %q", i, view.Target)
			}
			P.Set(i, j, 1.0)
		}
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, covMatrix[i][j])
		}
	}
	pi := mat.NewVecDense(n, nil)
	for i, id := range ids {
		pi.SetVec(i, prior[id])
	}

	var warnings []Warning

	// (τΣ)⁻¹
	tauSigma := mat.NewDense(n, n, nil)
	tauSigma.Scale(tau, sigma)
	tauSigmaInv, regularized, err := invertWithRidge(tauSigma)
	if err != nil {
		return nil, fmt.Errorf("failed to invert τΣ: %w", ErrSingularBlend)
	}
	if regularized {
		warnings = append(warnings, Warning{
			Code:    WarnSingularBlend,
			Message: "τΣ singular beyond tolerance, applied Tikhonov regularization",
		})
		vb.log.Warn().Msg("τΣ inversion required regularization")
	}

	// Ω⁻¹
	omegaInv, regularized, err := invertWithRidge(omega)
	if err != nil {
		return nil, fmt.Errorf("failed to invert Ω: %w", ErrSingularBlend)
	}
	if regularized {
		warnings = append(warnings, Warning{
			Code:    WarnSingularBlend,
			Message: "Ω singular beyond tolerance, applied Tikhonov regularization",
		})
		vb.log.Warn().Msg("Ω inversion required regularization")
	}

	// PᵀΩ⁻¹P and PᵀΩ⁻¹Q
	var pTransOmegaInv mat.Dense
	pTransOmegaInv.Mul(P.T(), omegaInv)
	var pTransOmegaInvP mat.Dense
	pTransOmegaInvP.Mul(&pTransOmegaInv, P)
	var pTransOmegaInvQ mat.VecDense
	pTransOmegaInvQ.MulVec(&pTransOmegaInv, Q)

	// M = (τΣ)⁻¹ + PᵀΩ⁻¹P
	var M mat.Dense
	M.Add(tauSigmaInv, &pTransOmegaInvP)
	mInv, regularized, err := invertWithRidge(&M)
	if err != nil {
		return nil, fmt.Errorf("failed to invert posterior precision: %w", ErrSingularBlend)
	}
	if regularized {
		warnings = append(warnings, Warning{
			Code:    WarnSingularBlend,
			Message: "posterior precision singular beyond tolerance, applied Tikhonov regularization",
		})
	}

	// rhs = (τΣ)⁻¹π + PᵀΩ⁻¹Q
	var tauSigmaInvPi mat.VecDense
	tauSigmaInvPi.MulVec(tauSigmaInv, pi)
	var rhs mat.VecDense
	rhs.AddVec(&tauSigmaInvPi, &pTransOmegaInvQ)

	var posteriorVec mat.VecDense
	posteriorVec.MulVec(mInv, &rhs)

	posterior := make(map[string]float64, n)
	for i, id := range ids {
		posterior[id] = posteriorVec.AtVec(i)
	}

	vb.log.Debug().
		Int("num_views", m).
		Float64("tau", tau).
		Msg("Blended views with prior")

	return &BlendResult{Posterior: posterior, Warnings: warnings}, nil
}

// invertWithRidge inverts a square matrix, falling back to a Tikhonov ridge
// (add εI, growing ε until the inverse succeeds). The second return reports
// whether regularization was needed.
func invertWithRidge(a *mat.Dense) (*mat.Dense, bool, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err == nil {
		return &inv, false, nil
	}

	// Inverse failed or was reported ill-conditioned (mat.Condition).
	// Rebuild from a ridged copy, growing the ridge until the inverse is
	// numerically sound.
	n, _ := a.Dims()
	epsilon := TikhonovEpsilon
	for attempt := 0; attempt < TikhonovMaxAttempts; attempt++ {
		ridged := mat.NewDense(n, n, nil)
		ridged.CloneFrom(a)
		for i := 0; i < n; i++ {
			ridged.Set(i, i, ridged.At(i, i)+epsilon)
		}

		var ridgedInv mat.Dense
		err := ridgedInv.Inverse(ridged)
		if err == nil {
			return &ridgedInv, true, nil
		}
		if _, stillConditioned := err.(mat.Condition); stillConditioned && attempt == TikhonovMaxAttempts-1 {
			// The inverse was computed, just flagged as ill-conditioned.
			return &ridgedInv, true, nil
		}
		epsilon *= 100
	}

	return nil, true, ErrSingularBlend
}
