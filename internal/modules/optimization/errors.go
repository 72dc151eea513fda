package optimization

import "errors"

// Typed failures. Structural problems surface as errors; numerical
// near-failures are recovered locally and surfaced as warnings instead.
var (
	// ErrInsufficientData indicates the candidate set is too small to build
	// any risk model at all (empty universe).
	ErrInsufficientData = errors.New("insufficient data for risk model")

	// ErrSingularBlend indicates a matrix in the view-blending formula could
	// not be inverted even after regularization.
	ErrSingularBlend = errors.New("singular matrix in view blending")

	// ErrInfeasible indicates the optimization constraints are contradictory.
	// It is fatal to the call only; the engine holds no state to corrupt.
	ErrInfeasible = errors.New("optimization constraints are infeasible")
)

// Warning codes for recoverable numerical degeneracies.
const (
	WarnInsufficientData      = "insufficient_data"
	WarnSingularBlend         = "singular_blend"
	WarnRegularizedCovariance = "regularized_covariance"
)

// Warning is a non-fatal signal that a numerical fallback was applied.
// Warnings are always surfaced to the caller, never logged-and-dropped.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
