package simulation

import (
	"fmt"
	"math"
)

// OutcomeState is the lifecycle position of one simulated candidate
// engagement within a trial.
type OutcomeState int

const (
	StateProspect OutcomeState = iota
	StateEngaged
	StateResponded
	StateConverted
	StateLapsed
)

// String returns the state name.
func (s OutcomeState) String() string {
	switch s {
	case StateProspect:
		return "prospect"
	case StateEngaged:
		return "engaged"
	case StateResponded:
		return "responded"
	case StateConverted:
		return "converted"
	case StateLapsed:
		return "lapsed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a candidate's path.
func (s OutcomeState) Terminal() bool {
	return s == StateConverted || s == StateLapsed
}

// StatePayoffs assigns a payoff to each final state. Paths still in flight at
// the horizon are paid at their current state's value.
type StatePayoffs struct {
	Prospect  float64 `json:"prospect"`
	Engaged   float64 `json:"engaged"`
	Responded float64 `json:"responded"`
	Converted float64 `json:"converted"`
	Lapsed    float64 `json:"lapsed"`
}

// Payoff returns the payoff for a state.
func (p StatePayoffs) Payoff(s OutcomeState) float64 {
	switch s {
	case StateProspect:
		return p.Prospect
	case StateEngaged:
		return p.Engaged
	case StateResponded:
		return p.Responded
	case StateConverted:
		return p.Converted
	case StateLapsed:
		return p.Lapsed
	default:
		return 0
	}
}

// TransitionModel parameterizes the per-step outcome process. Advance
// probabilities are modulated per candidate: higher alpha lifts the odds of
// moving forward, higher risk dampens them. The lapse hazard rises with
// every elapsed step, modelling abandonment.
type TransitionModel struct {
	EngageProb    float64 `json:"engage_prob"`     // Base Prospect→Engaged probability
	RespondProb   float64 `json:"respond_prob"`    // Base Engaged→Responded probability
	ConvertProb   float64 `json:"convert_prob"`    // Base Responded→Converted probability
	BaseLapseProb float64 `json:"base_lapse_prob"` // Lapse hazard at step 0
	LapseGrowth   float64 `json:"lapse_growth"`    // Hazard growth rate per elapsed step

	AlphaSensitivity float64 `json:"alpha_sensitivity"`
	RiskSensitivity  float64 `json:"risk_sensitivity"`

	DecayHalfLife float64 `json:"decay_half_life"` // Payoff half-life in steps; <= 0 disables decay

	Payoffs StatePayoffs `json:"payoffs"`
}

// DefaultTransitionModel returns the baseline outcome process.
func DefaultTransitionModel() TransitionModel {
	return TransitionModel{
		EngageProb:       0.45,
		RespondProb:      0.35,
		ConvertProb:      0.25,
		BaseLapseProb:    0.05,
		LapseGrowth:      0.15,
		AlphaSensitivity: 0.5,
		RiskSensitivity:  0.3,
		DecayHalfLife:    5.0,
		Payoffs: StatePayoffs{
			Prospect:  0.0,
			Engaged:   0.1,
			Responded: 0.4,
			Converted: 1.0,
			Lapsed:    0.0,
		},
	}
}

// Validate checks the model's parameters.
func (m TransitionModel) Validate() error {
	for name, p := range map[string]float64{
		"engage_prob":     m.EngageProb,
		"respond_prob":    m.RespondProb,
		"convert_prob":    m.ConvertProb,
		"base_lapse_prob": m.BaseLapseProb,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %g", name, p)
		}
	}
	if m.LapseGrowth < 0 {
		return fmt.Errorf("lapse_growth must be non-negative, got %g", m.LapseGrowth)
	}
	return nil
}

// AdvanceProb returns the probability of moving forward from the given
// non-terminal state, modulated by the candidate's alpha and risk.
func (m TransitionModel) AdvanceProb(state OutcomeState, alpha, risk float64) float64 {
	var base float64
	switch state {
	case StateProspect:
		base = m.EngageProb
	case StateEngaged:
		base = m.RespondProb
	case StateResponded:
		base = m.ConvertProb
	default:
		return 0
	}

	p := base * (1 + m.AlphaSensitivity*alpha) * (1 - m.RiskSensitivity*risk)
	return math.Max(0, math.Min(1, p))
}

// LapseProb returns the abandonment hazard after elapsed steps. The hazard is
// strictly increasing in elapsed time (for positive growth) and approaches 1
// asymptotically, so it is never clamped flat.
func (m TransitionModel) LapseProb(elapsed int) float64 {
	return 1 - (1-m.BaseLapseProb)*math.Exp(-m.LapseGrowth*float64(elapsed))
}

// DecayFactor returns the payoff multiplier after a candidate spent the given
// number of steps non-terminal: exponential decay with the configured
// half-life.
func (m TransitionModel) DecayFactor(stepsNonTerminal int) float64 {
	if m.DecayHalfLife <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * float64(stepsNonTerminal) / m.DecayHalfLife)
}
