package simulation

import (
	"math/rand"

	"github.com/aristath/quantalloc/internal/domain"
)

// runTrial plays one scenario: every candidate walks the outcome state
// machine for up to horizon steps, and the trial value is the weighted sum of
// time-decayed payoffs. Candidates are visited in slice order so the random
// stream is consumed identically on every run with the same seed.
func runTrial(
	rng *rand.Rand,
	weights map[string]float64,
	candidates []domain.Candidate,
	model TransitionModel,
	horizon int,
) float64 {
	var total float64
	for _, cand := range candidates {
		w := weights[cand.ID]
		state, steps := walkPath(rng, cand, model, horizon)
		total += w * model.Payoffs.Payoff(state) * model.DecayFactor(steps)
	}
	return total
}

// walkPath advances a single candidate until it reaches a terminal state or
// the horizon. It returns the final state and the number of steps the
// candidate spent before terminating (the full horizon if it never did).
func walkPath(rng *rand.Rand, cand domain.Candidate, model TransitionModel, horizon int) (OutcomeState, int) {
	state := StateProspect
	for t := 0; t < horizon; t++ {
		// Lapse hazard first: abandonment preempts progress.
		if rng.Float64() < model.LapseProb(t) {
			return StateLapsed, t + 1
		}
		if rng.Float64() < model.AdvanceProb(state, cand.Alpha, cand.Risk) {
			state++
		}
		if state.Terminal() {
			return state, t + 1
		}
	}
	return state, horizon
}

// trialSeed derives a per-trial seed from the run seed and trial index so
// each trial owns an independent, reproducible random stream regardless of
// which worker picks it up.
func trialSeed(runSeed int64, trial int) int64 {
	const mix = 0x9E3779B97F4A7C15 // 64-bit golden ratio increment
	x := uint64(runSeed) + uint64(trial+1)*mix
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}
