package simulation

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/quantalloc/internal/domain"
)

// Default simulation parameters
const (
	DefaultTrials         = 10000
	DefaultHorizon        = 10
	DefaultPercentileLow  = 0.05
	DefaultPercentileHigh = 0.95
)

// ErrNoTrialsCompleted is returned when the compute budget expired before a
// single trial finished.
var ErrNoTrialsCompleted = fmt.Errorf("no trials completed within budget")

// Config controls one simulation run.
type Config struct {
	Trials  int `json:"trials"`
	Horizon int `json:"horizon"`
	Workers int `json:"workers"` // <= 0 selects GOMAXPROCS

	// Seed pins the random stream for reproducibility. Nil draws fresh
	// entropy per run.
	Seed *int64 `json:"seed,omitempty"`

	PercentileLow  float64 `json:"percentile_low"`
	PercentileHigh float64 `json:"percentile_high"`
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	if c.Trials <= 0 {
		c.Trials = DefaultTrials
	}
	if c.Horizon <= 0 {
		c.Horizon = DefaultHorizon
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.PercentileLow <= 0 {
		c.PercentileLow = DefaultPercentileLow
	}
	if c.PercentileHigh <= 0 {
		c.PercentileHigh = DefaultPercentileHigh
	}
	return c
}

// Simulator runs Monte Carlo scenario trials over an allocation. Each trial
// owns its own random stream derived from the run seed and trial index, so
// results are reproducible for a fixed seed and independent of the worker
// count.
type Simulator struct {
	log zerolog.Logger
}

// NewSimulator creates a new scenario simulator.
func NewSimulator(log zerolog.Logger) *Simulator {
	return &Simulator{
		log: log.With().Str("component", "simulator").Logger(),
	}
}

// Run executes the configured number of trials and aggregates the value
// distribution. Cancelling ctx stops issuing new trials; the trials already
// finished are still aggregated into a partial (but valid) result. An error
// is returned only for invalid inputs or when nothing completed at all.
func (s *Simulator) Run(
	ctx context.Context,
	weights map[string]float64,
	candidates []domain.Candidate,
	model TransitionModel,
	cfg Config,
) (*Result, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to simulate")
	}
	known := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		known[cand.ID] = true
	}
	for id := range weights {
		if !known[id] {
			return nil, fmt.Errorf("allocation references unknown candidate %q", id)
		}
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transition model: %w", err)
	}
	cfg = cfg.withDefaults()

	seed := drawSeed(cfg.Seed)

	values := make([]float64, cfg.Trials)
	completed := make([]bool, cfg.Trials)

	indices := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(indices)
		for i := 0; i < cfg.Trials; i++ {
			select {
			case indices <- i:
			case <-gctx.Done():
				return nil // Budget exhausted: stop issuing, keep what we have
			}
		}
		return nil
	})

	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			for idx := range indices {
				rng := rand.New(rand.NewSource(trialSeed(seed, idx)))
				values[idx] = runTrial(rng, weights, candidates, model, cfg.Horizon)
				completed[idx] = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}

	finished := make([]float64, 0, cfg.Trials)
	for i, ok := range completed {
		if ok {
			finished = append(finished, values[i])
		}
	}
	if len(finished) == 0 {
		return nil, ErrNoTrialsCompleted
	}

	result := aggregate(finished, cfg, seed)

	s.log.Debug().
		Int("trials_requested", cfg.Trials).
		Int("trials_completed", result.TrialsCompleted).
		Float64("mean", result.Mean).
		Float64("std_dev", result.StdDev).
		Msg("Simulation run complete")

	return result, nil
}

// drawSeed returns the pinned seed or fresh entropy.
func drawSeed(pinned *int64) int64 {
	if pinned != nil {
		return *pinned
	}
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(buf[:]))
	}
	return time.Now().UnixNano()
}
