package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantalloc/internal/config"
	"github.com/aristath/quantalloc/internal/domain"
	"github.com/aristath/quantalloc/internal/modules/optimization"
	"github.com/aristath/quantalloc/internal/modules/reporting"
	"github.com/aristath/quantalloc/internal/modules/simulation"
)

// Service wires the allocation pipeline: estimate the risk model, blend
// subjective views into the prior, trace the efficient frontier, pick an
// allocation, simulate its outcome distribution, and fold everything into a
// report.
type Service struct {
	builder    *optimization.RiskModelBuilder
	blender    *optimization.ViewBlender
	optimizer  *optimization.MVOptimizer
	simulator  *simulation.Simulator
	aggregator *reporting.Aggregator

	defaults config.EngineConfig
	log      zerolog.Logger
}

// Options customize service construction. Zero values select the defaults.
type Options struct {
	// Correlations overrides the feature-distance correlation model.
	Correlations optimization.CorrelationSource
	// Score overrides the expected-return estimate per candidate.
	Score domain.ScoreFunc
}

// NewService creates the engine with the given defaults.
func NewService(cfg config.EngineConfig, opts Options, log zerolog.Logger) *Service {
	log = log.With().Str("component", "engine").Logger()
	return &Service{
		builder:    optimization.NewRiskModelBuilder(opts.Correlations, opts.Score, log),
		blender:    optimization.NewViewBlender(log),
		optimizer:  optimization.NewMVOptimizer(cfg.ConditionThreshold, log),
		simulator:  simulation.NewSimulator(log),
		aggregator: reporting.NewAggregator(log),
		defaults:   cfg,
		log:        log,
	}
}

// Request describes one engine run.
type Request struct {
	Candidates []domain.Candidate `json:"candidates"`
	Views      []domain.View      `json:"views,omitempty"`

	// Lambda is the risk aversion for the chosen allocation. TargetReturn,
	// when set, selects from the frontier instead: the lowest-risk point
	// meeting the target.
	Lambda       float64  `json:"lambda"`
	TargetReturn *float64 `json:"target_return,omitempty"`

	// Tau overrides the prior-uncertainty scale for view blending.
	Tau *float64 `json:"tau,omitempty"`

	// Simulation overrides trial count, horizon, seed and percentiles.
	Simulation *simulation.Config `json:"simulation,omitempty"`
	// Model overrides the outcome transition model.
	Model *simulation.TransitionModel `json:"model,omitempty"`
}

// posterior builds the risk model and blends views into the prior. It returns
// the model (with its covariance), the posterior return vector and the
// warnings from both stages.
func (s *Service) posterior(req Request) (*optimization.RiskModel, map[string]float64, []optimization.Warning, error) {
	model, err := s.builder.Build(req.Candidates)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("risk model: %w", err)
	}
	warnings := model.Warnings

	tau := s.defaults.Tau
	if req.Tau != nil {
		tau = *req.Tau
	}
	blend, err := s.blender.Blend(model.Returns, req.Views, model.CovMatrix, model.IDs, tau)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("view blend: %w", err)
	}
	warnings = append(warnings, blend.Warnings...)

	return model, blend.Posterior, warnings, nil
}

// Optimize solves a single allocation at the request's risk aversion.
func (s *Service) Optimize(req Request) (*optimization.Solution, error) {
	model, posterior, warnings, err := s.posterior(req)
	if err != nil {
		return nil, err
	}

	solution, err := s.optimizer.Optimize(posterior, model.CovMatrix, model.IDs, req.Lambda)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	solution.Warnings = append(warnings, solution.Warnings...)
	return solution, nil
}

// Frontier traces the efficient frontier over the posterior returns.
func (s *Service) Frontier(req Request) (*optimization.Frontier, error) {
	model, posterior, warnings, err := s.posterior(req)
	if err != nil {
		return nil, err
	}

	frontier, err := s.optimizer.TraceFrontier(posterior, model.CovMatrix, model.IDs, s.defaults.FrontierPoints, s.defaults.LambdaMax)
	if err != nil {
		return nil, fmt.Errorf("frontier: %w", err)
	}
	frontier.Warnings = append(warnings, frontier.Warnings...)
	return frontier, nil
}

// Simulate runs the scenario simulator for an explicit allocation.
func (s *Service) Simulate(ctx context.Context, req Request, weights map[string]float64) (*simulation.Result, error) {
	model := simulation.DefaultTransitionModel()
	model.DecayHalfLife = s.defaults.DecayHalfLife
	if req.Model != nil {
		model = *req.Model
	}

	cfg := simulation.Config{
		Trials:         s.defaults.Trials,
		Horizon:        s.defaults.Horizon,
		Workers:        s.defaults.Workers,
		PercentileLow:  s.defaults.PercentileLow,
		PercentileHigh: s.defaults.PercentileHigh,
	}
	if req.Simulation != nil {
		override := *req.Simulation
		if override.Trials > 0 {
			cfg.Trials = override.Trials
		}
		if override.Horizon > 0 {
			cfg.Horizon = override.Horizon
		}
		if override.Workers > 0 {
			cfg.Workers = override.Workers
		}
		if override.PercentileLow > 0 {
			cfg.PercentileLow = override.PercentileLow
		}
		if override.PercentileHigh > 0 {
			cfg.PercentileHigh = override.PercentileHigh
		}
		cfg.Seed = override.Seed
	}

	return s.simulator.Run(ctx, weights, req.Candidates, model, cfg)
}

// Run executes the full pipeline and composes a report. The chosen allocation
// comes from the frontier when TargetReturn is set, otherwise from a direct
// solve at the request's Lambda.
func (s *Service) Run(ctx context.Context, req Request) (*reporting.Report, error) {
	frontier, err := s.Frontier(req)
	if err != nil {
		return nil, err
	}

	var chosen *optimization.Solution
	if req.TargetReturn != nil {
		chosen = chooseByTarget(frontier, *req.TargetReturn)
	} else {
		chosen, err = s.Optimize(req)
		if err != nil {
			return nil, err
		}
	}

	sim, err := s.Simulate(ctx, req, chosen.Weights)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	report := s.aggregator.Compose(frontier, chosen, sim, nil)

	s.log.Info().
		Str("report_id", report.ID).
		Int("num_candidates", len(req.Candidates)).
		Int("frontier_points", len(frontier.Points)).
		Msg("Engine run complete")

	return report, nil
}

// chooseByTarget picks the lowest-risk frontier point whose expected return
// meets the target. An unreachable target falls back to the highest-return
// point, which is the closest the frontier gets.
func chooseByTarget(frontier *optimization.Frontier, target float64) *optimization.Solution {
	points := frontier.Points
	for i := range points {
		if points[i].ExpectedReturn >= target {
			return frontierSolution(points[i])
		}
	}
	return frontierSolution(points[len(points)-1])
}

func frontierSolution(p optimization.FrontierPoint) *optimization.Solution {
	return &optimization.Solution{
		Weights:        p.Weights.Clone(),
		ExpectedReturn: p.ExpectedReturn,
		Risk:           p.Risk,
		Lambda:         p.Lambda,
	}
}
