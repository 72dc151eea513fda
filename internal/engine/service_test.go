package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantalloc/internal/config"
	"github.com/aristath/quantalloc/internal/domain"
	"github.com/aristath/quantalloc/internal/modules/simulation"
)

func testService() *Service {
	cfg := config.EngineConfig{
		Tau:                0.05,
		ConditionThreshold: 1e8,
		FrontierPoints:     10,
		LambdaMax:          50,
		Trials:             500,
		Horizon:            10,
		DecayHalfLife:      5,
		PercentileLow:      0.05,
		PercentileHigh:     0.95,
	}
	return NewService(cfg, Options{}, zerolog.Nop())
}

func testRequest() Request {
	return Request{
		Candidates: []domain.Candidate{
			{ID: "c1", Alpha: 0.8, Risk: 0.3},
			{ID: "c2", Alpha: 0.5, Risk: 0.2},
			{ID: "c3", Alpha: 0.2, Risk: 0.1},
		},
		Lambda: 1.0,
	}
}

func seedPtr(s int64) *int64 { return &s }

func TestService_Optimize(t *testing.T) {
	svc := testService()

	solution, err := svc.Optimize(testRequest())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, solution.Weights.TotalWeight(), 1e-9)
	for id, w := range solution.Weights {
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s", id)
	}
}

func TestService_OptimizeWithViews(t *testing.T) {
	svc := testService()

	base, err := svc.Optimize(testRequest())
	require.NoError(t, err)

	// A confident bearish view on the best candidate should shift weight away
	// from it.
	req := testRequest()
	req.Views = []domain.View{
		{Type: domain.ViewAbsolute, Target: "c1", Return: -0.5, Confidence: 0.95},
	}
	bearish, err := svc.Optimize(req)
	require.NoError(t, err)

	assert.Less(t, bearish.Weights["c1"], base.Weights["c1"])
}

func TestService_Frontier(t *testing.T) {
	svc := testService()

	frontier, err := svc.Frontier(testRequest())
	require.NoError(t, err)
	require.NotEmpty(t, frontier.Points)

	for i := 1; i < len(frontier.Points); i++ {
		assert.GreaterOrEqual(t, frontier.Points[i].Risk, frontier.Points[i-1].Risk)
		assert.Greater(t, frontier.Points[i].ExpectedReturn, frontier.Points[i-1].ExpectedReturn)
	}
}

func TestService_RunFullPipeline(t *testing.T) {
	svc := testService()

	req := testRequest()
	req.Simulation = &simulation.Config{Seed: seedPtr(42)}

	report, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	require.NotNil(t, report.Frontier)
	require.NotNil(t, report.Chosen)
	require.NotNil(t, report.Simulation)
	assert.Equal(t, 500, report.Simulation.TrialsRequested)
	assert.InDelta(t, 1.0, report.Chosen.Weights.TotalWeight(), 1e-9)
}

func TestService_RunWithTargetReturn(t *testing.T) {
	svc := testService()

	target := 0.4
	req := testRequest()
	req.TargetReturn = &target
	req.Simulation = &simulation.Config{Seed: seedPtr(7)}

	report, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Chosen)

	// Lowest-risk point meeting the target: return clears it, and no cheaper
	// frontier point does.
	assert.GreaterOrEqual(t, report.Chosen.ExpectedReturn, target)
	for _, p := range report.Frontier.Points {
		if p.Risk < report.Chosen.Risk {
			assert.Less(t, p.ExpectedReturn, target)
		}
	}
}

func TestService_RunUnreachableTargetFallsBack(t *testing.T) {
	svc := testService()

	target := 10.0 // far above any candidate's return
	req := testRequest()
	req.TargetReturn = &target
	req.Simulation = &simulation.Config{Seed: seedPtr(7)}

	report, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	last := report.Frontier.Points[len(report.Frontier.Points)-1]
	assert.Equal(t, last.ExpectedReturn, report.Chosen.ExpectedReturn)
}

func TestService_EmptyUniverse(t *testing.T) {
	svc := testService()

	_, err := svc.Optimize(Request{Lambda: 1})
	assert.Error(t, err)
}
