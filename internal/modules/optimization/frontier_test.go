package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceFrontier_OrderedAndNonDominated(t *testing.T) {
	returns, cov, ids := optimizerFixture()
	optimizer := NewMVOptimizer(0, zerolog.Nop())

	frontier, err := optimizer.TraceFrontier(returns, cov, ids, 15, 50.0)
	require.NoError(t, err)
	require.NotEmpty(t, frontier.Points)

	for i, point := range frontier.Points {
		assertValidAllocation(t, point.Weights)

		if i == 0 {
			continue
		}
		prev := frontier.Points[i-1]
		assert.GreaterOrEqual(t, point.Risk, prev.Risk,
			"frontier must be ordered by increasing risk")
		assert.Greater(t, point.ExpectedReturn, prev.ExpectedReturn,
			"more risk must buy strictly more return on the frontier")
	}

	// No retained point may dominate another
	for i, p := range frontier.Points {
		for j, q := range frontier.Points {
			if i == j {
				continue
			}
			dominates := p.ExpectedReturn >= q.ExpectedReturn && p.Risk <= q.Risk &&
				(p.ExpectedReturn > q.ExpectedReturn || p.Risk < q.Risk)
			assert.False(t, dominates, "point %d dominates point %d", i, j)
		}
	}
}

func TestTraceFrontier_SpansReturnRange(t *testing.T) {
	returns, cov, ids := optimizerFixture()
	optimizer := NewMVOptimizer(0, zerolog.Nop())

	frontier, err := optimizer.TraceFrontier(returns, cov, ids, 15, 50.0)
	require.NoError(t, err)
	require.NotEmpty(t, frontier.Points)

	last := frontier.Points[len(frontier.Points)-1]
	// λ=0 end of the sweep concentrates on the best candidate
	assert.InDelta(t, 0.8, last.ExpectedReturn, 1e-3)
	// Low-risk end leans toward the minimum-variance mix
	first := frontier.Points[0]
	assert.Less(t, first.Risk, last.Risk)
}

func TestTraceFrontier_EmptyUniverse(t *testing.T) {
	optimizer := NewMVOptimizer(0, zerolog.Nop())

	_, err := optimizer.TraceFrontier(map[string]float64{}, nil, nil, 10, 50.0)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestTraceFrontier_DeduplicatesWarnings(t *testing.T) {
	returns := map[string]float64{"a": 0.5, "b": 0.5}
	cov := [][]float64{
		{0.09, 0.09},
		{0.09, 0.09},
	}
	ids := []string{"a", "b"}
	optimizer := NewMVOptimizer(0, zerolog.Nop())

	frontier, err := optimizer.TraceFrontier(returns, cov, ids, 10, 50.0)
	require.NoError(t, err)

	count := 0
	for _, w := range frontier.Warnings {
		if w.Code == WarnRegularizedCovariance {
			count++
		}
	}
	assert.Equal(t, 1, count, "the same warning code is reported once per sweep")
}
