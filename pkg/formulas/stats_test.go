package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Mean([]float64{}))
}

func TestStdDev(t *testing.T) {
	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9} is ~2.138
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.138, StdDev(data), 1e-3)
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestVariance(t *testing.T) {
	data := []float64{1, 1, 1, 1}
	assert.InDelta(t, 0.0, Variance(data), 1e-12)
	assert.Equal(t, 0.0, Variance(nil))
}

func TestPercentile(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3}

	p50 := Percentile(data, 0.5)
	assert.InDelta(t, 3.0, p50, 1.0)

	// Extremes land on min/max
	assert.InDelta(t, 1.0, Percentile(data, 0.0), 1e-12)
	assert.InDelta(t, 5.0, Percentile(data, 1.0), 1e-12)

	// Input order must be preserved
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, data)
}

func TestPortfolioReturn(t *testing.T) {
	weights := map[string]float64{"a": 0.6, "b": 0.4}
	returns := map[string]float64{"a": 0.10, "b": 0.05}

	assert.InDelta(t, 0.08, PortfolioReturn(weights, returns), 1e-12)
}

func TestPortfolioVariance(t *testing.T) {
	ids := []string{"a", "b"}
	cov := [][]float64{
		{0.04, 0.00},
		{0.00, 0.01},
	}
	weights := map[string]float64{"a": 0.5, "b": 0.5}

	// 0.25*0.04 + 0.25*0.01 = 0.0125
	assert.InDelta(t, 0.0125, PortfolioVariance(weights, cov, ids), 1e-12)
}

func TestSharpeRatio(t *testing.T) {
	ratio := SharpeRatio(0.10, 0.05)
	require.NotNil(t, ratio)
	assert.InDelta(t, 2.0, *ratio, 1e-12)

	// Zero stddev is undefined, not Inf
	assert.Nil(t, SharpeRatio(0.10, 0.0))
}
