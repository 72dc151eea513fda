package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Percentile returns the p-th percentile (p in [0,1]) of the data using the
// empirical distribution. The input slice is not modified.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// PortfolioReturn calculates the expected portfolio return μ'w for a weight
// map and a return map keyed by the same IDs.
func PortfolioReturn(weights, returns map[string]float64) float64 {
	var total float64
	for id, w := range weights {
		total += w * returns[id]
	}
	return total
}

// PortfolioVariance calculates w'Σw for weights keyed by ID and a covariance
// matrix aligned with the ordered ID slice.
func PortfolioVariance(weights map[string]float64, covMatrix [][]float64, ids []string) float64 {
	var variance float64
	for i, idI := range ids {
		wi := weights[idI]
		if wi == 0 {
			continue
		}
		for j, idJ := range ids {
			variance += wi * weights[idJ] * covMatrix[i][j]
		}
	}
	return variance
}

// SharpeRatio returns mean/stddev, or nil when the standard deviation is zero
// (the ratio is undefined, not infinite).
func SharpeRatio(mean, stdDev float64) *float64 {
	if stdDev == 0 || math.IsNaN(stdDev) {
		return nil
	}
	ratio := mean / stdDev
	return &ratio
}
