package stats

import "gonum.org/v1/gonum/stat/distuv"

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	area := (1 + (confidenceInterval / 100)) / 2
	return dist.Quantile(area)
}

// ConfidenceInterval returns the bounds of the interval around the mean of
// s at the given confidence level, in percent.
func (s *Statistic) ConfidenceInterval(confidence float64) (float64, float64) {
	half := ZVal(confidence) * s.StandardError()
	return s.Mean() - half, s.Mean() + half
}
