package stats

import (
	"strings"

	"github.com/aybabtme/uniplot/histogram"
)

const histogramWidth = 40

// Histogram renders samples as a text histogram with the given number of
// bins. It returns an empty string when there are no samples.
func Histogram(samples []float64, bins int) string {
	if len(samples) == 0 {
		return ""
	}
	hist := histogram.Hist(bins, samples)
	var sb strings.Builder
	if err := histogram.Fprint(&sb, hist, histogram.Linear(histogramWidth)); err != nil {
		return err.Error()
	}
	return sb.String()
}
