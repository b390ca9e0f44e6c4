package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/stats"
)

const histogramBins = 10

// Report aggregates the results of one suite.
type Report struct {
	Suite       string
	Fingerprint uint64
	Depth       int
	Threads     int
	StartedAt   time.Time
	// Wall is the wall time of the whole run. With more than one thread
	// it is less than the sum of the per-case times.
	Wall    time.Duration
	Results []Result
	Passed  int
	Failed  int

	timeStats stats.Statistic
	nodeStats stats.Statistic
}

func newReport(suite *fixture.Suite, depth, threads int, tstart time.Time,
	results []Result) *Report {

	r := &Report{
		Suite:       suite.Name,
		Fingerprint: suite.Fingerprint,
		Depth:       depth,
		Threads:     threads,
		StartedAt:   tstart,
		Wall:        time.Since(tstart),
		Results:     results,
	}
	r.Passed = lo.CountBy(results, func(res Result) bool { return res.Passed() })
	r.Failed = len(results) - r.Passed
	for _, res := range results {
		r.timeStats.Push(float64(res.Elapsed) / float64(time.Millisecond))
		r.nodeStats.Push(float64(res.Nodes))
	}
	return r
}

func (r *Report) Mismatches() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool { return !res.Passed() })
}

// MeanTimeMs is the mean solve time per case in milliseconds.
func (r *Report) MeanTimeMs() float64 {
	return r.timeStats.Mean()
}

// MeanNodes is the mean number of positions visited per case.
func (r *Report) MeanNodes() float64 {
	return r.nodeStats.Mean()
}

func (r *Report) TotalNodes() uint64 {
	return lo.SumBy(r.Results, func(res Result) uint64 { return res.Nodes })
}

// KposPerSec is thousands of positions searched per second of solver time,
// which is the same as positions per millisecond.
func (r *Report) KposPerSec() float64 {
	ms := r.timeStats.Sum()
	if ms == 0 {
		return 0
	}
	return float64(r.TotalNodes()) / ms
}

// TimeCI is the confidence interval of the mean solve time, in ms.
// confidence is a percentage.
func (r *Report) TimeCI(confidence float64) (float64, float64) {
	return r.timeStats.ConfidenceInterval(confidence)
}

// NodeHistogram draws the distribution of per-case node counts.
func (r *Report) NodeHistogram() string {
	samples := lo.Map(r.Results, func(res Result, _ int) float64 { return float64(res.Nodes) })
	return stats.Histogram(samples, histogramBins)
}

// WriteText writes a human-readable summary. With verbose set it includes
// the node histogram.
func (r *Report) WriteText(w io.Writer, verbose bool) error {
	p := message.NewPrinter(language.English)
	lo95, hi95 := r.TimeCI(95)
	p.Fprintf(w, "%s (%016x) depth %d, %d threads\n", r.Suite, r.Fingerprint, r.Depth, r.Threads)
	p.Fprintf(w, "  cases:      %d passed, %d failed\n", r.Passed, r.Failed)
	p.Fprintf(w, "  mean time:  %.2f ms (95%% CI %.2f - %.2f)\n", r.MeanTimeMs(), lo95, hi95)
	p.Fprintf(w, "  mean nodes: %.2f\n", r.MeanNodes())
	p.Fprintf(w, "  total:      %d nodes, %.2f kpos/s\n", r.TotalNodes(), r.KposPerSec())
	p.Fprintf(w, "  wall:       %v\n", r.Wall.Round(time.Millisecond))
	for _, m := range r.Mismatches() {
		p.Fprintf(w, "  MISMATCH line %d: %s expected %d, got %d\n",
			m.Line, m.Sequence, m.Expected, m.Score)
	}
	if verbose {
		if _, err := fmt.Fprintln(w, r.NodeHistogram()); err != nil {
			return err
		}
	}
	return nil
}

type yamlSummary struct {
	Suite       string   `yaml:"suite"`
	Fingerprint string   `yaml:"fingerprint"`
	Depth       int      `yaml:"depth"`
	Threads     int      `yaml:"threads"`
	StartedAt   string   `yaml:"started_at"`
	Passed      int      `yaml:"passed"`
	Failed      int      `yaml:"failed"`
	MeanTimeMs  float64  `yaml:"mean_time_ms"`
	MeanNodes   float64  `yaml:"mean_nodes"`
	KposPerSec  float64  `yaml:"kpos_per_sec"`
	Mismatches  []Result `yaml:"mismatches,omitempty"`
}

// WriteYAML writes the summary as a yaml document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(yamlSummary{
		Suite:       r.Suite,
		Fingerprint: fmt.Sprintf("%016x", r.Fingerprint),
		Depth:       r.Depth,
		Threads:     r.Threads,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		Passed:      r.Passed,
		Failed:      r.Failed,
		MeanTimeMs:  r.MeanTimeMs(),
		MeanNodes:   r.MeanNodes(),
		KposPerSec:  r.KposPerSec(),
		Mismatches:  r.Mismatches(),
	})
}
