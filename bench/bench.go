// Package bench runs fixture suites through the solver and reports on the
// results. Cases are spread over a pool of goroutines; each goroutine has
// its own negamax.Solver.
package bench

import (
	"context"
	"errors"
	"expvar"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/negamax"
)

var (
	ErrNoCases = errors.New("fixture suite has no cases")
)

var (
	CasesSolved *expvar.Int
	Running     *expvar.Int
)

func init() {
	CasesSolved = expvar.NewInt("benchCasesSolved")
	Running = expvar.NewInt("benchRunning")
}

// Result is the outcome of solving one fixture case.
type Result struct {
	fixture.Case `yaml:",inline"`
	// Consumed is the number of moves of the sequence that were replayed.
	Consumed int           `yaml:"consumed"`
	Score    int           `yaml:"score"`
	Nodes    uint64        `yaml:"nodes"`
	Elapsed  time.Duration `yaml:"elapsed"`
}

func (r Result) Passed() bool {
	return r.Score == r.Expected
}

type Options struct {
	Depth   int
	Threads int
}

// Run solves every case of the suite to opts.Depth. The context is checked
// between cases; a search that has started always runs to completion.
func Run(ctx context.Context, suite *fixture.Suite, opts Options) (*Report, error) {
	if len(suite.Cases) == 0 {
		return nil, ErrNoCases
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	threads = min(threads, len(suite.Cases))

	log.Info().Str("suite", suite.Name).Int("cases", len(suite.Cases)).
		Int("depth", opts.Depth).Int("threads", threads).Msg("bench-starting")

	Running.Add(1)
	defer Running.Add(-1)

	results := make([]Result, len(suite.Cases))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads + 1)

	g.Go(func() error {
		defer close(jobs)
		for i := range suite.Cases {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	tstart := time.Now()
	for t := 0; t < threads; t++ {
		g.Go(func() error {
			solver := negamax.NewSolver()
			for i := range jobs {
				results[i] = solveCase(solver, suite.Cases[i], opts.Depth)
				CasesSolved.Add(1)
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Info().Err(err).Str("suite", suite.Name).Msg("bench-interrupted")
		return nil, err
	}

	report := newReport(suite, opts.Depth, threads, tstart, results)
	log.Info().Str("suite", suite.Name).Int("passed", report.Passed).
		Int("failed", report.Failed).Dur("wall", report.Wall).Msg("bench-finished")
	return report, nil
}

func solveCase(solver *negamax.Solver, c fixture.Case, depth int) Result {
	consumed := solver.PlaySequence(c.Sequence)
	if consumed != len(c.Sequence) {
		log.Debug().Int("line", c.Line).Str("sequence", c.Sequence).
			Int("consumed", consumed).Msg("sequence-partially-replayed")
	}
	score := solver.Solve(depth)
	r := Result{
		Case:     c,
		Consumed: consumed,
		Score:    score,
		Nodes:    solver.NodeCount(),
		Elapsed:  solver.Elapsed(),
	}
	if !r.Passed() {
		log.Warn().Int("line", c.Line).Str("sequence", c.Sequence).
			Int("expected", c.Expected).Int("score", score).Msg("score-mismatch")
	}
	return r
}

// RunAll runs the suites one after another and stops at the first error.
func RunAll(ctx context.Context, suites []*fixture.Suite, opts Options) ([]*Report, error) {
	reports := make([]*Report, 0, len(suites))
	for _, s := range suites {
		r, err := Run(ctx, s, opts)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Mismatches returns the failed results of all reports.
func Mismatches(reports []*Report) []Result {
	return lo.FlatMap(reports, func(r *Report, _ int) []Result {
		return r.Mismatches()
	})
}
