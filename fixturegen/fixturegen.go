// Package fixturegen creates fixture cases from random games. Each position
// is reached without passing through a win, so replaying its sequence
// consumes every move.
package fixturegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/negamax"
)

// maxAttemptsPerCase bounds the work spent on duplicate or dead-end games.
const maxAttemptsPerCase = 50

var (
	ErrTooFewPositions = errors.New("could not generate enough distinct positions")
	ErrBadMoveCount    = errors.New("move count out of range")
)

var columns = lo.Range(board.Width)

type Options struct {
	Count int
	// Moves is the number of stones in each generated position.
	Moves int
	// Depth is the search depth the expected scores are computed at.
	Depth int
	// Seed makes the output reproducible. A nil seed uses the system
	// random source.
	Seed []byte
}

type Generator struct {
	rng    *frand.RNG
	solver *negamax.Solver
	seen   map[uint64]bool
}

func NewGenerator(seed []byte) *Generator {
	var rng *frand.RNG
	if seed == nil {
		rng = frand.New()
	} else {
		key := make([]byte, 32)
		copy(key, seed)
		rng = frand.NewCustom(key, 1024, 12)
	}
	return &Generator{
		rng:    rng,
		solver: negamax.NewSolver(),
		seen:   make(map[uint64]bool),
	}
}

// RandomSequence plays up to moves random non-winning moves from the empty
// board and returns them as a column digit sequence. ok is false when the
// game got stuck before reaching the requested length.
func (g *Generator) RandomSequence(moves int) (string, bool) {
	p := board.New()
	var sb strings.Builder
	for i := 0; i < moves; i++ {
		legal := lo.Filter(columns, func(c int, _ int) bool {
			return p.CanPlay(c) && !p.IsWinningMove(c)
		})
		if len(legal) == 0 {
			return sb.String(), false
		}
		c := legal[g.rng.Intn(len(legal))]
		p.Play(c)
		sb.WriteByte(byte('1' + c))
	}
	return sb.String(), true
}

// Next returns a case for a position not returned before by this generator.
func (g *Generator) Next(moves, depth int) (fixture.Case, bool) {
	for attempt := 0; attempt < maxAttemptsPerCase; attempt++ {
		seq, ok := g.RandomSequence(moves)
		if !ok {
			continue
		}
		g.solver.PlaySequence(seq)
		key := g.solver.Position().Key()
		if g.seen[key] {
			continue
		}
		g.seen[key] = true
		score := g.solver.Solve(depth)
		return fixture.Case{Sequence: seq, Expected: score, Line: len(g.seen)}, true
	}
	return fixture.Case{}, false
}

// Generate makes opts.Count distinct cases.
func Generate(ctx context.Context, opts Options) ([]fixture.Case, error) {
	if opts.Moves < 0 || opts.Moves >= board.NbCoins {
		return nil, fmt.Errorf("%w: %d", ErrBadMoveCount, opts.Moves)
	}
	g := NewGenerator(opts.Seed)
	cases := make([]fixture.Case, 0, opts.Count)
	for len(cases) < opts.Count {
		if err := ctx.Err(); err != nil {
			return cases, err
		}
		c, ok := g.Next(opts.Moves, opts.Depth)
		if !ok {
			log.Warn().Int("wanted", opts.Count).Int("have", len(cases)).
				Int("moves", opts.Moves).Msg("generator-exhausted")
			return cases, ErrTooFewPositions
		}
		cases = append(cases, c)
		if len(cases)%100 == 0 {
			log.Debug().Int("cases", len(cases)).Msg("generated")
		}
	}
	return cases, nil
}
