package fixturegen

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/connectfour/bench"
	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/fixture"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func seed(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestRandomSequenceReplaysFully(t *testing.T) {
	is := is.New(t)
	g := NewGenerator(seed(1))
	for i := 0; i < 200; i++ {
		seq, ok := g.RandomSequence(12)
		if !ok {
			continue
		}
		is.Equal(len(seq), 12)
		p := board.New()
		is.Equal(p.PlaySequence(seq), 12)
		is.NoErr(fixture.ValidateSequence(seq))
	}
}

func TestGenerateDistinct(t *testing.T) {
	is := is.New(t)
	cases, err := Generate(context.Background(), Options{Count: 40, Moves: 8, Depth: 3, Seed: seed(2)})
	is.NoErr(err)
	is.Equal(len(cases), 40)
	keys := map[uint64]bool{}
	for _, c := range cases {
		p := board.New()
		p.PlaySequence(c.Sequence)
		is.True(!keys[p.Key()])
		keys[p.Key()] = true
		is.Equal(p.Moves(), 8)
	}
}

func TestGenerateReproducible(t *testing.T) {
	is := is.New(t)
	a, err := Generate(context.Background(), Options{Count: 10, Moves: 10, Depth: 2, Seed: seed(3)})
	is.NoErr(err)
	b, err := Generate(context.Background(), Options{Count: 10, Moves: 10, Depth: 2, Seed: seed(3)})
	is.NoErr(err)
	is.Equal(a, b)
}

func TestGenerateTooMany(t *testing.T) {
	is := is.New(t)
	// the empty board is the only position with no stones
	cases, err := Generate(context.Background(), Options{Count: 2, Moves: 0, Depth: 1, Seed: seed(4)})
	is.True(errors.Is(err, ErrTooFewPositions))
	is.Equal(len(cases), 1)
	is.Equal(cases[0].Sequence, "")
}

func TestGenerateBadMoves(t *testing.T) {
	is := is.New(t)
	_, err := Generate(context.Background(), Options{Count: 1, Moves: board.NbCoins})
	is.True(errors.Is(err, ErrBadMoveCount))
}

func TestGenerateCanceled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, Options{Count: 5, Moves: 4, Depth: 1})
	is.True(errors.Is(err, context.Canceled))
}

// Cases written out, parsed back and benched at the same depth all pass.
func TestGeneratedSuiteBenches(t *testing.T) {
	is := is.New(t)
	cases, err := Generate(context.Background(), Options{Count: 30, Moves: 14, Depth: 4, Seed: seed(5)})
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(fixture.Write(&buf, cases))
	suite, err := fixture.Parse(&buf, "generated", 0)
	is.NoErr(err)
	is.Equal(suite.Fingerprint, fixture.Fingerprint(cases))

	report, err := bench.Run(context.Background(), suite, bench.Options{Depth: 4, Threads: 3})
	is.NoErr(err)
	is.Equal(report.Failed, 0)
	is.Equal(report.Passed, 30)
	for _, r := range report.Results {
		is.Equal(r.Consumed, 14)
	}
}
