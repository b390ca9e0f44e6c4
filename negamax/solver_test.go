package negamax

import (
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/domino14/connectfour/board"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

// randomPosition plays up to n random moves, never one that wins on the
// spot, so the result is a position the sequence replay could reach.
func randomPosition(rng *frand.RNG, p *board.Position, n int) {
	for i := 0; i < n; i++ {
		var legal []int
		for c := 0; c < board.Width; c++ {
			if p.CanPlay(c) && !p.IsWinningMove(c) {
				legal = append(legal, c)
			}
		}
		if len(legal) == 0 {
			return
		}
		p.Play(legal[rng.Intn(len(legal))])
	}
}

func seededRNG() *frand.RNG {
	return frand.NewCustom(make([]byte, 32), 1024, 12)
}

// minimax is the same search without pruning or window narrowing.
func minimax(p *board.Position, depth int) int {
	moves := p.Moves()
	if depth == 0 || moves == board.NbCoins {
		return 0
	}
	for c := 0; c < board.Width; c++ {
		if p.CanPlay(c) && p.IsWinningMove(c) {
			return MaxScore(moves)
		}
	}
	best := -InitialBound
	for c := 0; c < board.Width; c++ {
		if !p.CanPlay(c) {
			continue
		}
		p.Play(c)
		v := -minimax(p, depth-1)
		p.Unplay(c)
		if v > best {
			best = v
		}
	}
	return best
}

func TestMaxScoreTable(t *testing.T) {
	is := is.New(t)
	is.Equal(MaxScore(0), 21)
	is.Equal(MaxScore(1), 21)
	is.Equal(MaxScore(2), 20)
	is.Equal(MaxScore(6), 18)
	is.Equal(MaxScore(41), 1)
	is.Equal(MaxScore(42), 0)
}

func TestSolveKnownPositions(t *testing.T) {
	is := is.New(t)
	type tc struct {
		seq      string
		consumed int
		depth    int
		score    int
	}
	cases := []tc{
		// side to move completes the bottom row
		{"334323", 6, 25, 18},
		{"334323", 6, 1, 18},
		// diagonal win available
		{"5443354556", 10, 25, 16},
		// the winning seventh move is not replayed
		{"3343231", 6, 25, 18},
		// the opponent has two threats on the bottom row
		{"22334", 5, 25, -18},
		{"22334", 5, 2, -18},
		{"22334", 5, 1, 0},
		// the side to move builds an open three and wins two plies later
		{"4433", 4, 3, 18},
		{"4433", 4, 2, 0},
		{"", 0, 0, 0},
	}
	s := NewSolver()
	for _, c := range cases {
		is.Equal(s.PlaySequence(c.seq), c.consumed)
		is.Equal(s.Solve(c.depth), c.score)
	}
}

func TestSolveDepthZero(t *testing.T) {
	is := is.New(t)
	rng := seededRNG()
	s := NewSolver()
	for i := 0; i < 50; i++ {
		s.Position().Reset()
		randomPosition(rng, s.Position(), rng.Intn(board.NbCoins))
		is.Equal(s.Solve(0), 0)
		is.Equal(s.NodeCount(), uint64(1))
	}
}

func TestSolveFullBoard(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	for c := 0; c < board.Width; c++ {
		for r := 0; r < board.Height; r++ {
			is.NoErr(s.Position().TryPlay(c))
		}
	}
	is.Equal(s.Solve(25), 0)
	is.Equal(s.NodeCount(), uint64(1))
	_, _, err := s.BestMove(25)
	is.Equal(err, ErrNoMoves)
}

func TestSolveDeterministic(t *testing.T) {
	is := is.New(t)
	a, b := NewSolver(), NewSolver()
	a.PlaySequence("4453526")
	b.PlaySequence("4453526")
	va := a.Solve(7)
	vb := b.Solve(7)
	is.Equal(va, vb)
	is.Equal(a.NodeCount(), b.NodeCount())
	is.True(a.NodeCount() > 1)

	// and again on the same solver
	a.PlaySequence("4453526")
	is.Equal(a.Solve(7), va)
	is.Equal(a.NodeCount(), b.NodeCount())
}

func TestElapsedTimeMs(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	s.PlaySequence("4453526")
	s.Solve(6)
	is.True(s.Elapsed() > 0)
	is.Equal(s.ElapsedTimeMs(), s.Elapsed().Milliseconds())
}

func TestSolveRestoresPosition(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	s.PlaySequence("4453526")
	before := *s.Position()
	s.Solve(6)
	is.Equal(*s.Position(), before)
	s.ScoreMoves(5)
	is.Equal(*s.Position(), before)
}

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	is := is.New(t)
	rng := seededRNG()
	s := NewSolver()
	for i := 0; i < 60; i++ {
		s.Position().Reset()
		randomPosition(rng, s.Position(), 6+rng.Intn(30))
		depth := 1 + rng.Intn(4)
		ref := *s.Position()
		expected := minimax(&ref, depth)
		got := s.Solve(depth)
		is.Equal(got, expected)
		is.True(got <= MaxScore(s.Position().Moves()))
		is.True(got >= -MaxScore(s.Position().Moves()))
	}
}

func TestFailHighWithoutSearch(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	s.PlaySequence("44")
	// Two stones in: nobody can score more than 20, so a window starting
	// at 20 is cut off immediately.
	v := s.negamax(20, 21, 3)
	is.Equal(v, 20)
	is.Equal(s.nodeCount, uint64(1))
}

func TestScoreMoves(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	s.PlaySequence("334323")
	scores := s.ScoreMoves(1)
	is.Equal(len(scores), board.Width)
	for _, ms := range scores {
		if ms.Column == 0 || ms.Column == 4 {
			is.Equal(ms.Score, 18)
		} else {
			is.Equal(ms.Score, 0)
		}
	}
	col, score, err := s.BestMove(1)
	is.NoErr(err)
	is.Equal(col, 4)
	is.Equal(score, 18)
}

func TestBestMovePrefersCentreOnTies(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	s.PlaySequence("22334")
	col, score, err := s.BestMove(2)
	is.NoErr(err)
	is.Equal(col, 3)
	is.Equal(score, -18)
}

func BenchmarkSolveDepth8(b *testing.B) {
	s := NewSolver()
	for i := 0; i < b.N; i++ {
		s.PlaySequence("4453526")
		s.Solve(8)
	}
}
