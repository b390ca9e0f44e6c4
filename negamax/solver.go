package negamax

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/board"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β) is
    if depth = 0 or node is a terminal node then
        return the heuristic value of node

    value := −∞
    foreach child in orderMoves(node) do
        value := max(value, −negamax(child, depth − 1, −β, −α))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
**/

// InitialBound is wider than any reachable score.
const InitialBound = board.NbCoins / 2

var (
	ErrNoMoves = errors.New("no playable column")
)

// columnOrder visits the centre columns first; they take part in the most
// alignments, so they tend to produce early cutoffs.
var columnOrder = [board.Width]int{3, 2, 4, 1, 5, 0, 6}

// maxScoreByPly[m] is the best score the side to move can get once m stones
// have been played: winning with its next stone.
var maxScoreByPly [board.NbCoins + 1]int

func init() {
	for m := range maxScoreByPly {
		maxScoreByPly[m] = (board.NbCoins + 1 - m) / 2
	}
}

// MaxScore returns the best possible score for the side to move after
// moves stones have been played.
func MaxScore(moves int) int {
	return maxScoreByPly[moves]
}

// MoveScore is the value of dropping a stone into Column.
type MoveScore struct {
	Column int
	Score  int
}

// Solver evaluates Connect-Four positions with a depth-limited alpha-beta
// negamax. Scores are from the point of view of the side to move: positive
// means it wins, and the faster the win the larger the score. Positions not
// decided within the search depth score 0, the same as a draw.
//
// A Solver owns its Position and must not be shared between goroutines.
type Solver struct {
	pos       board.Position
	nodeCount uint64
	elapsed   time.Duration
}

func NewSolver() *Solver {
	s := &Solver{}
	s.pos.Reset()
	return s
}

// PlaySequence resets the board and replays seq onto it. See
// board.Position.PlaySequence for how the sequence is consumed.
func (s *Solver) PlaySequence(seq string) int {
	s.pos.Reset()
	return s.pos.PlaySequence(seq)
}

// Position gives read access to the solver's board. Mutating it while a
// search runs corrupts the search.
func (s *Solver) Position() *board.Position {
	return &s.pos
}

// Solve searches the current position to maxDepth plies and returns its
// score.
func (s *Solver) Solve(maxDepth int) int {
	s.nodeCount = 0
	tstart := time.Now()
	score := s.negamax(-InitialBound, InitialBound, maxDepth)
	s.elapsed = time.Since(tstart)
	log.Debug().
		Int("depth", maxDepth).
		Int("moves", s.pos.Moves()).
		Int("score", score).
		Uint64("nodes", s.nodeCount).
		Dur("elapsed", s.elapsed).
		Msg("solve-returning")
	return score
}

func (s *Solver) negamax(α, β, depth int) int {
	s.nodeCount++

	moves := s.pos.Moves()
	if depth <= 0 || moves == board.NbCoins {
		return 0
	}

	for col := 0; col < board.Width; col++ {
		if s.pos.CanPlay(col) && s.pos.IsWinningMove(col) {
			return maxScoreByPly[moves]
		}
	}

	// No move can score more than winning with the next stone.
	if bound := maxScoreByPly[moves]; β > bound {
		β = bound
		if α >= β {
			return β
		}
	}

	for _, col := range columnOrder {
		if !s.pos.CanPlay(col) {
			continue
		}
		s.pos.Play(col)
		score := -s.negamax(-β, -α, depth-1)
		s.pos.Unplay(col)
		if score >= β {
			return score
		}
		if score > α {
			α = score
		}
	}
	return α
}

// ScoreMoves scores every playable column of the current position to the
// given depth, counting the move itself as the first ply. The result is in
// column order.
func (s *Solver) ScoreMoves(depth int) []MoveScore {
	s.nodeCount = 0
	tstart := time.Now()
	defer func() { s.elapsed = time.Since(tstart) }()

	moves := s.pos.Moves()
	childDepth := max(depth-1, 0)
	scores := make([]MoveScore, 0, board.Width)
	for col := 0; col < board.Width; col++ {
		if !s.pos.CanPlay(col) {
			continue
		}
		var score int
		if s.pos.IsWinningMove(col) {
			score = maxScoreByPly[moves]
		} else {
			score = s.pos.WithMove(col, func() int {
				return -s.negamax(-InitialBound, InitialBound, childDepth)
			})
		}
		scores = append(scores, MoveScore{Column: col, Score: score})
	}
	return scores
}

// BestMove returns the highest scoring column. Ties go to the column closest
// to the centre.
func (s *Solver) BestMove(depth int) (int, int, error) {
	scores := s.ScoreMoves(depth)
	if len(scores) == 0 {
		return 0, 0, ErrNoMoves
	}
	byCol := [board.Width]*MoveScore{}
	for i := range scores {
		byCol[scores[i].Column] = &scores[i]
	}
	var best *MoveScore
	for _, col := range columnOrder {
		ms := byCol[col]
		if ms != nil && (best == nil || ms.Score > best.Score) {
			best = ms
		}
	}
	log.Debug().Int("column", best.Column).Int("score", best.Score).
		Uint64("nodes", s.nodeCount).Msg("best-move")
	return best.Column, best.Score, nil
}

// NodeCount is the number of positions visited by the last search.
func (s *Solver) NodeCount() uint64 {
	return s.nodeCount
}

// Elapsed is the wall time of the last search.
func (s *Solver) Elapsed() time.Duration {
	return s.elapsed
}

func (s *Solver) ElapsedTimeMs() int64 {
	return s.elapsed.Milliseconds()
}
