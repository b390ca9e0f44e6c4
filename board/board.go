package board

import (
	"errors"
	"fmt"
)

// Board geometry. Each column owns a lane of Height+1 bits in a uint64; the
// top bit of every lane is never set, so shifted four-in-a-row checks can't
// wrap from one column into the next.
//
//	  6 13 20 27 34 41 48
//	 ---------------------
//	| 5 12 19 26 33 40 47 |
//	| 4 11 18 25 32 39 46 |
//	| 3 10 17 24 31 38 45 |
//	| 2  9 16 23 30 37 44 |
//	| 1  8 15 22 29 36 43 |
//	| 0  7 14 21 28 35 42 |
//	 ---------------------
const (
	Width   = 7
	Height  = 6
	NbCoins = Width * Height

	laneBits = Height + 1
)

var (
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrColumnFull       = errors.New("column is full")
)

// bottomMask has the lowest bit of every lane set.
var bottomMask uint64

func init() {
	for c := 0; c < Width; c++ {
		bottomMask |= uint64(1) << (c * laneBits)
	}
}

// Position is a Connect-Four board. bitboard[p] holds the stones placed on
// plies with parity p, so bitboard[moves&1] always belongs to the side to
// move. heights holds the absolute bit index of the next free cell of each
// column.
//
// A Position is mutated in place and is not safe for concurrent use.
type Position struct {
	heights  [Width]uint8
	moves    uint8
	bitboard [2]uint64
}

// New returns an empty position.
func New() *Position {
	p := &Position{}
	p.Reset()
	return p
}

// Reset empties the board.
func (p *Position) Reset() {
	for c := 0; c < Width; c++ {
		p.heights[c] = uint8(c * laneBits)
	}
	p.moves = 0
	p.bitboard = [2]uint64{}
}

// CanPlay returns whether col has a free cell. col must be in [0, Width).
func (p *Position) CanPlay(col int) bool {
	return int(p.heights[col])-laneBits*col != Height
}

// IsWinningMove returns whether dropping a stone of the side to move into col
// makes four in a row. It does not modify the position. The result is
// meaningless unless CanPlay(col) holds.
func (p *Position) IsWinningMove(col int) bool {
	pos := p.bitboard[p.moves&1] ^ (uint64(1) << p.heights[col])
	return alignment(pos)
}

// alignment reports whether pos holds four consecutive bits along any of
// the four board directions.
func alignment(pos uint64) bool {
	// vertical
	m := pos & (pos >> 1)
	if m&(m>>2) != 0 {
		return true
	}
	// horizontal
	m = pos & (pos >> laneBits)
	if m&(m>>(2*laneBits)) != 0 {
		return true
	}
	// diagonal /
	m = pos & (pos >> (laneBits - 1))
	if m&(m>>(2*(laneBits-1))) != 0 {
		return true
	}
	// diagonal \
	m = pos & (pos >> (laneBits + 1))
	if m&(m>>(2*(laneBits+1))) != 0 {
		return true
	}
	return false
}

// Play drops a stone of the side to move into col. The caller must check
// CanPlay first.
func (p *Position) Play(col int) {
	p.bitboard[p.moves&1] |= uint64(1) << p.heights[col]
	p.heights[col]++
	p.moves++
	if checkInvariants {
		p.mustBeConsistent("play", col)
	}
}

// Unplay takes back the most recent Play, which must have been on col.
// Play and Unplay calls must nest like a stack.
func (p *Position) Unplay(col int) {
	p.moves--
	p.heights[col]--
	p.bitboard[p.moves&1] &^= uint64(1) << p.heights[col]
	if checkInvariants {
		p.mustBeConsistent("unplay", col)
	}
}

// TryPlay is Play with its preconditions checked.
func (p *Position) TryPlay(col int) error {
	if col < 0 || col >= Width {
		return fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	if !p.CanPlay(col) {
		return fmt.Errorf("%w: %d", ErrColumnFull, col)
	}
	p.Play(col)
	return nil
}

// WithMove plays col, runs fn and takes the move back on every exit path,
// including a panic inside fn.
func (p *Position) WithMove(col int, fn func() int) int {
	p.Play(col)
	defer p.Unplay(col)
	return fn()
}

// PlaySequence replays a string of 1-indexed column digits onto the
// position. It stops at the first character that names a column out of
// range, a full column, or a move that would win on the spot; that winning
// move is not played. It returns the number of characters applied, which is
// len(seq) when the whole sequence was consumed. The position is not reset
// first.
func (p *Position) PlaySequence(seq string) int {
	for i := 0; i < len(seq); i++ {
		col := int(seq[i]) - '1'
		if col < 0 || col >= Width || !p.CanPlay(col) || p.IsWinningMove(col) {
			return i
		}
		p.Play(col)
	}
	return len(seq)
}

// Moves returns how many stones have been played.
func (p *Position) Moves() int {
	return int(p.moves)
}

// Height returns how many stones are in col.
func (p *Position) Height(col int) int {
	return int(p.heights[col]) - laneBits*col
}

// mask returns every occupied cell.
func (p *Position) mask() uint64 {
	return p.bitboard[0] | p.bitboard[1]
}

// Key is a unique encoding of the position: the side to move's stones plus
// the occupancy mask plus the bottom row. Adding the mask and bottom row
// sets the first free bit of every column, so two different positions never
// share a key.
func (p *Position) Key() uint64 {
	return p.bitboard[p.moves&1] + p.mask() + bottomMask
}
