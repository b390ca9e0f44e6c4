package board

import (
	"fmt"
	"math/bits"
)

// CheckInvariants verifies the internal consistency of the position: the
// two parity words are disjoint, every lane's guard bit is clear, every
// column height is in range and matches its occupied cells, and the number
// of stones equals the move counter.
func (p *Position) CheckInvariants() error {
	if p.bitboard[0]&p.bitboard[1] != 0 {
		return fmt.Errorf("bitboards overlap: %#x", p.bitboard[0]&p.bitboard[1])
	}
	if n := bits.OnesCount64(p.mask()); n != int(p.moves) {
		return fmt.Errorf("%d stones on board but %d moves played", n, p.moves)
	}
	if int(p.moves) > NbCoins {
		return fmt.Errorf("move counter %d exceeds %d", p.moves, NbCoins)
	}
	mask := p.mask()
	for c := 0; c < Width; c++ {
		h := p.Height(c)
		if h < 0 || h > Height {
			return fmt.Errorf("column %d height %d out of range", c, h)
		}
		lane := (mask >> (c * laneBits)) & (1<<laneBits - 1)
		if lane != 1<<h-1 {
			return fmt.Errorf("column %d has cells %07b but height %d", c, lane, h)
		}
	}
	return nil
}

func (p *Position) mustBeConsistent(op string, col int) {
	if err := p.CheckInvariants(); err != nil {
		panic(fmt.Sprintf("%s(%d) left an inconsistent position: %v", op, col, err))
	}
}
