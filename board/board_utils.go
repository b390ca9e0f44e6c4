package board

import (
	"strings"
)

// ToDisplayText draws the board top row first. The first player's stones are
// '1', the second player's are '2'.
func (p *Position) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString(" 1 2 3 4 5 6 7\n")
	sb.WriteString(" " + strings.Repeat("-", Width*2-1) + "\n")
	for r := Height - 1; r >= 0; r-- {
		sb.WriteString("|")
		for c := 0; c < Width; c++ {
			if c > 0 {
				sb.WriteString(" ")
			}
			sb.WriteByte(p.cellChar(c, r))
		}
		sb.WriteString("|\n")
	}
	sb.WriteString(" " + strings.Repeat("-", Width*2-1) + "\n")
	if p.moves == NbCoins {
		sb.WriteString("board full\n")
	} else {
		sb.WriteString("player ")
		sb.WriteByte('1' + byte(p.moves&1))
		sb.WriteString(" to move\n")
	}
	return sb.String()
}

func (p *Position) cellChar(col, row int) byte {
	bit := uint64(1) << (col*laneBits + row)
	switch {
	case p.bitboard[0]&bit != 0:
		return '1'
	case p.bitboard[1]&bit != 0:
		return '2'
	}
	return '.'
}

// String renders the rows compactly, top row first, separated by '/'.
func (p *Position) String() string {
	rows := make([]string, 0, Height)
	for r := Height - 1; r >= 0; r-- {
		var row strings.Builder
		for c := 0; c < Width; c++ {
			row.WriteByte(p.cellChar(c, r))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "/")
}
