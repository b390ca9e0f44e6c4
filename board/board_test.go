package board

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestCanPlay(t *testing.T) {
	is := is.New(t)
	p := New()
	for h := 0; h < Height; h++ {
		for c := 0; c < Width; c++ {
			p.heights[c] = uint8(c*laneBits + h)
			is.True(p.CanPlay(c))
		}
	}
	for c := 0; c < Width; c++ {
		p.heights[c] = uint8(c*laneBits + Height)
		is.True(!p.CanPlay(c))
	}
}

func TestPlay(t *testing.T) {
	is := is.New(t)
	p := New()
	p.Play(0)
	is.Equal(p.bitboard[0], uint64(0b1))
	p.Play(0)
	is.Equal(p.bitboard[1], uint64(0b10))
	p.Play(0)
	is.Equal(p.bitboard[0], uint64(0b101))
	p.Play(0)
	is.Equal(p.bitboard[1], uint64(0b1010))
	is.Equal(p.Moves(), 4)
	is.Equal(p.Height(0), 4)

	p = New()
	p.Play(1)
	is.Equal(p.bitboard[0], uint64(0b10000000))
	p.Play(1)
	is.Equal(p.bitboard[1], uint64(0b100000000))
}

func TestUnplay(t *testing.T) {
	is := is.New(t)
	p := New()
	p.Play(0)
	is.Equal(p.bitboard[0], uint64(0b1))
	p.Unplay(0)
	is.Equal(p.bitboard[0], uint64(0))
	p.Play(1)
	is.Equal(p.bitboard[0], uint64(0b10000000))
	p.Unplay(1)
	is.Equal(p.bitboard[0], uint64(0))

	for i := 0; i < 3; i++ {
		p.Play(0)
	}
	is.Equal(p.bitboard[0], uint64(0b101))
	is.Equal(p.bitboard[1], uint64(0b10))
	p.Unplay(0)
	is.Equal(p.bitboard[0], uint64(0b1))
	is.Equal(p.bitboard[1], uint64(0b10))
	p.Unplay(0)
	is.Equal(p.bitboard[0], uint64(0b1))
	is.Equal(p.bitboard[1], uint64(0))
	is.Equal(p.Moves(), 1)
}

func TestPlayUnplayRestores(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("4455326671")
	is.NoErr(p.CheckInvariants())
	for c := 0; c < Width; c++ {
		if !p.CanPlay(c) {
			continue
		}
		before := *p
		p.Play(c)
		is.NoErr(p.CheckInvariants())
		p.Unplay(c)
		is.Equal(*p, before)
	}
}

func TestIsWinningMoveHorizontal(t *testing.T) {
	is := is.New(t)
	p := New()
	// .......
	// .......
	// ..2....
	// ..2....
	// ..2....
	// .111...
	l := p.PlaySequence("334323")
	is.Equal(l, 6)
	is.Equal(p.String(), "......./......./..2..../..2..../..2..../.111...")

	is.True(p.IsWinningMove(0))
	is.True(p.IsWinningMove(4))
	is.True(!p.IsWinningMove(5))
	is.True(!p.IsWinningMove(6))
}

func TestIsWinningMoveDiagonal(t *testing.T) {
	is := is.New(t)
	p := New()
	// .......
	// .......
	// ....1..
	// ...12..
	// ..112..
	// ..2212.
	l := p.PlaySequence("5443354556")
	is.Equal(l, 10)
	is.Equal(p.String(), "......./......./....1../...12../..112../..2212.")

	is.True(p.IsWinningMove(1))
	is.Equal(p.Moves(), 10)
}

func TestIsWinningMoveVertical(t *testing.T) {
	is := is.New(t)
	p := New()
	is.Equal(p.PlaySequence("121212"), 6)
	is.True(p.IsWinningMove(0))
	is.True(!p.IsWinningMove(1))
}

func TestIsWinningMoveDoesNotMutate(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("334323")
	before := *p
	p.IsWinningMove(0)
	is.Equal(*p, before)
}

func TestPlaySequenceStopsBeforeWin(t *testing.T) {
	is := is.New(t)
	p := New()
	// The seventh move would complete the bottom row.
	is.Equal(p.PlaySequence("3343231"), 6)
	is.Equal(p.Moves(), 6)
	is.True(!alignment(p.bitboard[0]))
}

func TestPlaySequenceStopsOnBadColumn(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		seq      string
		consumed int
	}{
		{"", 0},
		{"4", 1},
		{"480", 1},
		{"44x", 2},
		{"0", 0},
		// column 1 is full after six stones
		{"1111111", 6},
	}
	for _, tc := range cases {
		p := New()
		is.Equal(p.PlaySequence(tc.seq), tc.consumed)
		is.NoErr(p.CheckInvariants())
	}
}

func TestPlaySequenceDoesNotReset(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("44")
	is.Equal(p.PlaySequence("44"), 2)
	is.Equal(p.Height(3), 4)
}

func TestTryPlay(t *testing.T) {
	is := is.New(t)
	p := New()
	is.True(errors.Is(p.TryPlay(-1), ErrColumnOutOfRange))
	is.True(errors.Is(p.TryPlay(Width), ErrColumnOutOfRange))
	for i := 0; i < Height; i++ {
		is.NoErr(p.TryPlay(2))
	}
	is.True(errors.Is(p.TryPlay(2), ErrColumnFull))
	is.Equal(p.Moves(), Height)
}

func TestWithMove(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("44")
	before := *p
	got := p.WithMove(3, func() int {
		is.Equal(p.Height(3), 3)
		return p.Moves()
	})
	is.Equal(got, 3)
	is.Equal(*p, before)

	func() {
		defer func() { recover() }()
		p.WithMove(2, func() int { panic("boom") })
	}()
	is.Equal(*p, before)
}

func TestKey(t *testing.T) {
	is := is.New(t)
	a, b := New(), New()
	a.PlaySequence("1324")
	b.PlaySequence("2413")
	is.Equal(a.Key(), b.Key())

	a, b = New(), New()
	a.PlaySequence("12")
	b.PlaySequence("21")
	is.True(a.Key() != b.Key())
	is.True(New().Key() != a.Key())
}

func TestCheckInvariantsCatchesCorruption(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("4455")
	p.bitboard[1] |= p.bitboard[0]
	is.True(p.CheckInvariants() != nil)

	p = New()
	p.PlaySequence("4455")
	p.moves++
	is.True(p.CheckInvariants() != nil)
}

func TestToDisplayText(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("44")
	expected := " 1 2 3 4 5 6 7\n" +
		" -------------\n" +
		"|. . . . . . .|\n" +
		"|. . . . . . .|\n" +
		"|. . . . . . .|\n" +
		"|. . . . . . .|\n" +
		"|. . . 2 . . .|\n" +
		"|. . . 1 . . .|\n" +
		" -------------\n" +
		"player 1 to move\n"
	is.Equal(p.ToDisplayText(), expected)
}

func BenchmarkIsWinningMove(b *testing.B) {
	p := New()
	p.PlaySequence("5443354556")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for c := 0; c < Width; c++ {
			p.IsWinningMove(c)
		}
	}
}
