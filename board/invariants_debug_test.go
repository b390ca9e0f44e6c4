//go:build c4debug

package board

import (
	"fmt"
	"testing"

	"github.com/matryer/is"
)

func TestUnpairedUnplayPanics(t *testing.T) {
	is := is.New(t)
	p := New()
	p.PlaySequence("44")

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		p.Unplay(0)
	}()
	is.Equal(fmt.Sprint(recovered),
		"unplay(0) left an inconsistent position: 2 stones on board but 1 moves played")
}

func TestPairedPlayUnplayDoesNotPanic(t *testing.T) {
	is := is.New(t)
	p := New()
	cols := []int{3, 3, 4, 4, 2, 1, 5, 5, 6, 0}
	for _, c := range cols {
		p.Play(c)
	}
	for i := len(cols) - 1; i >= 0; i-- {
		p.Unplay(cols[i])
	}
	is.Equal(*p, *New())
}
