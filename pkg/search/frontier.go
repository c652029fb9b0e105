package search

import (
	"github.com/bastiangx/henkan/pkg/lattice"
)

// state is a partial path. States share their prefix through prev.
type state struct {
	node  *lattice.Node
	prev  *state
	cost  int
	words int
	pos   int
}

func (s *state) nodes() []*lattice.Node {
	out := make([]*lattice.Node, s.words)
	for cur, i := s, s.words-1; cur != nil && cur.node != nil; cur, i = cur.prev, i-1 {
		out[i] = cur.node
	}
	return out
}

type item struct {
	st *state
	// f is cost plus the heuristic, or the final cost for goals.
	f    int
	seq  int
	goal bool
}

// frontier is a min-heap on (f, words, seq).
type frontier []*item

func (h frontier) Len() int { return len(h) }

func (h frontier) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.st.words != b.st.words {
		return a.st.words < b.st.words
	}
	return a.seq < b.seq
}

func (h frontier) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontier) Push(x any) {
	*h = append(*h, x.(*item))
}

func (h *frontier) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
