package search

import (
	"container/heap"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/pkg/lattice"
)

// Options bound one enumeration.
type Options struct {
	// MaxWords caps path length. Values outside (0, MaxWords] mean MaxWords.
	MaxWords int
	// MaxExpansions stops the search after that many pops. 0 means no limit.
	MaxExpansions int
}

// Iterator yields complete paths in non-decreasing cost. It cannot be rewound.
type Iterator struct {
	lat        *lattice.Lattice
	open       frontier
	seq        int
	maxWords   int
	maxExpand  int
	expansions int
	done       bool
}

// New seeds an iterator over l.
func New(l *lattice.Lattice, opts Options) *Iterator {
	it := &Iterator{lat: l, maxWords: opts.MaxWords, maxExpand: opts.MaxExpansions}
	if it.maxWords <= 0 || it.maxWords > MaxWords {
		it.maxWords = MaxWords
	}
	if !l.Covered() {
		it.done = true
		return it
	}
	root := &state{pos: l.Span.Start}
	it.push(root, l.Heuristic(root.pos), false)
	return it
}

func (it *Iterator) push(st *state, f int, goal bool) {
	heap.Push(&it.open, &item{st: st, f: f, seq: it.seq, goal: goal})
	it.seq++
}

// Next returns the next cheapest path, or false once none remain.
func (it *Iterator) Next() (Path, bool) {
	end := it.lat.Span.End
	for !it.done && it.open.Len() > 0 {
		cur := heap.Pop(&it.open).(*item)
		if cur.goal {
			return Path{Nodes: cur.st.nodes(), Cost: cur.st.cost}, true
		}
		it.expansions++
		if it.maxExpand > 0 && it.expansions > it.maxExpand {
			log.Debugf("search stopped after %d expansions", it.maxExpand)
			it.done = true
			break
		}

		st := cur.st
		if st.pos == end {
			it.push(st, st.cost, true)
			if st.node.Kind != lattice.NodeContinuation && st.words < it.maxWords {
				for _, c := range it.lat.Continuations(st.node.Entry.Key()) {
					next := it.extend(st, c)
					it.push(next, next.cost, true)
				}
			}
			continue
		}
		if st.words >= it.maxWords {
			continue
		}
		for _, n := range it.lat.At(st.pos) {
			h := it.lat.Heuristic(n.End)
			if h == lattice.Unreachable {
				continue
			}
			next := it.extend(st, n)
			it.push(next, next.cost+h, false)
		}
	}
	it.done = true
	return Path{}, false
}

func (it *Iterator) extend(st *state, n *lattice.Node) *state {
	return &state{
		node:  n,
		prev:  st,
		cost:  st.cost + it.lat.Connection(st.node, n) + n.Cost(),
		words: st.words + 1,
		pos:   n.End,
	}
}

// Expansions returns how many partial paths were expanded so far.
func (it *Iterator) Expansions() int {
	return it.expansions
}
