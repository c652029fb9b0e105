// Package search enumerates lattice paths cheapest first.
package search

import (
	"fmt"
	"strings"

	"github.com/bastiangx/henkan/pkg/lattice"
)

// MaxWords is the most nodes a path may hold.
const MaxWords = 10

// Incomplete tells whether the tail of a path was only partially typed.
type Incomplete uint8

const (
	Complete Incomplete = iota
	// IncompleteLastWord: the last word is a prediction or a learned follow-on.
	IncompleteLastWord
	// IncompleteSecondToLastWord: a predicted word followed by a learned follow-on.
	IncompleteSecondToLastWord
)

func (i Incomplete) String() string {
	switch i {
	case Complete:
		return "complete"
	case IncompleteLastWord:
		return "incomplete-last"
	case IncompleteSecondToLastWord:
		return "incomplete-second-to-last"
	}
	return fmt.Sprintf("Incomplete(%d)", uint8(i))
}

// Path is one full segmentation of the span.
type Path struct {
	Nodes []*lattice.Node
	// Cost is the sum of node costs and connection costs.
	Cost int
}

// Surface joins the surfaces of every node.
func (p Path) Surface() string {
	var b strings.Builder
	for _, n := range p.Nodes {
		b.WriteString(n.Entry.Surface)
	}
	return b.String()
}

// Reading joins the readings of every node.
func (p Path) Reading() string {
	var b strings.Builder
	for _, n := range p.Nodes {
		b.WriteString(n.Entry.Reading)
	}
	return b.String()
}

// Incomplete classifies the tail of the path.
func (p Path) Incomplete() Incomplete {
	n := len(p.Nodes)
	if n == 0 {
		return Complete
	}
	last := p.Nodes[n-1]
	if last.Kind == lattice.NodeContinuation && n > 1 && p.Nodes[n-2].Kind == lattice.NodePrediction {
		return IncompleteSecondToLastWord
	}
	if last.Incomplete() {
		return IncompleteLastWord
	}
	return Complete
}
