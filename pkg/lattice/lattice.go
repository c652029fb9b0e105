// Package lattice builds the segmentation lattice for one conversion request.
//
// Every offset of the requested span records the dictionary words that start
// there. Words whose reading runs past the typed input are kept as prediction
// nodes, and learned follow-on words hang off the span end as zero-width
// continuation nodes.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/bastiangx/henkan/pkg/dictionary"
)

// Unreachable marks offsets from which the span end cannot be reached.
const Unreachable = math.MaxInt

var (
	// ErrInvalidSpan is returned for empty or out of range spans.
	ErrInvalidSpan = errors.New("invalid span")
	// ErrInputTooLong is returned when the span exceeds Limits.MaxInput.
	ErrInputTooLong = errors.New("input too long")
)

// Kind tells how a node relates to the typed input.
type Kind uint8

const (
	// NodeComplete consumes exactly its reading from the input.
	NodeComplete Kind = iota
	// NodePrediction consumes the rest of the input but its reading is longer.
	NodePrediction
	// NodeContinuation is a learned follow-on word that consumes nothing.
	NodeContinuation
)

func (k Kind) String() string {
	switch k {
	case NodeComplete:
		return "complete"
	case NodePrediction:
		return "prediction"
	case NodeContinuation:
		return "continuation"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Span is a half open range of rune offsets.
type Span struct {
	Start int
	End   int
}

// Len returns End - Start.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Node is one dictionary hit placed in the lattice.
type Node struct {
	ID    int
	Start int
	End   int
	Entry *dictionary.Entry
	Kind  Kind
	// Bias is added to the entry cost (penalties, context bonus).
	Bias int
}

// Cost is the word cost used by the search.
func (n *Node) Cost() int {
	return n.Entry.Cost + n.Bias
}

// Incomplete reports whether the node's reading was not fully typed.
func (n *Node) Incomplete() bool {
	return n.Kind != NodeComplete
}

// InputLen is the number of input runes the node consumes.
func (n *Node) InputLen() int {
	return n.End - n.Start
}

// Lattice is the result of one Build call. It is immutable once built.
type Lattice struct {
	Input []rune
	Span  Span

	starts        [][]*Node
	continuations map[string][]*Node
	attempted     []bool
	best          []int
	minConn       int
	lex           Lexicon
	size          int
}

// At returns the nodes starting at offset.
func (l *Lattice) At(offset int) []*Node {
	if offset < l.Span.Start || offset >= l.Span.End {
		return nil
	}
	return l.starts[offset-l.Span.Start]
}

// Continuations returns the zero-width nodes that may follow a word with the given key.
func (l *Lattice) Continuations(key string) []*Node {
	return l.continuations[key]
}

// Attempted reports whether a lookup ran at offset.
func (l *Lattice) Attempted(offset int) bool {
	if offset < l.Span.Start || offset >= l.Span.End {
		return false
	}
	return l.attempted[offset-l.Span.Start]
}

// Covered reports whether at least one path spans the whole range.
func (l *Lattice) Covered() bool {
	return l.best[0] != Unreachable
}

// Heuristic is a lower bound on the cost still needed from offset to a
// finished path, including the connection into the next word.
func (l *Lattice) Heuristic(offset int) int {
	if offset < l.Span.Start || offset > l.Span.End {
		return Unreachable
	}
	return l.best[offset-l.Span.Start]
}

// Connection returns the connection cost between two adjacent nodes.
func (l *Lattice) Connection(prev, next *Node) int {
	if prev == nil {
		return 0
	}
	return l.lex.Connection(prev.Entry.RightAttr, next.Entry.LeftAttr)
}

// Size returns the number of nodes, continuations included.
func (l *Lattice) Size() int {
	return l.size
}

// Text returns the input runes in [start, end) as a string.
func (l *Lattice) Text(start, end int) string {
	return string(l.Input[start:end])
}
