package lattice

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/dictionary"
)

// Lexicon is the dictionary view the builder queries.
type Lexicon interface {
	Lookup(query string) []dictionary.Match
	Predict(prefix string, limit int) []dictionary.Match
	Successors(key string, limit int) []*dictionary.Entry
	Connection(prevRight, nextLeft uint16) int
	MinConnection() int
}

// Options select the lattice shape for one request.
type Options struct {
	NoPrediction bool
	SingleWord   bool
}

// Limits bound lattice breadth. Zero values fall back to DefaultLimits.
type Limits struct {
	MaxInput            int `toml:"max_input"`
	MaxNodesPerOffset   int `toml:"max_nodes_per_offset"`
	MaxPredictions      int `toml:"max_predictions"`
	MaxContinuations    int `toml:"max_continuations"`
	PredictionPenalty   int `toml:"prediction_penalty"`
	ContinuationPenalty int `toml:"continuation_penalty"`
	ContextBonus        int `toml:"context_bonus"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxInput:            256,
		MaxNodesPerOffset:   64,
		MaxPredictions:      16,
		MaxContinuations:    8,
		PredictionPenalty:   1500,
		ContinuationPenalty: 2500,
		ContextBonus:        1000,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxInput <= 0 {
		l.MaxInput = d.MaxInput
	}
	if l.MaxNodesPerOffset <= 0 {
		l.MaxNodesPerOffset = d.MaxNodesPerOffset
	}
	if l.MaxPredictions <= 0 {
		l.MaxPredictions = d.MaxPredictions
	}
	if l.MaxContinuations <= 0 {
		l.MaxContinuations = d.MaxContinuations
	}
	if l.PredictionPenalty <= 0 {
		l.PredictionPenalty = d.PredictionPenalty
	}
	if l.ContinuationPenalty <= 0 {
		l.ContinuationPenalty = d.ContinuationPenalty
	}
	if l.ContextBonus <= 0 {
		l.ContextBonus = d.ContextBonus
	}
	return l
}

// Context carries what the previous confirmation left behind.
type Context struct {
	// PrevKey is the entry key of the last confirmed word.
	PrevKey string
	// PrevEnd is the offset where the last confirmed span ended, or -1.
	PrevEnd int
}

// NoContext is the zero continuation context.
var NoContext = Context{PrevEnd: -1}

// Builder builds lattices against one lexicon.
type Builder struct {
	lex    Lexicon
	limits Limits
}

// NewBuilder creates a builder.
func NewBuilder(lex Lexicon, limits Limits) *Builder {
	return &Builder{lex: lex, limits: limits.withDefaults()}
}

// Limits returns the effective limits.
func (b *Builder) Limits() Limits {
	return b.limits
}

// Build normalizes input and builds the lattice for span.
func (b *Builder) Build(input string, span Span, opts Options, ctx Context) (*Lattice, error) {
	runes := []rune(utils.NormalizeKana(input))
	if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
		return nil, fmt.Errorf("%w: %s over %d runes", ErrInvalidSpan, span, len(runes))
	}
	if span.Len() > b.limits.MaxInput {
		return nil, fmt.Errorf("%w: %d runes (max %d)", ErrInputTooLong, span.Len(), b.limits.MaxInput)
	}

	n := span.Len()
	l := &Lattice{
		Input:         runes,
		Span:          span,
		starts:        make([][]*Node, n),
		continuations: make(map[string][]*Node),
		attempted:     make([]bool, n),
		best:          make([]int, n+1),
		minConn:       b.lex.MinConnection(),
		lex:           b.lex,
	}

	var favored map[string]bool
	if ctx.PrevKey != "" && ctx.PrevEnd == span.Start {
		favored = make(map[string]bool)
		for _, e := range b.lex.Successors(ctx.PrevKey, 0) {
			favored[e.Key()] = true
		}
	}

	nextID := 0
	place := func(start, end int, e *dictionary.Entry, kind Kind, bias int) *Node {
		if start == span.Start && favored[e.Key()] {
			bias -= b.limits.ContextBonus
		}
		node := &Node{ID: nextID, Start: start, End: end, Entry: e, Kind: kind, Bias: bias}
		nextID++
		return node
	}

	for i := span.Start; i < span.End; i++ {
		if opts.SingleWord && i != span.Start {
			break
		}
		suffix := string(runes[i:span.End])
		l.attempted[i-span.Start] = true

		var nodes []*Node
		for _, m := range b.lex.Lookup(suffix) {
			end := i + m.Length
			if opts.SingleWord && end != span.End {
				continue
			}
			nodes = append(nodes, place(i, end, m.Entry, NodeComplete, m.Penalty))
		}
		nodes = capNodes(nodes, b.limits.MaxNodesPerOffset)

		if !opts.NoPrediction {
			for _, m := range b.lex.Predict(suffix, b.limits.MaxPredictions) {
				nodes = append(nodes, place(i, span.End, m.Entry, NodePrediction, m.Penalty+b.limits.PredictionPenalty))
			}
		}
		l.starts[i-span.Start] = nodes
	}

	if !opts.NoPrediction && !opts.SingleWord {
		for _, nodes := range l.starts {
			for _, node := range nodes {
				if node.End != span.End {
					continue
				}
				key := node.Entry.Key()
				if _, ok := l.continuations[key]; ok {
					continue
				}
				var conts []*Node
				for _, e := range b.lex.Successors(key, b.limits.MaxContinuations) {
					conts = append(conts, place(span.End, span.End, e, NodeContinuation, b.limits.ContinuationPenalty))
				}
				l.continuations[key] = conts
			}
		}
	}

	l.computeHeuristic()
	l.prune()
	for _, nodes := range l.starts {
		l.size += len(nodes)
	}
	for _, conts := range l.continuations {
		l.size += len(conts)
	}
	log.Debugf("lattice %s: %d nodes, covered=%v", span, l.size, l.Covered())
	return l, nil
}

// capNodes keeps the cheapest node for every distinct end offset, then fills
// the remaining room by cost. Keeping one node per end preserves reachability.
func capNodes(nodes []*Node, limit int) []*Node {
	if len(nodes) <= limit {
		return nodes
	}
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return cmp.Compare(a.Cost(), b.Cost())
	})
	seen := make(map[int]bool)
	kept := make([]*Node, 0, limit)
	var rest []*Node
	for _, n := range nodes {
		if !seen[n.End] {
			seen[n.End] = true
			kept = append(kept, n)
			continue
		}
		rest = append(rest, n)
	}
	for _, n := range rest {
		if len(kept) >= limit {
			break
		}
		kept = append(kept, n)
	}
	slices.SortStableFunc(kept, func(a, b *Node) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return kept
}

// computeHeuristic fills best[] right to left. Every edge is charged the
// matrix minimum, so best[i] never exceeds the true remaining cost.
func (l *Lattice) computeHeuristic() {
	n := l.Span.Len()
	tail := 0
	for _, conts := range l.continuations {
		for _, c := range conts {
			tail = min(tail, c.Cost()+l.minConn)
		}
	}
	l.best[n] = tail
	for i := n - 1; i >= 0; i-- {
		best := Unreachable
		for _, node := range l.starts[i] {
			rest := l.best[node.End-l.Span.Start]
			if rest == Unreachable {
				continue
			}
			best = min(best, node.Cost()+l.minConn+rest)
		}
		l.best[i] = best
	}
}

// prune drops nodes that lead nowhere.
func (l *Lattice) prune() {
	for i, nodes := range l.starts {
		kept := nodes[:0]
		for _, node := range nodes {
			if l.best[node.End-l.Span.Start] != Unreachable {
				kept = append(kept, node)
			}
		}
		l.starts[i] = kept
	}
}
