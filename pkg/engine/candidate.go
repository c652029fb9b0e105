package engine

import (
	"unicode/utf8"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/lattice"
	"github.com/bastiangx/henkan/pkg/search"
)

// Incomplete re-exports the tail classification of a candidate.
type Incomplete = search.Incomplete

const (
	Complete                   = search.Complete
	IncompleteLastWord         = search.IncompleteLastWord
	IncompleteSecondToLastWord = search.IncompleteSecondToLastWord
)

// MaxWords is the most words a candidate holds.
const MaxWords = search.MaxWords

// Word is one segment of a candidate.
type Word struct {
	Surface   string
	Reading   string
	LeftAttr  uint16
	RightAttr uint16
	TrieValue uint32
	Cost      int
	Source    dictionary.Source
	DictIndex int
	// InputLen is the number of typed runes the word consumes. Predicted and
	// follow-on words may consume fewer runes than their reading has.
	InputLen int

	entry *dictionary.Entry
}

// Candidate is one conversion result. It stays readable after the next
// Analyze but can then no longer be confirmed.
type Candidate struct {
	Surface    string
	Reading    string
	WordNum    int
	Incomplete Incomplete
	// Kind is the source of the word with the longest reading.
	Kind      dictionary.Source
	KindIndex int
	Weight    int
	Words     *utils.Bounded[Word]

	session    *Session
	generation uint64
	span       lattice.Span
	predicted  bool
}

func newCandidate(words []Word, weight int, incomplete Incomplete) (*Candidate, error) {
	c := &Candidate{
		Weight:     weight,
		Incomplete: incomplete,
		Words:      utils.NewBounded[Word](MaxWords),
	}
	longest := -1
	for _, w := range words {
		if err := c.Words.Append(w); err != nil {
			return nil, err
		}
		c.Surface += w.Surface
		c.Reading += w.Reading
		if n := utf8.RuneCountInString(w.Reading); n > longest {
			longest = n
			c.Kind, c.KindIndex = w.Source, w.DictIndex
		}
	}
	c.WordNum = c.Words.Len()
	return c, nil
}

func wordFromNode(n *lattice.Node) Word {
	e := n.Entry
	return Word{
		Surface:   e.Surface,
		Reading:   e.Reading,
		LeftAttr:  e.LeftAttr,
		RightAttr: e.RightAttr,
		TrieValue: e.TrieValue,
		Cost:      n.Cost(),
		Source:    e.Source,
		DictIndex: e.DictIndex,
		InputLen:  n.InputLen(),
		entry:     e,
	}
}

func wordFromEntry(e *dictionary.Entry, inputLen int) Word {
	return Word{
		Surface:   e.Surface,
		Reading:   e.Reading,
		LeftAttr:  e.LeftAttr,
		RightAttr: e.RightAttr,
		TrieValue: e.TrieValue,
		Cost:      e.Cost,
		Source:    e.Source,
		DictIndex: e.DictIndex,
		InputLen:  inputLen,
		entry:     e,
	}
}

func candidateFromPath(p search.Path) (*Candidate, error) {
	words := make([]Word, len(p.Nodes))
	for i, n := range p.Nodes {
		words[i] = wordFromNode(n)
	}
	return newCandidate(words, p.Cost, p.Incomplete())
}

func (c *Candidate) collect(f func(Word) int) []int {
	out := make([]int, c.Words.Len())
	for i := range out {
		out[i] = f(c.Words.At(i))
	}
	return out
}

// WordLens returns the surface length of every word in runes.
func (c *Candidate) WordLens() []int {
	return c.collect(func(w Word) int { return utf8.RuneCountInString(w.Surface) })
}

// ReadingLens returns how many input runes every word consumes.
func (c *Candidate) ReadingLens() []int {
	return c.collect(func(w Word) int { return w.InputLen })
}

// LeftAttrs returns the left context attribute of every word.
func (c *Candidate) LeftAttrs() []int {
	return c.collect(func(w Word) int { return int(w.LeftAttr) })
}

// RightAttrs returns the right context attribute of every word.
func (c *Candidate) RightAttrs() []int {
	return c.collect(func(w Word) int { return int(w.RightAttr) })
}

// TrieValues returns the opaque dictionary value of every word.
func (c *Candidate) TrieValues() []uint32 {
	out := make([]uint32, c.Words.Len())
	for i := range out {
		out[i] = c.Words.At(i).TrieValue
	}
	return out
}

// Span returns the input range the candidate was produced for.
func (c *Candidate) Span() lattice.Span {
	return c.span
}

// Predicted reports whether the candidate was offered after a confirmation
// rather than by Analyze.
func (c *Candidate) Predicted() bool {
	return c.predicted
}

func (c *Candidate) entries() []*dictionary.Entry {
	out := make([]*dictionary.Entry, c.Words.Len())
	for i := range out {
		out[i] = c.Words.At(i).entry
	}
	return out
}
