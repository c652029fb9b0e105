package dictionary

import (
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/henkan/internal/utils"
)

// Index keeps a reading trie plus a folded-reading trie for ambiguous search.
type Index struct {
	exact  *Trie
	folded *Trie
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{exact: NewTrie(), folded: NewTrie()}
}

// Add indexes e by its reading.
func (ix *Index) Add(e *Entry) {
	ix.exact.Insert(e.Reading, e)
	ix.folded.Insert(utils.FoldKana(e.Reading), e)
}

// Delete removes e (by identity) from both tries.
func (ix *Index) Delete(e *Entry) {
	same := func(x *Entry) bool { return x == e }
	ix.exact.Remove(e.Reading, same)
	ix.folded.Remove(utils.FoldKana(e.Reading), same)
}

// Match visits entries whose reading is a prefix of query. With ambiguous set,
// entries whose folded reading is a prefix of the folded query are visited too,
// flagged as ambiguous.
func (ix *Index) Match(query string, ambiguous bool, visit func(Match)) {
	ix.exact.PrefixesOf(query, func(key string, entries []*Entry) {
		n := utf8.RuneCountInString(key)
		for _, e := range entries {
			visit(Match{Entry: e, Length: n})
		}
	})
	if !ambiguous {
		return
	}
	ix.folded.PrefixesOf(utils.FoldKana(query), func(key string, entries []*Entry) {
		n := utf8.RuneCountInString(key)
		for _, e := range entries {
			if strings.HasPrefix(query, e.Reading) {
				continue
			}
			visit(Match{Entry: e, Length: n, Ambiguous: true})
		}
	})
}

// Predict visits entries whose reading strictly extends prefix. Returning false
// from visit stops the walk.
func (ix *Index) Predict(prefix string, ambiguous bool, visit func(Match) bool) {
	n := utf8.RuneCountInString(prefix)
	stopped := false
	ix.exact.Extensions(prefix, func(_ string, entries []*Entry) bool {
		for _, e := range entries {
			if !visit(Match{Entry: e, Length: n}) {
				stopped = true
				return false
			}
		}
		return true
	})
	if !ambiguous || stopped {
		return
	}
	ix.folded.Extensions(utils.FoldKana(prefix), func(_ string, entries []*Entry) bool {
		for _, e := range entries {
			if strings.HasPrefix(e.Reading, prefix) {
				continue
			}
			if !visit(Match{Entry: e, Length: n, Ambiguous: true}) {
				return false
			}
		}
		return true
	})
}

// Extends reports whether a longer reading than prefix exists.
func (ix *Index) Extends(prefix string, ambiguous bool) bool {
	if ix.exact.Extends(prefix) {
		return true
	}
	return ambiguous && ix.folded.Extends(utils.FoldKana(prefix))
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return ix.exact.Len()
}

// Walk visits every entry once.
func (ix *Index) Walk(visit func(*Entry)) {
	ix.exact.Walk(func(_ string, entries []*Entry) {
		for _, e := range entries {
			visit(e)
		}
	})
}
