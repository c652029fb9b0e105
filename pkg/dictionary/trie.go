package dictionary

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

var errStopVisit = errors.New("stop visit")

// Trie maps readings to every entry sharing that reading.
type Trie struct {
	trie  *patricia.Trie
	count int
}

// NewTrie creates an empty reading trie.
func NewTrie() *Trie {
	return &Trie{trie: patricia.NewTrie()}
}

// Insert adds e under key.
func (t *Trie) Insert(key string, e *Entry) {
	prefix := patricia.Prefix(key)
	if item := t.trie.Get(prefix); item != nil {
		entries := item.([]*Entry)
		t.trie.Set(prefix, append(entries, e))
	} else {
		t.trie.Insert(prefix, []*Entry{e})
	}
	t.count++
}

// Remove deletes the entries under key for which match returns true.
func (t *Trie) Remove(key string, match func(*Entry) bool) int {
	prefix := patricia.Prefix(key)
	item := t.trie.Get(prefix)
	if item == nil {
		return 0
	}
	entries := item.([]*Entry)
	kept := entries[:0]
	removed := 0
	for _, e := range entries {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		t.trie.Delete(prefix)
	} else {
		t.trie.Set(prefix, kept)
	}
	t.count -= removed
	return removed
}

// Get returns the entries stored exactly under key.
func (t *Trie) Get(key string) []*Entry {
	item := t.trie.Get(patricia.Prefix(key))
	if item == nil {
		return nil
	}
	return item.([]*Entry)
}

// PrefixesOf visits every stored key that is a prefix of, or equal to, query.
// UTF-8 is prefix free, so byte prefixes of a valid key are always rune aligned.
func (t *Trie) PrefixesOf(query string, visit func(key string, entries []*Entry)) {
	err := t.trie.VisitPrefixes(patricia.Prefix(query), func(p patricia.Prefix, item patricia.Item) error {
		visit(string(p), item.([]*Entry))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie prefixes: %v", err)
	}
}

// Extensions visits keys that strictly extend prefix until visit returns false.
func (t *Trie) Extensions(prefix string, visit func(key string, entries []*Entry) bool) {
	err := t.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if len(p) == len(prefix) {
			return nil
		}
		if !visit(string(p), item.([]*Entry)) {
			return errStopVisit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopVisit) {
		log.Errorf("Error visiting trie subtree: %v", err)
	}
}

// Extends reports whether some key strictly extends prefix.
func (t *Trie) Extends(prefix string) bool {
	found := false
	t.Extensions(prefix, func(string, []*Entry) bool {
		found = true
		return false
	})
	return found
}

// Walk visits every key in the trie.
func (t *Trie) Walk(visit func(key string, entries []*Entry)) {
	err := t.trie.Visit(func(p patricia.Prefix, item patricia.Item) error {
		visit(string(p), item.([]*Entry))
		return nil
	})
	if err != nil {
		log.Errorf("Error walking trie: %v", err)
	}
}

// Len returns the number of entries (not keys) stored.
func (t *Trie) Len() int {
	return t.count
}
