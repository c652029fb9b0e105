/*
Package dictionary holds the reading-keyed word dictionaries used by the converter.

Three kinds of layers are merged at lookup time:

  - static layers (system, additional and address book dictionaries), loaded once and never mutated
  - the learned overlay, which grows and re-costs itself as the user confirms candidates

Every layer is indexed by reading in a Patricia trie, so a lookup for an input
suffix visits exactly the readings that are prefixes of it, and prediction walks the
subtree below it.
*/
package dictionary

import (
	"cmp"
	"strings"
	"unicode/utf8"
)

// Source identifies which dictionary group an entry came from.
// Lower values win cost ties.
type Source uint8

const (
	SourceLearned Source = iota
	SourceAddressBook
	SourceSystem
	SourceAdditional
	// SourceInput marks the raw input echoed back as a candidate.
	SourceInput
)

func (s Source) String() string {
	switch s {
	case SourceLearned:
		return "learned"
	case SourceAddressBook:
		return "addressbook"
	case SourceSystem:
		return "system"
	case SourceAdditional:
		return "additional"
	case SourceInput:
		return "input"
	}
	return "unknown"
}

// Entry is a single dictionary word.
type Entry struct {
	Surface   string `msgpack:"s"`
	Reading   string `msgpack:"r"`
	LeftAttr  uint16 `msgpack:"l"`
	RightAttr uint16 `msgpack:"rc"`
	Cost      int    `msgpack:"c"`
	TrieValue uint32 `msgpack:"v"`
	Source    Source `msgpack:"-"`
	DictIndex int    `msgpack:"-"`
}

// Key identifies a word independent of its source: surface plus reading.
func (e *Entry) Key() string {
	return EntryKey(e.Surface, e.Reading)
}

// EntryKey builds the key used by the learned dictionary.
func EntryKey(surface, reading string) string {
	return surface + "\x00" + reading
}

// SplitKey reverses EntryKey.
func SplitKey(key string) (surface, reading string) {
	surface, reading, _ = strings.Cut(key, "\x00")
	return surface, reading
}

// ReadingLen returns the reading length in runes.
func (e *Entry) ReadingLen() int {
	return utf8.RuneCountInString(e.Reading)
}

// Clone returns a detached copy.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// Match is one lookup hit.
type Match struct {
	Entry *Entry
	// Length is how many input runes the match consumes.
	Length int
	// Penalty is added to the entry cost, e.g. for hits found only through kana folding.
	Penalty int
	// Ambiguous is set when the exact reading differs from the input.
	Ambiguous bool
}

// Cost is the entry cost plus the lookup penalty.
func (m Match) Cost() int {
	return m.Entry.Cost + m.Penalty
}

// CompareMatches orders matches by consumed length, effective cost, source priority,
// surface and finally reading. The order is total for distinct entries.
func CompareMatches(a, b Match) int {
	if c := cmp.Compare(a.Length, b.Length); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Cost(), b.Cost()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Entry.Source, b.Entry.Source); c != 0 {
		return c
	}
	if c := strings.Compare(a.Entry.Surface, b.Entry.Surface); c != 0 {
		return c
	}
	if c := strings.Compare(a.Entry.Reading, b.Entry.Reading); c != 0 {
		return c
	}
	return cmp.Compare(a.Entry.DictIndex, b.Entry.DictIndex)
}

// NamePhonetic is one address book record handed to the engine at construction.
type NamePhonetic struct {
	Name     string
	Phonetic string
}
