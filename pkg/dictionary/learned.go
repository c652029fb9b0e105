package dictionary

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// LearnedEntriesName is the file holding learned words.
	LearnedEntriesName = "henkan-learn.dat"
	// LearnedLinksName is the file holding word-to-word links.
	LearnedLinksName = "henkan-learn-links.dat"

	learnedFormatVersion = 1
)

// LearnedNames returns the file names used for learned dictionary storage.
// The set is fixed, so backup or cleanup tools can use it without an engine.
func LearnedNames() []string {
	return []string{LearnedEntriesName, LearnedLinksName}
}

// LearnedPaths joins LearnedNames onto dir.
func LearnedPaths(dir string) []string {
	names := LearnedNames()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// LearnPolicy controls how confirmations change learned costs.
type LearnPolicy struct {
	// InitialCost caps the cost of a newly learned word.
	InitialCost int `toml:"initial_cost"`
	// Step is subtracted on every confirmation.
	Step int `toml:"step"`
	// MinCost is the floor for reinforced costs.
	MinCost int `toml:"min_cost"`
	// MaxEntries bounds the overlay; the least recently used word is evicted past it.
	MaxEntries int `toml:"max_entries"`
	// DecayEvery runs a decay pass after this many confirmations, 0 disables decay.
	DecayEvery int `toml:"decay_every"`
	// DecayStep is added to every word untouched since the previous decay pass.
	DecayStep int `toml:"decay_step"`
}

// DefaultLearnPolicy returns the stock learning policy.
func DefaultLearnPolicy() LearnPolicy {
	return LearnPolicy{
		InitialCost: 3000,
		Step:        200,
		MinCost:     -2000,
		MaxEntries:  10000,
		DecayEvery:  100,
		DecayStep:   50,
	}
}

type learnedEntry struct {
	Entry    Entry `msgpack:"e"`
	Hits     int   `msgpack:"h"`
	BaseCost int   `msgpack:"b"`
	LastUsed int64 `msgpack:"t"`
}

type learnedLink struct {
	Prev     string `msgpack:"p"`
	Next     string `msgpack:"n"`
	Count    int    `msgpack:"c"`
	LastUsed int64  `msgpack:"t"`
}

type entriesFile struct {
	Version       int             `msgpack:"version"`
	Clock         int64           `msgpack:"clock"`
	LastDecay     int64           `msgpack:"last_decay"`
	Confirmations int             `msgpack:"confirmations"`
	Entries       []*learnedEntry `msgpack:"entries"`
}

type linksFile struct {
	Version int            `msgpack:"version"`
	Links   []*learnedLink `msgpack:"links"`
}

// Learned is the mutable overlay built from user confirmations.
//
// All mutation goes through one RWMutex so that a Reinforce call is applied as
// a whole, even when several sessions share the overlay.
type Learned struct {
	dir    string
	policy LearnPolicy

	mu            sync.RWMutex
	entries       map[string]*learnedEntry
	index         *Index
	links         map[string]map[string]*learnedLink
	clock         int64
	lastDecay     int64
	confirmations int
	dirty         bool
}

// NewLearned creates an empty overlay persisted under dir. An empty dir keeps
// everything in memory and makes Save a no-op.
func NewLearned(dir string, policy LearnPolicy) *Learned {
	return &Learned{
		dir:     dir,
		policy:  policy,
		entries: make(map[string]*learnedEntry),
		index:   NewIndex(),
		links:   make(map[string]map[string]*learnedLink),
	}
}

// OpenLearned loads the overlay stored under dir. Missing files give an empty
// overlay; unreadable or corrupt files fail with *LoadError.
func OpenLearned(dir string, policy LearnPolicy) (*Learned, error) {
	l := NewLearned(dir, policy)
	if dir == "" {
		return l, nil
	}
	paths := LearnedPaths(dir)

	var ef entriesFile
	if ok, err := readMsgpack(paths[0], &ef); err != nil {
		return nil, &LoadError{Path: paths[0], Err: err}
	} else if ok {
		if ef.Version != learnedFormatVersion {
			return nil, &LoadError{Path: paths[0], Err: fmt.Errorf("unsupported version %d", ef.Version)}
		}
		for _, le := range ef.Entries {
			if le == nil || le.Entry.Reading == "" || le.Entry.Surface == "" {
				return nil, &LoadError{Path: paths[0], Err: errors.New("malformed learned entry")}
			}
			le.Entry.Source = SourceLearned
			l.entries[le.Entry.Key()] = le
			l.index.Add(&le.Entry)
		}
		l.clock = ef.Clock
		l.lastDecay = ef.LastDecay
		l.confirmations = ef.Confirmations
	}

	var lf linksFile
	if ok, err := readMsgpack(paths[1], &lf); err != nil {
		return nil, &LoadError{Path: paths[1], Err: err}
	} else if ok {
		if lf.Version != learnedFormatVersion {
			return nil, &LoadError{Path: paths[1], Err: fmt.Errorf("unsupported version %d", lf.Version)}
		}
		for _, ln := range lf.Links {
			if ln == nil {
				continue
			}
			l.linkTo(ln.Prev)[ln.Next] = ln
		}
	}

	log.Debugf("Opened learned dictionary at %s: %d entries, %d link heads", dir, len(l.entries), len(l.links))
	return l, nil
}

func readMsgpack(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Learned) linkTo(prev string) map[string]*learnedLink {
	m, ok := l.links[prev]
	if !ok {
		m = make(map[string]*learnedLink)
		l.links[prev] = m
	}
	return m
}

func (l *Learned) tick() int64 {
	l.clock++
	return l.clock
}

// Reinforce records one confirmed word sequence. prevKey is the key of the word
// confirmed right before this sequence, or "" when there is none. It returns the
// key of the last word so callers can chain confirmations.
func (l *Learned) Reinforce(words []*Entry, prevKey string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := prevKey
	for _, w := range words {
		key := w.Key()
		now := l.tick()
		if le, ok := l.entries[key]; ok {
			le.Entry.Cost = max(le.Entry.Cost-l.policy.Step, l.policy.MinCost)
			le.Hits++
			le.LastUsed = now
		} else {
			cost := max(min(l.policy.InitialCost, w.Cost)-l.policy.Step, l.policy.MinCost)
			le = &learnedEntry{
				Entry: Entry{
					Surface:   w.Surface,
					Reading:   w.Reading,
					LeftAttr:  w.LeftAttr,
					RightAttr: w.RightAttr,
					Cost:      cost,
					TrieValue: w.TrieValue,
					Source:    SourceLearned,
				},
				Hits:     1,
				BaseCost: cost,
				LastUsed: now,
			}
			l.entries[key] = le
			l.index.Add(&le.Entry)
		}
		if prev != "" {
			link, ok := l.linkTo(prev)[key]
			if !ok {
				link = &learnedLink{Prev: prev, Next: key}
				l.links[prev][key] = link
			}
			link.Count++
			link.LastUsed = now
		}
		prev = key
	}

	l.confirmations++
	for l.policy.MaxEntries > 0 && len(l.entries) > l.policy.MaxEntries {
		l.evictLRU()
	}
	if l.policy.DecayEvery > 0 && l.confirmations%l.policy.DecayEvery == 0 {
		l.decay()
	}
	l.dirty = true
	return prev
}

// evictLRU drops the least recently used word together with its links.
func (l *Learned) evictLRU() {
	var oldestKey string
	var oldest *learnedEntry
	for key, le := range l.entries {
		if oldest == nil || le.LastUsed < oldest.LastUsed {
			oldestKey, oldest = key, le
		}
	}
	if oldest == nil {
		return
	}
	delete(l.entries, oldestKey)
	l.index.Delete(&oldest.Entry)
	delete(l.links, oldestKey)
	for prev, next := range l.links {
		delete(next, oldestKey)
		if len(next) == 0 {
			delete(l.links, prev)
		}
	}
	log.Debugf("Evicted learned word %q", oldest.Entry.Surface)
}

// decay raises the cost of words untouched since the last pass, never above
// the cost they were first learned with.
func (l *Learned) decay() {
	decayed := 0
	for _, le := range l.entries {
		if le.LastUsed <= l.lastDecay && le.Entry.Cost < le.BaseCost {
			le.Entry.Cost = min(le.Entry.Cost+l.policy.DecayStep, le.BaseCost)
			decayed++
		}
	}
	l.lastDecay = l.clock
	log.Debugf("Learned decay pass touched %d words", decayed)
}

// Match returns detached copies of learned hits for query.
func (l *Learned) Match(query string, ambiguous bool) []Match {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Match
	l.index.Match(query, ambiguous, func(m Match) {
		m.Entry = m.Entry.Clone()
		out = append(out, m)
	})
	return out
}

// Predict returns detached copies of learned words strictly extending prefix.
func (l *Learned) Predict(prefix string, ambiguous bool, limit int) []Match {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Match
	l.index.Predict(prefix, ambiguous, func(m Match) bool {
		m.Entry = m.Entry.Clone()
		out = append(out, m)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// Extends reports whether a learned reading is longer than prefix.
func (l *Learned) Extends(prefix string, ambiguous bool) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.Extends(prefix, ambiguous)
}

// Successors returns copies of the words confirmed right after key, most
// frequent link first.
func (l *Learned) Successors(key string, limit int) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	next := l.links[key]
	if len(next) == 0 {
		return nil
	}
	links := make([]*learnedLink, 0, len(next))
	for _, ln := range next {
		if _, ok := l.entries[ln.Next]; ok {
			links = append(links, ln)
		}
	}
	slices.SortFunc(links, func(a, b *learnedLink) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(b.LastUsed, a.LastUsed); c != 0 {
			return c
		}
		return cmp.Compare(a.Next, b.Next)
	})
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	out := make([]*Entry, len(links))
	for i, ln := range links {
		out[i] = l.entries[ln.Next].Entry.Clone()
	}
	return out
}

// Cost returns the learned cost of a word and whether it is known.
func (l *Learned) Cost(key string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	le, ok := l.entries[key]
	if !ok {
		return 0, false
	}
	return le.Entry.Cost, true
}

// Len returns the number of learned words.
func (l *Learned) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Dirty reports whether there are changes not yet written by Save.
func (l *Learned) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// Dir returns the storage directory, "" for memory only overlays.
func (l *Learned) Dir() string {
	return l.dir
}

// Save writes the overlay to disk. On failure the in-memory state is kept and
// still marked dirty, so calling Save again is safe.
func (l *Learned) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dir == "" {
		l.dirty = false
		return nil
	}

	ef := entriesFile{
		Version:       learnedFormatVersion,
		Clock:         l.clock,
		LastDecay:     l.lastDecay,
		Confirmations: l.confirmations,
		Entries:       make([]*learnedEntry, 0, len(l.entries)),
	}
	for _, le := range l.entries {
		ef.Entries = append(ef.Entries, le)
	}
	slices.SortFunc(ef.Entries, func(a, b *learnedEntry) int {
		return cmp.Compare(a.Entry.Key(), b.Entry.Key())
	})

	lf := linksFile{Version: learnedFormatVersion}
	for _, next := range l.links {
		for _, ln := range next {
			lf.Links = append(lf.Links, ln)
		}
	}
	slices.SortFunc(lf.Links, func(a, b *learnedLink) int {
		if c := cmp.Compare(a.Prev, b.Prev); c != 0 {
			return c
		}
		return cmp.Compare(a.Next, b.Next)
	})

	if err := utils.EnsureDir(l.dir); err != nil {
		return err
	}
	paths := LearnedPaths(l.dir)
	for i, v := range []any{ef, lf} {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		if err := utils.WriteFileAtomic(paths[i], data); err != nil {
			return err
		}
	}
	l.dirty = false
	log.Debugf("Saved learned dictionary: %d entries to %s", len(l.entries), l.dir)
	return nil
}

// Clear forgets everything in memory and deletes the stored files. The memory
// side always succeeds; if deleting fails the overlay stays dirty so a later
// Save overwrites the files with the empty state.
func (l *Learned) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]*learnedEntry)
	l.index = NewIndex()
	l.links = make(map[string]map[string]*learnedLink)
	l.clock, l.lastDecay, l.confirmations = 0, 0, 0
	l.dirty = true

	if l.dir == "" {
		l.dirty = false
		return nil
	}
	for _, p := range LearnedPaths(l.dir) {
		if err := utils.RemoveIfExists(p); err != nil {
			return err
		}
	}
	l.dirty = false
	return nil
}
