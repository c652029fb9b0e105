// Package engine ties the dictionary, lattice and search layers into
// conversion sessions: analyze a reading, walk ranked candidates, confirm one
// so the learned dictionary adapts.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/internal/logger"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/lattice"
)

// Engine owns the loaded dictionaries. Sessions created from one engine share
// its immutable store and its learned dictionary.
type Engine struct {
	store   *dictionary.Store
	learned *dictionary.Learned
	lexicon *dictionary.Lexicon
	builder *lattice.Builder
	opts    Options
	log     *log.Logger

	// persist serializes disk writes of the learned dictionary.
	persist sync.Mutex
	closed  atomic.Bool
}

// New loads the system dictionaries, the additional dictionaries from opts and
// the learned dictionary stored under learnedDir. An empty learnedDir keeps
// learning in memory only. Any unreadable dictionary fails the whole call with
// *DictionaryLoadError.
func New(systemPaths []string, learnedDir string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	store, err := dictionary.LoadStore(dictionary.StoreConfig{
		SystemPaths:     systemPaths,
		AdditionalPaths: opts.AdditionalDictPaths,
		AddressBook:     opts.AddressBook,
		AddressBookCost: opts.Tuning.AddressBookCost,
		ProperNounAttr:  opts.Tuning.ProperNounAttr,
	})
	if err != nil {
		return nil, &DictionaryLoadError{Err: err}
	}
	learned, err := dictionary.OpenLearned(learnedDir, opts.Learn)
	if err != nil {
		return nil, &DictionaryLoadError{Err: err}
	}
	return NewWithStore(store, learned, opts), nil
}

// NewWithStore builds an engine from already loaded parts. learned may be nil
// for an in-memory overlay.
func NewWithStore(store *dictionary.Store, learned *dictionary.Learned, opts Options) *Engine {
	opts = opts.withDefaults()
	if learned == nil {
		learned = dictionary.NewLearned("", opts.Learn)
	}
	lex := dictionary.NewLexicon(store, learned, dictionary.LexiconOptions{
		Ambiguous:        opts.AmbiguousSearch,
		AmbiguityPenalty: opts.Tuning.AmbiguityPenalty,
	})
	builder := lattice.NewBuilder(lex, opts.Limits)
	opts.Limits = builder.Limits()
	e := &Engine{
		store:   store,
		learned: learned,
		lexicon: lex,
		builder: builder,
		opts:    opts,
		log:     logger.New("engine"),
	}
	e.log.Debug("Engine ready", "dictionaries", store.Stats(), "learned", learned.Len())
	return e
}

// NewSession creates a session in the Configured state.
func (e *Engine) NewSession() (*Session, error) {
	if e.closed.Load() {
		return nil, ErrUseAfterDestroy
	}
	return newSession(e), nil
}

// Options returns the effective engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// Stats returns entry counts per dictionary layer plus the learned overlay.
func (e *Engine) Stats() map[string]int {
	stats := e.store.Stats()
	stats["learned"] = e.learned.Len()
	return stats
}

// LearnedDir returns the directory the learned dictionary is stored in.
func (e *Engine) LearnedDir() string {
	return e.learned.Dir()
}

// SaveLearned flushes learned dictionary changes to disk.
func (e *Engine) SaveLearned() error {
	if e.closed.Load() {
		return ErrUseAfterDestroy
	}
	return e.save()
}

func (e *Engine) save() error {
	e.persist.Lock()
	defer e.persist.Unlock()
	if err := e.learned.Save(); err != nil {
		return &PersistenceError{Op: "save", Path: e.learned.Dir(), Err: err}
	}
	return nil
}

// ClearLearned empties the learned dictionary in memory and deletes its files.
// It cannot be undone.
func (e *Engine) ClearLearned() error {
	if e.closed.Load() {
		return ErrUseAfterDestroy
	}
	e.persist.Lock()
	defer e.persist.Unlock()
	if err := e.learned.Clear(); err != nil {
		return &PersistenceError{Op: "clear", Path: e.learned.Dir(), Err: err}
	}
	e.log.Info("Learned dictionary cleared")
	return nil
}

// Close flushes pending learned changes and destroys the engine. Sessions of a
// closed engine fail with ErrUseAfterDestroy.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	if !e.learned.Dirty() {
		return nil
	}
	if err := e.save(); err != nil {
		e.log.Error("Failed to flush learned dictionary on close", "error", err)
		return err
	}
	return nil
}

// LearnedNames lists the file names the learned dictionary uses on disk. It
// needs no engine, so backup or cleanup tooling can call it directly.
func LearnedNames() []string {
	return dictionary.LearnedNames()
}

// LearnedPaths joins LearnedNames onto dir.
func LearnedPaths(dir string) []string {
	return dictionary.LearnedPaths(dir)
}
