package dictionary

import (
	"cmp"
	"slices"
)

// LexiconOptions tune how lookups merge the layers.
type LexiconOptions struct {
	Ambiguous        bool
	AmbiguityPenalty int
	// MaxPredictionScan bounds how many extensions are inspected per prediction query.
	MaxPredictionScan int
}

// Lexicon is the lookup view the lattice builder works against: the static
// store merged with the learned overlay.
type Lexicon struct {
	store   *Store
	learned *Learned
	opts    LexiconOptions
}

// NewLexicon combines store and learned. learned may be nil.
func NewLexicon(store *Store, learned *Learned, opts LexiconOptions) *Lexicon {
	if store == nil {
		store = NewStore(nil)
	}
	if opts.MaxPredictionScan <= 0 {
		opts.MaxPredictionScan = 512
	}
	return &Lexicon{store: store, learned: learned, opts: opts}
}

func (x *Lexicon) penalize(m Match) Match {
	if m.Ambiguous {
		m.Penalty += x.opts.AmbiguityPenalty
	}
	return m
}

// Lookup returns every entry whose reading is a prefix of, or equal to, query,
// ordered by CompareMatches.
func (x *Lexicon) Lookup(query string) []Match {
	var out []Match
	if x.learned != nil {
		for _, m := range x.learned.Match(query, x.opts.Ambiguous) {
			out = append(out, x.penalize(m))
		}
	}
	x.store.Match(query, x.opts.Ambiguous, func(m Match) {
		out = append(out, x.penalize(m))
	})
	slices.SortFunc(out, CompareMatches)
	return out
}

// Predict returns up to limit entries whose reading strictly extends prefix,
// cheapest first.
func (x *Lexicon) Predict(prefix string, limit int) []Match {
	if prefix == "" {
		return nil
	}
	var out []Match
	if x.learned != nil {
		for _, m := range x.learned.Predict(prefix, x.opts.Ambiguous, x.opts.MaxPredictionScan) {
			out = append(out, x.penalize(m))
		}
	}
	scanned := 0
	x.store.Predict(prefix, x.opts.Ambiguous, func(m Match) bool {
		if scanned >= x.opts.MaxPredictionScan {
			return false
		}
		out = append(out, x.penalize(m))
		scanned++
		return scanned < x.opts.MaxPredictionScan
	})
	slices.SortFunc(out, func(a, b Match) int {
		if c := cmp.Compare(a.Cost(), b.Cost()); c != 0 {
			return c
		}
		return CompareMatches(a, b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Extends reports whether any reading is strictly longer than prefix.
func (x *Lexicon) Extends(prefix string) bool {
	if x.learned != nil && x.learned.Extends(prefix, x.opts.Ambiguous) {
		return true
	}
	return x.store.Extends(prefix, x.opts.Ambiguous)
}

// Successors returns learned follow-on words for key.
func (x *Lexicon) Successors(key string, limit int) []*Entry {
	if x.learned == nil {
		return nil
	}
	return x.learned.Successors(key, limit)
}

// Connection returns the connection cost prevRight -> nextLeft.
func (x *Lexicon) Connection(prevRight, nextLeft uint16) int {
	return x.store.matrix.Cost(prevRight, nextLeft)
}

// MinConnection is a lower bound on Connection.
func (x *Lexicon) MinConnection() int {
	return x.store.matrix.MinCost()
}
