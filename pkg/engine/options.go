package engine

import (
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/lattice"
)

// Options are fixed when the engine is created.
type Options struct {
	// AmbiguousSearch also matches readings that differ only in voicing marks or small kana.
	AmbiguousSearch bool
	// AddressBook pairs become proper noun entries.
	AddressBook []dictionary.NamePhonetic
	// UseInputAsTopCandidate emits the typed input itself before any conversion.
	UseInputAsTopCandidate bool
	// AdditionalDictPaths are merged below the system dictionaries.
	AdditionalDictPaths []string

	// AutoSave persists the learned dictionary after every confirmation.
	AutoSave bool

	Limits lattice.Limits
	Learn  dictionary.LearnPolicy
	Tuning Tuning
}

// Tuning holds cost constants that are not part of the lattice limits.
type Tuning struct {
	AmbiguityPenalty int    `toml:"ambiguity_penalty"`
	AddressBookCost  int    `toml:"address_book_cost"`
	ProperNounAttr   uint16 `toml:"proper_noun_attr"`
	MaxExpansions    int    `toml:"max_expansions"`
	PredictionLimit  int    `toml:"prediction_limit"`
}

// DefaultTuning returns the stock tuning constants.
func DefaultTuning() Tuning {
	return Tuning{
		AmbiguityPenalty: 800,
		AddressBookCost:  2000,
		MaxExpansions:    200000,
		PredictionLimit:  10,
	}
}

// DefaultOptions returns options with every policy at its default.
func DefaultOptions() Options {
	return Options{
		Limits: lattice.DefaultLimits(),
		Learn:  dictionary.DefaultLearnPolicy(),
		Tuning: DefaultTuning(),
	}
}

func (o Options) withDefaults() Options {
	if o.Learn == (dictionary.LearnPolicy{}) {
		o.Learn = dictionary.DefaultLearnPolicy()
	}
	d := DefaultTuning()
	if o.Tuning.AmbiguityPenalty == 0 {
		o.Tuning.AmbiguityPenalty = d.AmbiguityPenalty
	}
	if o.Tuning.AddressBookCost == 0 {
		o.Tuning.AddressBookCost = d.AddressBookCost
	}
	if o.Tuning.MaxExpansions <= 0 {
		o.Tuning.MaxExpansions = d.MaxExpansions
	}
	if o.Tuning.PredictionLimit <= 0 {
		o.Tuning.PredictionLimit = d.PredictionLimit
	}
	return o
}

// AnalyzeOptions select the lattice shape for one Analyze call.
type AnalyzeOptions struct {
	// NoPrediction keeps only words whose reading was typed in full.
	NoPrediction bool
	// SingleWord keeps only candidates made of one word spanning the whole range.
	SingleWord bool
}
