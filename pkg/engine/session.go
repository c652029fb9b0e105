package engine

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/lattice"
	"github.com/bastiangx/henkan/pkg/search"
)

// State is the lifecycle position of a session.
type State int

const (
	StateConfigured State = iota
	StateAnalyzed
	StateIterating
	StatePredicting
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateAnalyzed:
		return "analyzed"
	case StateIterating:
		return "iterating"
	case StatePredicting:
		return "predicting"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is one conversion conversation. It is not safe for concurrent use;
// independent sessions may run in parallel.
type Session struct {
	engine *Engine
	state  State
	// generation increments on every Analyze; candidates carry the value they were made under.
	generation uint64

	input     []rune
	span      lattice.Span
	lattice   *lattice.Lattice
	iter      *search.Iterator
	lookahead *search.Path
	top       *Candidate
	filter    *utils.CandidateFilter

	predictions []*dictionary.Entry
	// ctx is left by the latest confirmation. prior is the context that applied
	// to the span confirmed then, so re-analyzing that span ranks it the same way.
	// used is the context the current lattice was built with.
	ctx   lattice.Context
	prior lattice.Context
	used  lattice.Context
}

func newSession(e *Engine) *Session {
	return &Session{
		engine: e,
		state:  StateConfigured,
		filter: utils.NewCandidateFilter(),
		ctx:    lattice.NoContext,
		prior:  lattice.NoContext,
		used:   lattice.NoContext,
	}
}

func (s *Session) alive() error {
	if s.state == StateDestroyed || s.engine.closed.Load() {
		return ErrUseAfterDestroy
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	if s.state != StateDestroyed && s.engine.closed.Load() {
		return StateDestroyed
	}
	return s.state
}

// Input returns the normalized input of the latest Analyze.
func (s *Session) Input() string {
	return string(s.input)
}

// Analyze converts text[start:end] (rune offsets) and resets the candidate
// sequence. It reports false when nothing covers the span; that is an
// ordinary outcome while typing, not an error. Errors are reserved for
// invalid spans, destroyed sessions and spans longer than Limits.MaxInput
// runes, which fail with lattice.ErrInputTooLong.
func (s *Session) Analyze(text string, start, end int, opts AnalyzeOptions) (bool, error) {
	if err := s.alive(); err != nil {
		return false, err
	}
	s.reset()
	s.generation++
	s.state = StateAnalyzed
	s.span = lattice.Span{Start: start, End: end}
	s.used = s.contextAt(start)

	lat, err := s.engine.builder.Build(text, s.span, lattice.Options{
		NoPrediction: opts.NoPrediction,
		SingleWord:   opts.SingleWord,
	}, s.used)
	if err != nil {
		return false, err
	}
	s.lattice = lat
	s.input = lat.Input
	s.iter = search.New(lat, search.Options{MaxExpansions: s.engine.opts.Tuning.MaxExpansions})
	if p, ok := s.iter.Next(); ok {
		s.lookahead = &p
	}

	if s.engine.opts.UseInputAsTopCandidate {
		weight := 0
		if s.lookahead != nil {
			weight = s.lookahead.Cost
		}
		typed := lat.Text(start, end)
		e := &dictionary.Entry{Surface: typed, Reading: typed, Source: dictionary.SourceInput}
		top, err := newCandidate([]Word{wordFromEntry(e, end-start)}, weight, Complete)
		if err != nil {
			return false, err
		}
		s.top = s.own(top)
		return true, nil
	}

	ok := s.lookahead != nil
	log.Debugf("analyze %q %s: covered=%v nodes=%d", string(lat.Input), s.span, ok, lat.Size())
	return ok, nil
}

// contextAt picks the confirmation context for a span starting at start.
func (s *Session) contextAt(start int) lattice.Context {
	switch {
	case s.ctx.PrevEnd == start:
		return s.ctx
	case s.prior.PrevEnd == start:
		return s.prior
	}
	return lattice.NoContext
}

func (s *Session) reset() {
	s.lattice = nil
	s.iter = nil
	s.lookahead = nil
	s.top = nil
	s.predictions = nil
	s.input = nil
	s.filter.Reset()
}

func (s *Session) own(c *Candidate) *Candidate {
	c.session = s
	c.generation = s.generation
	c.span = s.span
	return c
}

// NextCandidate returns the next candidate in non-decreasing weight, or
// ErrNoMoreCandidates once the sequence is exhausted. After a successful
// Confirm it yields predicted follow-on words instead.
func (s *Session) NextCandidate() (*Candidate, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	switch s.state {
	case StateConfigured:
		return nil, fmt.Errorf("%w: next candidate before analyze", ErrInvalidState)
	case StatePredicting:
		return s.nextPrediction()
	}
	s.state = StateIterating

	if s.top != nil {
		top := s.top
		s.top = nil
		if s.filter.ShouldInclude(top.Surface, top.Reading) {
			return top, nil
		}
	}
	for s.iter != nil {
		var p search.Path
		if s.lookahead != nil {
			p = *s.lookahead
			s.lookahead = nil
		} else {
			var ok bool
			if p, ok = s.iter.Next(); !ok {
				break
			}
		}
		c, err := candidateFromPath(p)
		if err != nil {
			return nil, err
		}
		if !s.filter.ShouldInclude(c.Surface, c.Reading) {
			continue
		}
		return s.own(c), nil
	}
	return nil, ErrNoMoreCandidates
}

func (s *Session) nextPrediction() (*Candidate, error) {
	for len(s.predictions) > 0 {
		e := s.predictions[0]
		s.predictions = s.predictions[1:]
		if !s.filter.ShouldInclude(e.Surface, e.Reading) {
			continue
		}
		c, err := newCandidate([]Word{wordFromEntry(e, 0)}, e.Cost, IncompleteLastWord)
		if err != nil {
			return nil, err
		}
		c = s.own(c)
		c.span = lattice.Span{Start: s.span.End, End: s.span.End}
		c.predicted = true
		return c, nil
	}
	return nil, ErrNoMoreCandidates
}

// Confirm teaches the learned dictionary the words of c and switches the
// session to predicting follow-on words. Candidates from an earlier Analyze,
// or from another session, fail with ErrStaleCandidate and change nothing.
// With AutoSave a failed write returns *PersistenceError; the learned change
// itself is kept in memory.
func (s *Session) Confirm(c *Candidate) (bool, error) {
	if err := s.alive(); err != nil {
		return false, err
	}
	if c == nil || c.session != s || c.generation != s.generation || s.state == StateConfigured {
		return false, ErrStaleCandidate
	}

	prevKey := ""
	applied := lattice.NoContext
	switch {
	case c.predicted:
		prevKey = s.ctx.PrevKey
	case s.used.PrevKey != "" && s.used.PrevEnd == c.span.Start:
		prevKey = s.used.PrevKey
		applied = s.used
	}
	last := s.engine.learned.Reinforce(c.entries(), prevKey)
	s.prior = applied
	s.ctx = lattice.Context{PrevKey: last, PrevEnd: c.span.End}
	log.Debugf("confirmed %q (%d words) after %q", c.Surface, c.WordNum, prevKey)

	if s.engine.opts.AutoSave {
		if err := s.engine.save(); err != nil {
			return false, err
		}
	}

	s.predictions = s.engine.learned.Successors(last, s.engine.opts.Tuning.PredictionLimit)
	s.filter.Reset()
	s.span = c.span
	s.state = StatePredicting
	return true, nil
}

// Destroy ends the session. Every later call fails with ErrUseAfterDestroy.
func (s *Session) Destroy() {
	s.reset()
	s.state = StateDestroyed
}
