package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a session call arrives out of order,
	// e.g. NextCandidate before any Analyze.
	ErrInvalidState = errors.New("invalid session state")
	// ErrUseAfterDestroy is returned by every call on a destroyed session or closed engine.
	ErrUseAfterDestroy = errors.New("use after destroy")
	// ErrStaleCandidate is returned by Confirm for candidates that do not come
	// from the latest Analyze on the same session.
	ErrStaleCandidate = errors.New("stale candidate")
	// ErrAnalysisFailure means no path covers the requested span.
	ErrAnalysisFailure = errors.New("analysis failure: no path covers the span")
	// ErrNoMoreCandidates ends a candidate sequence.
	ErrNoMoreCandidates = errors.New("no more candidates")
)

// DictionaryLoadError reports a dictionary that could not be read at construction.
type DictionaryLoadError struct {
	Err error
}

func (e *DictionaryLoadError) Error() string {
	return fmt.Sprintf("dictionary load failed: %v", e.Err)
}

func (e *DictionaryLoadError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed save or clear of the learned dictionary.
// The in-memory state is unaffected, so the operation may be retried.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("learned dictionary %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
