package utils

// CandidateFilter remembers which conversion results were already handed out
// during one analysis so the same surface/reading pair is never repeated.
// Not safe for concurrent use; it lives inside a single session.
type CandidateFilter struct {
	seen map[string]bool
}

// NewCandidateFilter creates an empty filter.
func NewCandidateFilter() *CandidateFilter {
	return &CandidateFilter{seen: make(map[string]bool)}
}

// ShouldInclude checks if a candidate should be included in results (not a duplicate)
// Returns true the first time a key is seen, false afterwards.
func (f *CandidateFilter) ShouldInclude(surface, reading string) bool {
	key := surface + "\x00" + reading
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

// Reset forgets every key seen so far.
func (f *CandidateFilter) Reset() {
	clear(f.seen)
}

// Len returns how many distinct candidates passed the filter.
func (f *CandidateFilter) Len() int {
	return len(f.seen)
}
