package dictionary

// Layer is one immutable dictionary: a system file or directory, an additional
// dictionary, or the address book.
type Layer struct {
	Name   string
	Source Source
	Index  int
	index  *Index
}

// NewLayer indexes entries, stamping them with source and index.
func NewLayer(name string, source Source, index int, entries []*Entry) *Layer {
	l := &Layer{Name: name, Source: source, Index: index, index: NewIndex()}
	for _, e := range entries {
		e.Source = source
		e.DictIndex = index
		l.index.Add(e)
	}
	return l
}

// Len returns the number of entries in the layer.
func (l *Layer) Len() int {
	return l.index.Len()
}

// Store is the read-only part of the lexicon. After construction nothing in it
// changes, so any number of sessions may read it concurrently.
type Store struct {
	layers []*Layer
	matrix *Matrix
}

// NewStore assembles layers into a store. A nil matrix means every connection costs 0.
func NewStore(matrix *Matrix, layers ...*Layer) *Store {
	if matrix == nil {
		matrix = NewMatrix(0, 0)
	}
	return &Store{layers: layers, matrix: matrix}
}

// Match collects hits whose reading is a prefix of query from every layer.
func (s *Store) Match(query string, ambiguous bool, visit func(Match)) {
	for _, l := range s.layers {
		l.index.Match(query, ambiguous, visit)
	}
}

// Predict visits strict extensions of prefix across layers. Returning false
// from visit moves on to the next layer.
func (s *Store) Predict(prefix string, ambiguous bool, visit func(Match) bool) {
	for _, l := range s.layers {
		l.index.Predict(prefix, ambiguous, visit)
	}
}

// Extends reports whether any layer holds a reading longer than prefix.
func (s *Store) Extends(prefix string, ambiguous bool) bool {
	for _, l := range s.layers {
		if l.index.Extends(prefix, ambiguous) {
			return true
		}
	}
	return false
}

// Matrix returns the connection cost matrix.
func (s *Store) Matrix() *Matrix {
	return s.matrix
}

// Layers returns the layers in lookup order.
func (s *Store) Layers() []*Layer {
	return s.layers
}

// Stats returns entry counts per source, in the same spirit as the completer stats.
func (s *Store) Stats() map[string]int {
	stats := map[string]int{"layers": len(s.layers)}
	for _, l := range s.layers {
		stats[l.Source.String()] += l.Len()
		stats["totalEntries"] += l.Len()
	}
	rights, lefts := s.matrix.Size()
	stats["matrixRights"] = rights
	stats["matrixLefts"] = lefts
	return stats
}
