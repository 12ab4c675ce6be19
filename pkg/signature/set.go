package signature

// Set is an unordered collection of entries keyed by full signature.
// Paths are unique: adding a second entry for a path already present is refused.
type Set struct {
	entries map[key]*Entry
	paths   map[string]key
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{
		entries: make(map[key]*Entry),
		paths:   make(map[string]key),
	}
}

// Add inserts the entry and reports whether it was added.
func (s *Set) Add(e *Entry) bool {
	if _, exists := s.paths[e.Path]; exists {
		return false
	}

	k := e.key()
	s.entries[k] = e
	s.paths[e.Path] = k

	return true
}

// AddSignature inserts an entry with no source.
func (s *Set) AddSignature(sig Signature) bool {
	return s.Add(NewEntry(sig))
}

// Contains reports whether an entry with exactly this signature is present.
func (s *Set) Contains(sig Signature) bool {
	_, ok := s.entries[sig.key()]
	return ok
}

// HasPath reports whether any entry uses the path.
func (s *Set) HasPath(p string) bool {
	_, ok := s.paths[NormalizePath(p)]
	return ok
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.entries)
}

// TotalSize returns the sum of all entry sizes.
func (s *Set) TotalSize() int64 {
	var total int64
	for _, e := range s.entries {
		total += e.Size
	}

	return total
}

// Entries returns all entries sorted by path.
func (s *Set) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}

	SortEntries(out)

	return out
}

// Filter returns a new set with the entries for which keep returns true.
func (s *Set) Filter(keep func(Signature) bool) *Set {
	out := NewSet()

	for _, e := range s.entries {
		if keep(e.Signature) {
			out.Add(e)
		}
	}

	return out
}

// Except returns the entries of s whose signature is not in other.
func (s *Set) Except(other *Set) []*Entry {
	out := make([]*Entry, 0)

	for k, e := range s.entries {
		if _, ok := other.entries[k]; !ok {
			out = append(out, e)
		}
	}

	SortEntries(out)

	return out
}
