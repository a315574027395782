package retrieval

import "sort"

// StringSet is a set of distinct string values with sorted iteration.
type StringSet map[string]struct{}

// Add inserts a value into the set.
func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

// Sorted returns the set's values in ascending order.
func (s StringSet) Sorted() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// MetadataSummary aggregates the distinct metadata values seen across the
// retained (post-rerank) result set. It is used for citation display only,
// never for retrieval.
type MetadataSummary struct {
	Sections    StringSet
	SubSections StringSet
	Sources     StringSet
	PageRanges  StringSet
}

// NewMetadataSummary returns a summary with all sets empty.
func NewMetadataSummary() MetadataSummary {
	return MetadataSummary{
		Sections:    make(StringSet),
		SubSections: make(StringSet),
		Sources:     make(StringSet),
		PageRanges:  make(StringSet),
	}
}

// IsEmpty reports whether no metadata values have been accumulated.
func (s MetadataSummary) IsEmpty() bool {
	return len(s.Sections) == 0 && len(s.SubSections) == 0 &&
		len(s.Sources) == 0 && len(s.PageRanges) == 0
}
