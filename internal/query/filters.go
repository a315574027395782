package query

import (
	"strings"

	"github.com/impacttracker/esgrag/internal/vectorstore"
)

// keywordEntry maps a canonical metadata value to the substrings that imply it.
type keywordEntry struct {
	value    string
	keywords []string
}

// Table order matters: extraction stops at the first entry with any matching
// keyword, so earlier entries win regardless of keyword position in the query.
var sectionKeywords = []keywordEntry{
	{"Environment", []string{"환경", "environment", "기후", "탄소"}},
	{"Social", []string{"사회", "social", "직원", "인권", "안전"}},
	{"Governance", []string{"지배구조", "governance", "윤리", "준법"}},
}

var companyKeywords = []keywordEntry{
	{"CJ", []string{"cj", "씨제이"}},
	{"HYUNDAI", []string{"hyundai", "현대", "hdai"}},
	{"KB", []string{"kb", "케이비", "kb금융"}},
	{"LG CHEM", []string{"lg chem", "lg화학", "엘지화학", "엘지켁"}},
	{"LG ELECTRONICS", []string{"lg electronics", "lg전자", "엘지전자", "엘지"}},
	{"POSCO", []string{"posco", "포스코"}},
	{"SAMSUNG", []string{"samsung", "삼성"}},
	{"SK", []string{"sk", "에스케이"}},
	// Legacy sample-data sources
	{"KTNG", []string{"ktng", "케이티앤지", "kt&g"}},
	{"SHINHAN", []string{"신한", "shinhan"}},
	{"SAMPYO", []string{"삼표", "sampyo"}},
	{"SAMPLE", []string{"sample", "샘플"}},
}

// ExtractFilters derives metadata equality filters from the query text by
// case-insensitive substring matching against the fixed keyword tables.
// At most one section and one source are returned (first table entry wins);
// an empty filter means unrestricted search.
func ExtractFilters(query string) vectorstore.Filter {
	var filter vectorstore.Filter
	lowered := strings.ToLower(query)

	for _, entry := range sectionKeywords {
		if matchesAny(lowered, entry.keywords) {
			filter.Section = entry.value
			break
		}
	}

	for _, entry := range companyKeywords {
		if matchesAny(lowered, entry.keywords) {
			filter.Source = entry.value
			break
		}
	}

	return filter
}

func matchesAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
