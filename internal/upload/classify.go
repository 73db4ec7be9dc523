package upload

import "strings"

// Keyword groups are checked in order; the first group with a hit wins.
var opportunityKeywords = []struct {
	kind  string
	words []string
}{
	{"Tech", []string{"cto", "cio", "tech", "it", "developer", "engineer"}},
	{"Executive", []string{"ceo", "president", "owner", "founder"}},
	{"Sales", []string{"sales", "marketing", "business", "bd"}},
}

// OpportunityType buckets a job title into a coarse opportunity category
// used as a task tag. Matching is by substring, so "IT Director" and
// "Chief Technology Officer" both land in Tech.
func OpportunityType(title string) string {
	t := strings.ToLower(title)
	for _, group := range opportunityKeywords {
		for _, w := range group.words {
			if strings.Contains(t, w) {
				return group.kind
			}
		}
	}
	return "General"
}
