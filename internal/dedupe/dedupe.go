// Package dedupe collapses duplicate leads while preserving encounter order.
package dedupe

import (
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Merge deduplicates leads in encounter order and reports how many were
// absorbed. Identity is checked against all previously accepted leads, email
// first: an email hit wins outright and the name+company lookup is skipped.
// Only when the email is empty or unseen does a case-insensitive
// name+company match count, and only for leads that carry a company: a bare
// name is not an identity, so two people sharing a name with no company stay
// separate. The earlier-accepted lead is always kept; empty fields on it are
// back-filled from the duplicate before the duplicate is discarded. Lookups
// are hash-indexed, one pass over the input.
func Merge(leads []model.Lead) ([]model.Lead, int) {
	out := make([]model.Lead, 0, len(leads))
	byEmail := make(map[string]int, len(leads))
	byName := make(map[string]int, len(leads))

	dups := 0
	for _, lead := range leads {
		if i, ok := lookup(lead, byEmail, byName); ok {
			absorb(out, i, lead, byEmail, byName)
			dups++
			continue
		}
		out = append(out, lead)
		i := len(out) - 1
		if lead.Email != "" {
			byEmail[lead.Email] = i
		}
		if lead.Company != "" {
			byName[nameKey(lead.FullName, lead.Company)] = i
		}
	}
	return out, dups
}

// lookup finds the accepted lead the incoming one duplicates, if any.
func lookup(lead model.Lead, byEmail, byName map[string]int) (int, bool) {
	if lead.Email != "" {
		if i, ok := byEmail[lead.Email]; ok {
			return i, true
		}
	}
	if lead.Company == "" {
		return 0, false
	}
	i, ok := byName[nameKey(lead.FullName, lead.Company)]
	return i, ok
}

// absorb back-fills empty fields on the kept lead from a duplicate. A key the
// kept lead acquires through back-fill is registered so later leads match it,
// unless an earlier lead already holds that key.
func absorb(out []model.Lead, i int, dup model.Lead, byEmail, byName map[string]int) {
	kept := &out[i]
	if kept.Email == "" && dup.Email != "" {
		kept.Email = dup.Email
		if _, taken := byEmail[kept.Email]; !taken {
			byEmail[kept.Email] = i
		}
	}
	if kept.Company == "" && dup.Company != "" {
		kept.Company = dup.Company
		key := nameKey(kept.FullName, kept.Company)
		if _, taken := byName[key]; !taken {
			byName[key] = i
		}
	}
	if kept.Phone == "" {
		kept.Phone = dup.Phone
	}
	if kept.Title == "" {
		kept.Title = dup.Title
	}
	if kept.AnnualRevenue == nil {
		kept.AnnualRevenue = dup.AnnualRevenue
	}
	if kept.EstimatedValue.IsZero() {
		kept.EstimatedValue = dup.EstimatedValue
	}
}

// nameKey builds the case-insensitive name+company identity key.
func nameKey(name, company string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(company))
}
