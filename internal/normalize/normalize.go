// Package normalize cleans raw contact fields into canonical form.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// confidencePrefix matches the AI confidence marker some lead vendors
// prepend to addresses, e.g. "97% jane@example.com".
var confidencePrefix = regexp.MustCompile(`^\d+%\s*`)

// Email canonicalizes a raw email value: strips a leading confidence
// marker, lowercases, and trims. Returns false for anything that does not
// look like local@domain with a dot in the domain, or that contains
// whitespace.
func Email(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = confidencePrefix.ReplaceAllString(s, "")
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if strings.ContainsAny(s, " \t\n\r") {
		return "", false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", false
	}
	if !strings.Contains(s[at+1:], ".") {
		return "", false
	}
	return s, true
}

// Phone canonicalizes a raw phone value to "+1 DDD DDD DDDD". It accepts
// exactly ten digits, or eleven with a leading country code 1. Anything
// else (short local numbers, international numbers) returns false.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
	case len(digits) == 11 && digits[0] == '1':
		digits = digits[1:]
	default:
		return "", false
	}

	return "+1 " + digits[:3] + " " + digits[3:6] + " " + digits[6:], true
}

// corpSuffix matches one trailing corporate designator with optional
// punctuation: "Acme, Inc.", "Acme LLC", "Acme corp".
var corpSuffix = regexp.MustCompile(`(?i)[,\s]+(inc|llc|corp|corporation|co|ltd)\.?$`)

// Company canonicalizes a company name: trims, strips at most one trailing
// corporate suffix, and title-cases the remaining words. Empty or
// whitespace-only input comes back empty; a lead with no company never
// participates in name+company matching.
func Company(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(corpSuffix.ReplaceAllString(s, ""))
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(s)
}
