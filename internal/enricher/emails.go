package enricher

import (
	"regexp"
	"strconv"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// DefaultDeniedDomains lists placeholder and tooling domains whose
// addresses never belong to the business itself.
func DefaultDeniedDomains() []string {
	return []string{
		"example.com",
		"email.com",
		"domain.com",
		"yourdomain.com",
		"wix.com",
		"wixpress.com",
		"sentry.io",
		"godaddy.com",
		"squarespace.com",
	}
}

// harvestEmails collects email-shaped tokens from visible text,
// deduplicates them preserving first-seen order, drops denylisted
// domains, and caps the result.
func (e *Enricher) harvestEmails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var (
		emails []string
		seen   = make(map[string]struct{})
	)
	for _, match := range matches {
		lower := strings.ToLower(match)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		if e.denied(lower) {
			continue
		}
		emails = append(emails, match)
		if len(emails) >= e.cfg.MaxEmails {
			break
		}
	}
	return emails
}

func (e *Enricher) denied(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return true
	}
	domain := email[at+1:]
	for _, deny := range e.cfg.DeniedDomains {
		if domain == deny || strings.HasSuffix(domain, "."+deny) {
			return true
		}
	}
	return false
}

// Founder/founding-year harvesting is best-effort pattern matching
// against a small ordered list of phrase templates; first match wins.

var founderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:founded by|owner|ceo|founder)[:\s]+([a-z][a-z\s]{1,29})`),
	regexp.MustCompile(`(?i)(?:meet|about)\s+([a-z][a-z\s]{1,29}),?\s+(?:founder|owner|ceo)`),
}

func harvestFounder(text string) *string {
	for _, pattern := range founderPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if name != "" {
				return &name
			}
		}
	}
	return nil
}

const earliestPlausibleYear = 1800

var yearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`©\s*(\d{4})`),
	regexp.MustCompile(`(?i)established\s+(\d{4})`),
	regexp.MustCompile(`(?i)since\s+(\d{4})`),
	regexp.MustCompile(`(?i)founded\s+in\s+(\d{4})`),
}

// harvestYearFounded returns the first plausible year match; years
// outside [1800, currentYear] are discarded.
func harvestYearFounded(text string, currentYear int) *int {
	for _, pattern := range yearPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			year, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if year >= earliestPlausibleYear && year <= currentYear {
				return &year
			}
		}
	}
	return nil
}
