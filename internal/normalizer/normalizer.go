// Package normalizer holds the pure, session-free record finishing
// logic: phone classification, derived validity flags, the summary
// line, and address/coordinate parsing shared with the extractor.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/placescout/placescout/internal/scout"
)

// Phone classification values.
const (
	PhoneLocal    = "local"
	PhoneNational = "national"
	PhoneUnknown  = "unknown"
)

var nonDigits = regexp.MustCompile(`\D`)

// ClassifyPhone classifies a raw phone string by digit count: exactly
// ten digits reads as a local number, eleven with a leading country
// code 1 as national. A nil input stays nil.
func ClassifyPhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	digits := nonDigits.ReplaceAllString(*raw, "")
	kind := PhoneUnknown
	switch {
	case len(digits) == 10:
		kind = PhoneLocal
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		kind = PhoneNational
	}
	return &kind
}

// StripPhone returns the digits-only form of a phone string.
func StripPhone(raw string) string {
	return nonDigits.ReplaceAllString(raw, "")
}

// DeriveFlags fills the boolean validity flags from field presence.
func DeriveFlags(rec *scout.EntityRecord) {
	rec.EmailValid = len(rec.Emails) > 0
	rec.HasWebsite = rec.Website != nil && *rec.Website != ""
	rec.HasSocialMedia = false
	for _, link := range rec.Social {
		if link != nil && *link != "" {
			rec.HasSocialMedia = true
			break
		}
	}
}

// Summarize joins the most salient present fields into one line.
// Fields appear in a fixed order and null fields are skipped, so the
// output is deterministic for a given record.
func Summarize(rec *scout.EntityRecord) string {
	var parts []string
	if rec.Name != nil {
		parts = append(parts, *rec.Name)
	}
	if rec.MainCategory != nil {
		parts = append(parts, *rec.MainCategory)
	}
	if rec.Rating != nil && rec.ReviewsCount != nil {
		parts = append(parts, fmt.Sprintf("%.1f stars (%d reviews)", *rec.Rating, *rec.ReviewsCount))
	}
	if rec.PriceLevel != nil {
		parts = append(parts, *rec.PriceLevel)
	}
	if rec.City != nil && rec.State != nil {
		parts = append(parts, *rec.City+", "+*rec.State)
	}
	if rec.Verified {
		parts = append(parts, "Verified")
	}
	if len(rec.Emails) > 0 {
		parts = append(parts, "Email available")
	}
	if n := socialCount(rec.Social); n > 0 {
		parts = append(parts, fmt.Sprintf("%d social profiles", n))
	}
	if rec.LiveStatus != nil {
		parts = append(parts, *rec.LiveStatus)
	}
	return strings.Join(parts, " • ")
}

func socialCount(social map[string]*string) int {
	n := 0
	for _, link := range social {
		if link != nil && *link != "" {
			n++
		}
	}
	return n
}

// Finalize computes every derived field on a frozen record.
func Finalize(rec *scout.EntityRecord) {
	if rec.Phone != nil && rec.PhoneUnformatted == nil {
		digits := StripPhone(*rec.Phone)
		rec.PhoneUnformatted = &digits
	}
	rec.PhoneType = ClassifyPhone(rec.Phone)
	DeriveFlags(rec)
	rec.Summary = Summarize(rec)
}
