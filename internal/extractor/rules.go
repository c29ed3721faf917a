package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/placescout/placescout/internal/scout"
)

// StrategyKind names how a single extraction attempt reads the page.
type StrategyKind string

// Supported strategy kinds, in rough order of structural confidence.
const (
	// KindSelectorText takes the trimmed text of the first node
	// matching Selector.
	KindSelectorText StrategyKind = "selector_text"
	// KindSelectorAttr takes attribute Attr of the first node
	// matching Selector.
	KindSelectorAttr StrategyKind = "selector_attr"
	// KindURLPattern applies Pattern to the resolved page URL.
	KindURLPattern StrategyKind = "url_pattern"
	// KindTextPattern applies Pattern to the page's visible text.
	KindTextPattern StrategyKind = "text_pattern"
)

// Strategy is one attempt in a field's fallback chain. When Pattern is
// set for a selector kind, it refines the looked-up value and the first
// capture group wins.
type Strategy struct {
	Kind     StrategyKind
	Selector string
	Attr     string
	Pattern  *regexp.Regexp
}

func (s Strategy) eval(pc *pageContext) string {
	var raw string
	switch s.Kind {
	case KindSelectorText:
		raw = strings.TrimSpace(pc.doc.Find(s.Selector).First().Text())
	case KindSelectorAttr:
		raw, _ = pc.doc.Find(s.Selector).First().Attr(s.Attr)
		raw = strings.TrimSpace(raw)
	case KindURLPattern:
		raw = pc.resolvedURL
	case KindTextPattern:
		raw = pc.bodyText
	}
	if raw == "" {
		return ""
	}
	if s.Pattern == nil {
		if s.Kind == KindURLPattern || s.Kind == KindTextPattern {
			return ""
		}
		return raw
	}
	m := s.Pattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

// Rule binds one logical field to its ordered strategy chain. The
// chain is evaluated until a strategy yields a non-empty value; a chain
// with no winner leaves the field null.
type Rule struct {
	Field      string
	Strategies []Strategy
	Assign     func(rec *scout.EntityRecord, value string)
}

var commaRuns = regexp.MustCompile(`,`)

func assignString(target func(rec *scout.EntityRecord) **string) func(*scout.EntityRecord, string) {
	return func(rec *scout.EntityRecord, value string) {
		*target(rec) = &value
	}
}

func assignFloat(target func(rec *scout.EntityRecord) **float64) func(*scout.EntityRecord, string) {
	return func(rec *scout.EntityRecord, value string) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*target(rec) = &f
		}
	}
}

func assignInt(target func(rec *scout.EntityRecord) **int) func(*scout.EntityRecord, string) {
	return func(rec *scout.EntityRecord, value string) {
		clean := commaRuns.ReplaceAllString(value, "")
		if n, err := strconv.Atoi(clean); err == nil {
			*target(rec) = &n
		}
	}
}

// defaultRules is the versionable per-field extraction table. Adapting
// to provider markup drift means editing this data, not control flow.
func defaultRules() []Rule {
	return []Rule{
		{
			Field: "name",
			Strategies: []Strategy{
				{Kind: KindSelectorText, Selector: "h1.DUwDvf"},
				{Kind: KindSelectorText, Selector: "h1.fontHeadlineLarge"},
				{Kind: KindSelectorText, Selector: "h1"},
				{Kind: KindSelectorText, Selector: `[data-item-id="title"]`},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.Name }),
		},
		{
			Field: "mainCategory",
			Strategies: []Strategy{
				{Kind: KindSelectorText, Selector: `button[jsaction*="category"]`},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.MainCategory }),
		},
		{
			Field: "rating",
			Strategies: []Strategy{
				{Kind: KindSelectorText, Selector: `div.F7nice span[aria-hidden="true"]`, Pattern: regexp.MustCompile(`^(\d(?:[.,]\d)?)`)},
				{Kind: KindSelectorAttr, Selector: `div.F7nice span[role="img"]`, Attr: "aria-label", Pattern: regexp.MustCompile(`(\d(?:\.\d)?) star`)},
			},
			Assign: assignFloat(func(r *scout.EntityRecord) **float64 { return &r.Rating }),
		},
		{
			Field: "reviewsCount",
			Strategies: []Strategy{
				{Kind: KindSelectorAttr, Selector: `div.F7nice button[aria-label*="reviews"]`, Attr: "aria-label", Pattern: regexp.MustCompile(`([\d,]+)\s+reviews?`)},
				{Kind: KindSelectorText, Selector: `div.F7nice`, Pattern: regexp.MustCompile(`\(([\d,]+)\)`)},
			},
			Assign: assignInt(func(r *scout.EntityRecord) **int { return &r.ReviewsCount }),
		},
		{
			Field: "fullAddress",
			Strategies: []Strategy{
				{Kind: KindSelectorText, Selector: `button[data-item-id="address"] .Io6YTe`},
				{Kind: KindSelectorText, Selector: `button[data-item-id="address"] div.fontBodyMedium`},
				{Kind: KindSelectorAttr, Selector: `button[data-item-id="address"]`, Attr: "aria-label", Pattern: regexp.MustCompile(`^Address:\s*(.+)$`)},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.FullAddress }),
		},
		{
			Field: "phone",
			Strategies: []Strategy{
				{Kind: KindSelectorText, Selector: `button[data-item-id*="phone"] .Io6YTe`},
				{Kind: KindSelectorText, Selector: `button[data-item-id*="phone"] div.fontBodyMedium`},
				{Kind: KindSelectorAttr, Selector: `button[data-item-id*="phone"]`, Attr: "aria-label", Pattern: regexp.MustCompile(`^Phone:\s*(.+)$`)},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.Phone }),
		},
		{
			Field: "website",
			Strategies: []Strategy{
				{Kind: KindSelectorAttr, Selector: `a[data-item-id="authority"]`, Attr: "href"},
				{Kind: KindSelectorAttr, Selector: `a[data-item-id*="authority"]`, Attr: "href"},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.Website }),
		},
		{
			Field: "priceLevel",
			Strategies: []Strategy{
				{Kind: KindSelectorAttr, Selector: `span[aria-label*="Price"]`, Attr: "aria-label", Pattern: regexp.MustCompile(`^Price:\s*(.+)$`)},
				{Kind: KindSelectorText, Selector: `span[aria-label*="Price"]`},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.PriceLevel }),
		},
		{
			Field: "liveStatus",
			Strategies: []Strategy{
				{Kind: KindSelectorText, Selector: "span.ZDu9vd"},
				{Kind: KindSelectorText, Selector: `span[aria-label*="Open now"]`},
				{Kind: KindSelectorText, Selector: `span[aria-label*="Closed"]`},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.LiveStatus }),
		},
		{
			Field: "placeId",
			Strategies: []Strategy{
				{Kind: KindURLPattern, Pattern: regexp.MustCompile(`(ChIJ[A-Za-z0-9_-]+)`)},
				{Kind: KindURLPattern, Pattern: regexp.MustCompile(`!1s([^!]+)`)},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.PlaceID }),
		},
		{
			Field: "cid",
			Strategies: []Strategy{
				{Kind: KindURLPattern, Pattern: regexp.MustCompile(`!4s0x[0-9a-f]+:(0x[0-9a-f]+)`)},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.CID }),
		},
		{
			Field: "kgmid",
			Strategies: []Strategy{
				{Kind: KindSelectorAttr, Selector: `meta[property="og:url"]`, Attr: "content", Pattern: regexp.MustCompile(`(/g/\w+)`)},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.KGMID }),
		},
		{
			Field: "menuUrl",
			Strategies: []Strategy{
				{Kind: KindSelectorAttr, Selector: `a[data-item-id="menu"]`, Attr: "href"},
				{Kind: KindSelectorAttr, Selector: `a[href*="menu"]`, Attr: "href"},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.MenuURL }),
		},
		{
			Field: "reservationUrl",
			Strategies: []Strategy{
				{Kind: KindSelectorAttr, Selector: `a[href*="resy.com"]`, Attr: "href"},
				{Kind: KindSelectorAttr, Selector: `a[href*="opentable.com"]`, Attr: "href"},
			},
			Assign: assignString(func(r *scout.EntityRecord) **string { return &r.ReservationURL }),
		},
	}
}
