// Package extractor turns a loaded entity page into a normalized
// EntityRecord by evaluating a declarative, per-field fallback chain of
// extraction strategies. A malformed page degrades individual fields to
// null; only a failed navigation is an error.
package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/placescout/placescout/internal/metrics"
	"github.com/placescout/placescout/internal/normalizer"
	"github.com/placescout/placescout/internal/scout"
)

// DetailLevel controls which optional strategies run.
type DetailLevel string

// Supported detail levels. Basic skips the expensive long-tail fields
// (popular times, owner responses, attribute groups); full runs
// everything.
const (
	DetailBasic DetailLevel = "basic"
	DetailFull  DetailLevel = "full"
)

// ParseDetailLevel maps a config string onto a DetailLevel.
func ParseDetailLevel(s string) DetailLevel {
	if strings.EqualFold(s, string(DetailBasic)) {
		return DetailBasic
	}
	return DetailFull
}

// Config controls extraction behavior.
type Config struct {
	NavTimeout  time.Duration
	SettleDelay time.Duration
	DetailLevel DetailLevel
}

// Extractor runs the field rule table against loaded entity pages.
type Extractor struct {
	cfg    Config
	rules  []Rule
	logger *zap.Logger
}

// New builds an Extractor with the default rule table.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if cfg.DetailLevel == "" {
		cfg.DetailLevel = DetailFull
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, rules: defaultRules(), logger: logger}
}

// pageContext carries everything a strategy may inspect.
type pageContext struct {
	doc         *goquery.Document
	resolvedURL string
	bodyText    string
}

// Extract loads the candidate page and populates a record. A failed
// navigation returns the error; once the page is loaded the record is
// marked detailed regardless of how many individual fields resolve.
func (e *Extractor) Extract(ctx context.Context, sess scout.Session, candidate scout.CandidateRef, searchQuery string) (*scout.EntityRecord, error) {
	rec := &scout.EntityRecord{
		Rank:        candidate.Rank,
		PlaceURL:    candidate.CanonicalURL,
		SearchQuery: searchQuery,
	}

	start := time.Now()
	if _, err := sess.Navigate(ctx, candidate.CanonicalURL, e.cfg.NavTimeout); err != nil {
		return nil, err
	}
	metrics.ObserveNavigation("entity", time.Since(start))

	// Dynamic panels keep filling in after the document is ready.
	if err := sleep(ctx, e.cfg.SettleDelay); err != nil {
		return nil, err
	}

	rec.HasDetailedData = true

	html, err := sess.HTML(ctx)
	if err != nil {
		e.logger.Warn("read entity page failed", zap.String("url", candidate.CanonicalURL), zap.Error(err))
		return rec, nil
	}
	resolvedURL, err := sess.Location(ctx)
	if err != nil {
		resolvedURL = candidate.CanonicalURL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("parse entity page failed", zap.String("url", candidate.CanonicalURL), zap.Error(err))
		return rec, nil
	}

	e.Populate(rec, doc, resolvedURL)
	return rec, nil
}

// Populate fills rec from an already-parsed document. Pure with respect
// to its inputs; extraction is deterministic for fixed page content.
func (e *Extractor) Populate(rec *scout.EntityRecord, doc *goquery.Document, resolvedURL string) {
	pc := &pageContext{
		doc:         doc,
		resolvedURL: resolvedURL,
		bodyText:    doc.Find("body").Text(),
	}

	for _, rule := range e.rules {
		for _, strategy := range rule.Strategies {
			if value := strategy.eval(pc); value != "" {
				rule.Assign(rec, value)
				break
			}
		}
	}

	e.populateAddress(rec)
	rec.Location = resolveLocation(pc)

	rec.Categories = extractCategories(pc)
	if rec.MainCategory == nil && len(rec.Categories) > 0 {
		rec.MainCategory = &rec.Categories[0]
	}
	rec.Verified = extractVerified(pc)
	rec.OpeningHours = extractOpeningHours(pc)
	applyClosedFlags(rec, pc)

	if e.cfg.DetailLevel == DetailFull {
		rec.Photos, rec.PhotoCount = extractPhotos(pc)
		rec.OwnerResponses = extractOwnerResponses(pc)
		rec.PopularTimes = extractPopularTimes(pc)
		rec.ServiceOptions = extractAttributeGroup(pc, serviceOptionLabels)
		rec.Accessibility = extractAccessibility(pc)
		rec.Amenities = extractAttributeGroup(pc, amenityLabels)
		rec.BookingLinks = extractBookingLinks(pc)
		rec.ReviewTags = extractReviewTags(pc)
		rec.PeopleAlsoSearch = extractPeopleAlsoSearch(pc)
	}
}

func (e *Extractor) populateAddress(rec *scout.EntityRecord) {
	if rec.FullAddress == nil {
		return
	}
	parts := normalizer.ParseAddress(*rec.FullAddress)
	rec.Street = parts.Street
	rec.City = parts.City
	rec.State = parts.State
	rec.PostalCode = parts.PostalCode
	rec.Country = parts.Country
	// Without a distinct neighborhood segment the city doubles as one.
	rec.Neighborhood = parts.City
}

// resolveLocation tries the known positional encodings in priority
// order: URL data tokens, embedded page metadata, then data attributes.
func resolveLocation(pc *pageContext) *scout.LatLng {
	if loc := normalizer.ParseLatLngFromURL(pc.resolvedURL); loc != nil {
		return loc
	}
	if loc := metaCoords(pc, `meta[itemprop="latitude"]`, `meta[itemprop="longitude"]`); loc != nil {
		return loc
	}
	if loc := metaCoords(pc, `meta[property="og:latitude"]`, `meta[property="og:longitude"]`); loc != nil {
		return loc
	}
	return dataAttrCoords(pc)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
