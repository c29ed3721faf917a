// Package enricher harvests contact and provenance data from an
// entity's external website: emails, social profile links, embedded
// structured metadata, and founder/founding-year text matches.
//
// External sites render fine without JavaScript, so enrichment rides a
// plain HTTP collector instead of burning a browser session.
package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/placescout/placescout/internal/metrics"
	"github.com/placescout/placescout/internal/scout"
)

// Config controls enrichment behavior.
type Config struct {
	Timeout             time.Duration
	MaxEmails           int
	DeniedDomains       []string
	PerHostRPS          float64
	UserAgent           string
	MaxStructuredBlocks int
}

// Enricher fetches and mines external websites.
type Enricher struct {
	cfg      Config
	logger   *zap.Logger
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds an Enricher, filling zero config values with defaults.
func New(cfg Config, logger *zap.Logger) *Enricher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = 5
	}
	if cfg.DeniedDomains == nil {
		cfg.DeniedDomains = DefaultDeniedDomains()
	}
	if cfg.PerHostRPS <= 0 {
		cfg.PerHostRPS = 1
	}
	if cfg.MaxStructuredBlocks <= 0 {
		cfg.MaxStructuredBlocks = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		cfg:      cfg,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Enrich loads websiteURL and returns whatever could be harvested. A
// fetch failure degrades to an empty Enrichment plus the error for the
// caller's log; it never aborts the owning record.
func (e *Enricher) Enrich(ctx context.Context, websiteURL string) (scout.Enrichment, error) {
	var enrichment scout.Enrichment
	if !strings.HasPrefix(websiteURL, "http") {
		return enrichment, fmt.Errorf("unsupported website url %q", websiteURL)
	}
	if err := e.waitHost(ctx, websiteURL); err != nil {
		return enrichment, err
	}

	start := time.Now()
	body, err := e.fetch(websiteURL)
	if err != nil {
		return enrichment, err
	}
	metrics.ObserveNavigation("website", time.Since(start))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return enrichment, fmt.Errorf("parse website: %w", err)
	}
	return e.Mine(doc), nil
}

// Mine extracts every enrichment field from a parsed website document.
// Pure and deterministic for a given document.
func (e *Enricher) Mine(doc *goquery.Document) scout.Enrichment {
	text := doc.Find("body").Text()
	enrichment := scout.Enrichment{
		Emails:         e.harvestEmails(text),
		Social:         harvestSocial(doc),
		StructuredData: e.harvestStructuredData(doc),
		About:          harvestAbout(doc),
		Founder:        harvestFounder(text),
		YearFounded:    harvestYearFounded(text, time.Now().Year()),
	}
	metrics.AddEmails(len(enrichment.Emails))
	return enrichment
}

func (e *Enricher) fetch(rawURL string) ([]byte, error) {
	c := colly.NewCollector(colly.Async(false))
	c.SetRequestTimeout(e.cfg.Timeout)
	c.IgnoreRobotsTxt = false
	if e.cfg.UserAgent != "" {
		c.UserAgent = e.cfg.UserAgent
	}

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit website: %w", err)
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch website: %w", fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from %s", rawURL)
	}
	return body, nil
}

// waitHost applies the per-host politeness limiter.
func (e *Enricher) waitHost(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	e.mu.Lock()
	limiter, ok := e.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(e.cfg.PerHostRPS), 1)
		e.limiters[host] = limiter
	}
	e.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	return nil
}

func (e *Enricher) harvestStructuredData(doc *goquery.Document) []json.RawMessage {
	var blocks []json.RawMessage
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" || !json.Valid([]byte(raw)) {
			return true
		}
		blocks = append(blocks, json.RawMessage(raw))
		return len(blocks) < e.cfg.MaxStructuredBlocks
	})
	return blocks
}

var aboutSelectors = []string{
	`meta[name="description"]`,
	`meta[property="og:description"]`,
	".about-section",
	"#about",
	".description",
}

const (
	aboutMinLen = 20
	aboutMaxLen = 500
)

func harvestAbout(doc *goquery.Document) *string {
	for _, sel := range aboutSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text, ok := node.Attr("content")
		if !ok {
			text = node.Text()
		}
		text = strings.TrimSpace(text)
		if len(text) <= aboutMinLen {
			continue
		}
		if len(text) > aboutMaxLen {
			text = text[:aboutMaxLen]
		}
		return &text
	}
	return nil
}
