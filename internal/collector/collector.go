// Package collector drives one browser session across the map search
// feed, incrementally loading candidates until a target count is hit or
// the feed is exhausted.
package collector

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/placescout/placescout/internal/scout"
)

// Config controls collection behavior.
type Config struct {
	BaseURL        string
	MaxAttempts    int
	SettleDelay    time.Duration
	NavTimeout     time.Duration
	FeedSelector   string
	ResultSelector string
}

// Collector pages through a search results surface and accumulates an
// ordered, deduplicated set of candidate entity URLs.
type Collector struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Collector, filling zero config values with defaults.
func New(cfg Config, logger *zap.Logger) *Collector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.google.com/maps/search/"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 50
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 1800 * time.Millisecond
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if cfg.FeedSelector == "" {
		cfg.FeedSelector = `div[role="feed"]`
	}
	if cfg.ResultSelector == "" {
		cfg.ResultSelector = `a[href*="/maps/place/"]`
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{cfg: cfg, logger: logger}
}

// SearchURL returns the search surface URL for a term.
func (c *Collector) SearchURL(term string) string {
	return c.cfg.BaseURL + url.PathEscape(term)
}

// Collect navigates to the search surface for term and accumulates up
// to target candidates. An empty result is a valid outcome; only the
// initial navigation can fail.
func (c *Collector) Collect(ctx context.Context, sess scout.Session, term string, target int) ([]scout.CandidateRef, error) {
	if target <= 0 {
		return []scout.CandidateRef{}, nil
	}

	searchURL := c.SearchURL(term)
	resolved, err := sess.Navigate(ctx, searchURL, c.cfg.NavTimeout)
	if err != nil {
		return nil, err
	}
	base, parseErr := url.Parse(resolved)
	if parseErr != nil {
		base, _ = url.Parse(searchURL)
	}

	var (
		refs       []scout.CandidateRef
		seen       = make(map[string]struct{})
		noProgress = 0
	)

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		html, err := sess.HTML(ctx)
		if err != nil {
			c.logger.Warn("read search feed failed", zap.Int("attempt", attempt), zap.Error(err))
			break
		}

		added := c.harvest(html, base, seen, &refs, target)
		if len(refs) >= target {
			break
		}
		if added == 0 {
			noProgress++
			if noProgress >= 2 {
				break
			}
		} else {
			noProgress = 0
		}

		if err := sess.ScrollToBottom(ctx, c.cfg.FeedSelector); err != nil {
			c.logger.Warn("feed scroll failed", zap.Error(err))
			break
		}
		if err := sleep(ctx, c.cfg.SettleDelay); err != nil {
			break
		}
	}

	c.logger.Info("search collection finished",
		zap.String("term", term),
		zap.Int("target", target),
		zap.Int("collected", len(refs)),
	)
	return refs, nil
}

// harvest parses the rendered feed and appends unseen candidate links
// in document order. Returns the number of new candidates.
func (c *Collector) harvest(html string, base *url.URL, seen map[string]struct{}, refs *[]scout.CandidateRef, target int) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.logger.Warn("parse search feed failed", zap.Error(err))
		return 0
	}

	added := 0
	doc.Find(c.cfg.ResultSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		canonical := canonicalize(href, base)
		if canonical == "" {
			return true
		}
		if _, dup := seen[canonical]; dup {
			return true
		}
		seen[canonical] = struct{}{}
		*refs = append(*refs, scout.CandidateRef{
			CanonicalURL: canonical,
			Rank:         len(*refs) + 1,
		})
		added++
		return len(*refs) < target
	})
	return added
}

// canonicalize resolves href against base and strips the fragment so
// the same place linked twice dedupes to one candidate.
func canonicalize(href string, base *url.URL) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !strings.Contains(u.Path, "/maps/place/") {
		return ""
	}
	u.Fragment = ""
	return u.String()
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
