package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/placescout/placescout/internal/scout"
)

const opTimeout = 15 * time.Second

// Session is one exclusive browser tab. It implements scout.Session.
type Session struct {
	pool      *Pool
	ctx       context.Context
	cancel    context.CancelFunc
	userAgent string
	released  atomic.Bool
}

// Navigate loads url, waits for the body to be ready, and returns the
// resolved location. Failures come back as *scout.NavigationError.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var finalURL string
	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Location(&finalURL),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return "", &scout.NavigationError{URL: url, Err: err}
	}
	return finalURL, nil
}

// HTML returns the rendered outer HTML of the current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read outer html: %w", err)
	}
	return html, nil
}

// Location returns the current document URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	var loc string
	if err := chromedp.Run(opCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// ScrollToBottom scrolls the element matching selector to its bottom,
// which is how the results feed loads further candidates.
func (s *Session) ScrollToBottom(ctx context.Context, selector string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (el) { el.scrollTop = el.scrollHeight; } })()`,
		selector,
	)
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll %q: %w", selector, err)
	}
	return nil
}

func (s *Session) guard(ctx context.Context) error {
	if s.released.Load() {
		return fmt.Errorf("session already released")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Session) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.userAgent != "" {
			if err := emulation.SetUserAgentOverride(s.userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		headers := network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		return nil
	})
}
