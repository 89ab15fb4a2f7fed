package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/meli-tools/meli-scraper/internal/page"
	"github.com/meli-tools/meli-scraper/internal/ratelimit"
)

const waitPollInterval = 250 * time.Millisecond

// Source adapts one playwright page to page.Source.
type Source struct {
	pg         playwright.Page
	navTimeout time.Duration
	navRetries int
	limiter    ratelimit.RateLimiter
	logger     *slog.Logger
}

var _ page.Source = (*Source)(nil)

// Load navigates to url, retrying transient failures with a linear backoff.
// When the browser was configured with navigation delays, Load waits its
// turn first.
func (s *Source) Load(ctx context.Context, url string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	attempts := s.navRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			s.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
			}
		}

		_, err := s.pg.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.navTimeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		s.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// WaitForAny polls for the first of the locators to appear. The page keeps
// hydrating after domcontentloaded, so presence is sampled until the
// deadline; a quiet timeout reports false with no error.
func (s *Source) WaitForAny(ctx context.Context, locs []page.Locator, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		for _, loc := range locs {
			count, err := s.pg.Locator(selector(loc)).Count()
			if err != nil {
				return false, fmt.Errorf("waiting on %s: %w", loc, err)
			}
			if count > 0 {
				return true, nil
			}
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}

func (s *Source) Find(loc page.Locator) (page.Element, error) {
	return firstMatch(s.pg.Locator(selector(loc)), loc)
}

func (s *Source) FindAll(loc page.Locator) ([]page.Element, error) {
	return allMatches(s.pg.Locator(selector(loc)), loc)
}

func (s *Source) Close() error {
	return s.pg.Close()
}

// Element adapts a resolved playwright locator to page.Element.
type Element struct {
	loc playwright.Locator
}

var _ page.Element = (*Element)(nil)

func (e *Element) Find(loc page.Locator) (page.Element, error) {
	return firstMatch(e.loc.Locator(selector(loc)), loc)
}

func (e *Element) FindAll(loc page.Locator) ([]page.Element, error) {
	return allMatches(e.loc.Locator(selector(loc)), loc)
}

func (e *Element) Text() (string, error) {
	return e.loc.TextContent()
}

// Attribute reads the named attribute; playwright reports a missing
// attribute as an empty string, which matches the page.Element contract.
func (e *Element) Attribute(name string) (string, error) {
	return e.loc.GetAttribute(name)
}

func (e *Element) ScrollIntoView() error {
	return e.loc.ScrollIntoViewIfNeeded()
}

// selector renders a locator in playwright selector syntax; CSS is the
// default engine and XPath needs the explicit prefix.
func selector(loc page.Locator) string {
	if loc.Strategy == page.ByXPath {
		return "xpath=" + loc.Pattern
	}
	return loc.Pattern
}

func firstMatch(pl playwright.Locator, loc page.Locator) (page.Element, error) {
	first := pl.First()
	count, err := first.Count()
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	if count == 0 {
		return nil, page.ErrNoSuchElement
	}
	return &Element{loc: first}, nil
}

func allMatches(pl playwright.Locator, loc page.Locator) ([]page.Element, error) {
	count, err := pl.Count()
	if err != nil {
		return nil, fmt.Errorf("find all %s: %w", loc, err)
	}
	els := make([]page.Element, 0, count)
	for i := 0; i < count; i++ {
		els = append(els, &Element{loc: pl.Nth(i)})
	}
	return els, nil
}
