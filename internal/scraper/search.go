package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meli-tools/meli-scraper/internal/extract"
	"github.com/meli-tools/meli-scraper/internal/models"
	"github.com/meli-tools/meli-scraper/internal/page"
)

// SearchScraper walks a results listing page by page, following the "next"
// link until it runs out of pages or hits the caller's bounds. A malformed
// item card is skipped; a broken page source aborts the traversal.
type SearchScraper struct {
	resolver *extract.Resolver
	logger   *slog.Logger
}

func NewSearchScraper(logger *slog.Logger) *SearchScraper {
	return &SearchScraper{
		resolver: extract.NewResolver(logger),
		logger:   logger.With("component", "search_scraper"),
	}
}

// Scrape collects up to itemLimit items from at most pageLimit pages,
// starting at startURL. Non-positive bounds fall back to the defaults. The
// results collected so far are never discarded by running out of pages; a
// listing whose last page has no "next" link simply ends the traversal.
func (ss *SearchScraper) Scrape(ctx context.Context, src page.Source, startURL string, itemLimit, pageLimit int) ([]models.SearchResultItem, error) {
	if itemLimit <= 0 {
		itemLimit = DefaultItemLimit
	}
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}

	logger := ss.logger.With("traversal_id", uuid.NewString(), "start_url", startURL)
	logger.Info("starting listing traversal", "item_limit", itemLimit, "page_limit", pageLimit)

	results := make([]models.SearchResultItem, 0, itemLimit)
	current := startURL

	for visited := 0; visited < pageLimit && len(results) < itemLimit; {
		if err := src.Load(ctx, current); err != nil {
			return nil, fmt.Errorf("load results page %d: %w", visited+1, err)
		}

		items, err := src.FindAll(searchItemLocator)
		if err != nil {
			return nil, &extract.InfrastructureError{Op: "find_all", Locator: searchItemLocator.String(), Err: err}
		}
		logger.Info("results page loaded", "page", visited+1, "items", len(items))

		for _, item := range items {
			if len(results) >= itemLimit {
				break
			}
			entry, ok, err := ss.extractItem(item)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Debug("skipping incomplete result card", "page", visited+1)
				continue
			}
			results = append(results, entry)
		}

		visited++
		if visited >= pageLimit || len(results) >= itemLimit {
			break
		}

		next, err := ss.resolver.Resolve(src, nextPageLocators)
		if err != nil {
			return nil, fmt.Errorf("next page link: %w", err)
		}
		if !next.Found {
			logger.Info("no next page, traversal complete", "pages", visited)
			break
		}
		current = next.Value
	}

	logger.Info("listing traversal complete", "items", len(results))
	return results, nil
}

// extractItem reads one result card. A card missing any of title, link or
// price reports ok=false and is dropped by the caller; only capability
// failures escalate.
func (ss *SearchScraper) extractItem(item page.Element) (models.SearchResultItem, bool, error) {
	title, err := ss.resolver.Resolve(item, searchTitleLocators)
	if err != nil {
		return models.SearchResultItem{}, false, fmt.Errorf("result title: %w", err)
	}
	link, err := ss.resolver.Resolve(item, searchLinkLocators)
	if err != nil {
		return models.SearchResultItem{}, false, fmt.Errorf("result link: %w", err)
	}
	price, err := ss.resolver.Resolve(item, searchPriceLocators)
	if err != nil {
		return models.SearchResultItem{}, false, fmt.Errorf("result price: %w", err)
	}

	if !title.Found || !link.Found || !price.Found {
		return models.SearchResultItem{}, false, nil
	}
	return models.SearchResultItem{
		Title: title.Value,
		Link:  link.Value,
		Price: price.Value,
	}, true, nil
}
