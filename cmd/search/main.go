package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/meli-tools/meli-scraper/internal/browser"
	"github.com/meli-tools/meli-scraper/internal/config"
	"github.com/meli-tools/meli-scraper/internal/scraper"
	"github.com/meli-tools/meli-scraper/pkg/logger"
)

func main() {
	var (
		url      = flag.String("url", "", "Results listing URL to traverse")
		limit    = flag.Int("limit", 0, "Maximum number of items to collect (default from SEARCH_ITEM_LIMIT)")
		pages    = flag.Int("pages", 0, "Maximum number of pages to visit (default from SEARCH_PAGE_LIMIT)")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if *url == "" {
		fmt.Fprintln(os.Stderr, "No listing URL. Use -url to specify the results page to traverse.")
		flag.Usage()
		os.Exit(1)
	}

	itemLimit := *limit
	if itemLimit <= 0 {
		itemLimit = cfg.Search.ItemLimit
	}
	pageLimit := *pages
	if pageLimit <= 0 {
		pageLimit = cfg.Search.PageLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	opts := browserOptions(cfg, *headless)
	// Pace page-to-page navigation; a listing traversal hits the site in a
	// tight loop otherwise.
	opts.NavDelayMin = cfg.Scraper.RateLimitMin
	opts.NavDelayMax = cfg.Scraper.RateLimitMax

	b, err := browser.New(opts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	src, err := b.NewSource()
	if err != nil {
		logger.Error("failed to open page source", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	search := scraper.NewSearchScraper(logger)
	results, err := search.Scrape(ctx, src, *url, itemLimit, pageLimit)
	if err != nil {
		logger.Error("listing traversal failed", "error", err)
		os.Exit(1)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(results); err != nil {
		logger.Error("failed to write results", "error", err)
		os.Exit(1)
	}
}

func browserOptions(cfg *config.Config, headless bool) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = headless && cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.NavRetries = cfg.Browser.NavRetries
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Browser.ProxyServer
	if cfg.Browser.UserAgent != "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}
	return opts
}
