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
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/meli-tools/meli-scraper/internal/browser"
	"github.com/meli-tools/meli-scraper/internal/config"
	"github.com/meli-tools/meli-scraper/internal/queue"
	"github.com/meli-tools/meli-scraper/internal/ratelimit"
	"github.com/meli-tools/meli-scraper/internal/scraper"
	"github.com/meli-tools/meli-scraper/pkg/logger"
)

func main() {
	var (
		urls      = flag.String("urls", "", "Comma-separated product page URLs to capture")
		inputFile = flag.String("file", "", "File containing product page URLs (one per line)")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
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
	logger.Info("starting product capture run")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	b, err := browser.New(browserOptions(cfg, *headless))
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	var pending sync.WaitGroup
	count, err := loadTasks(taskQueue, &pending, *urls, *inputFile)
	if err != nil {
		logger.Error("failed to load tasks", "error", err)
		os.Exit(1)
	}
	if count == 0 {
		fmt.Fprintln(os.Stderr, "No URLs to capture. Use -urls or -file to specify product pages.")
		flag.Usage()
		os.Exit(1)
	}

	// Close the queue once every task, including requeued retries, is done;
	// workers then drain out on ErrQueueClosed.
	go func() {
		pending.Wait()
		taskQueue.Close()
	}()

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	w := &captureWorker{
		browser:    b,
		products:   scraper.NewProductScraper(logger, cfg.Scraper.ReadyTimeout),
		queue:      taskQueue,
		pending:    &pending,
		limiter:    ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax),
		maxRetries: cfg.Scraper.MaxRetries,
		out:        out,
		logger:     logger,
	}

	logger.Info("starting capture workers", "tasks", count, "workers", cfg.Scraper.ConcurrentLimit)

	var workers sync.WaitGroup
	for i := 0; i < cfg.Scraper.ConcurrentLimit; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			w.run(ctx)
		}()
	}
	workers.Wait()

	logger.Info("capture run complete")
}

// captureWorker pulls URL tasks off the queue and captures them one page
// source per task. Failed captures are requeued until maxRetries.
type captureWorker struct {
	browser    *browser.Browser
	products   *scraper.ProductScraper
	queue      *queue.InMemoryQueue
	pending    *sync.WaitGroup
	limiter    *ratelimit.AdaptiveRateLimiter
	maxRetries int
	out        *json.Encoder
	outMu      sync.Mutex
	logger     *slog.Logger
}

func (w *captureWorker) run(ctx context.Context) {
	for {
		task, err := w.queue.Pop(ctx)
		if err != nil {
			return
		}

		if err := w.limiter.Wait(ctx); err != nil {
			w.pending.Done()
			return
		}

		w.process(ctx, task)
		w.pending.Done()
	}
}

func (w *captureWorker) process(ctx context.Context, task *queue.Task) {
	logger := w.logger.With("task_id", task.ID, "url", task.URL)

	src, err := w.browser.NewSource()
	if err != nil {
		logger.Error("failed to open page source", "error", err)
		w.limiter.RecordError()
		w.retry(task, logger)
		return
	}

	rec, err := w.products.Scrape(ctx, src, task.URL)
	if cerr := src.Close(); cerr != nil {
		logger.Warn("failed to close page source", "error", cerr)
	}

	if err != nil {
		logger.Error("capture failed", "error", err)
		w.limiter.RecordError()
		w.retry(task, logger)
		return
	}

	w.limiter.RecordSuccess()

	w.outMu.Lock()
	defer w.outMu.Unlock()
	if err := w.out.Encode(rec); err != nil {
		logger.Error("failed to write record", "error", err)
	}
}

func (w *captureWorker) retry(task *queue.Task, logger *slog.Logger) {
	if task.Retries >= w.maxRetries {
		logger.Error("giving up on task", "retries", task.Retries)
		return
	}

	task.Retries++
	w.pending.Add(1)
	if err := w.queue.Push(task); err != nil {
		w.pending.Done()
		logger.Error("failed to requeue task", "error", err)
		return
	}
	logger.Info("task requeued", "attempt", task.Retries)
}

func loadTasks(q queue.Queue, pending *sync.WaitGroup, urls, inputFile string) (int, error) {
	var items []string

	if urls != "" {
		items = append(items, strings.Split(urls, ",")...)
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return 0, fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				items = append(items, line)
			}
		}
	}

	count := 0
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.HasPrefix(item, "http://") && !strings.HasPrefix(item, "https://") {
			item = "https://" + item
		}

		pending.Add(1)
		if err := q.Push(&queue.Task{
			ID:        uuid.NewString(),
			URL:       item,
			CreatedAt: time.Now(),
		}); err != nil {
			pending.Done()
			return count, err
		}
		count++
	}

	return count, nil
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
