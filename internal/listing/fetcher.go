// Package listing fetches and parses pages of the paginated survey listing.
package listing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/logger"
	"github.com/nziran/gradpipe/internal/retry"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Config configures the listing fetcher.
type Config struct {
	BaseURL        string
	UserAgent      string
	PageDelay      time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
}

// Fetcher retrieves and parses one listing page at a time. A rate limiter
// enforces the configured inter-request delay before each request.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	retryCfg  retry.Config
	log       logger.Interface
}

// NewFetcher creates a listing fetcher.
func NewFetcher(cfg Config, log logger.Interface) *Fetcher {
	delay := cfg.PageDelay
	if delay <= 0 {
		delay = time.Millisecond
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		retryCfg: retry.Config{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: time.Second,
			Multiplier:   2.0,
		},
		log: log,
	}
}

// FetchPage retrieves and parses the listing page at pageIndex. Page-level
// fetch failures are retried with backoff before being reported; row-level
// parse failures are counted on the returned page, never returned as errors.
func (f *Fetcher) FetchPage(ctx context.Context, pageIndex int) (*domain.ListingPage, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle wait: %w", err)
	}

	pageURL := fmt.Sprintf("%s?page=%d", f.baseURL, pageIndex)

	var body []byte
	err := retry.Retry(ctx, f.retryCfg, func() error {
		var fetchErr error
		body, fetchErr = f.fetch(ctx, pageURL)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	page, err := ParsePage(bytes.NewReader(body), pageURL, pageIndex)
	if err != nil {
		return nil, err
	}

	if page.ParseFailures > 0 {
		f.log.Warn("listing rows skipped",
			"page", pageIndex,
			"skipped", page.ParseFailures,
			"parsed", len(page.Records))
	}

	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{URL: pageURL, Err: err}
	}

	return body, nil
}
