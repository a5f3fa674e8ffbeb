// Package detail fetches and parses per-record detail pages under bounded
// concurrency.
package detail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/logger"
	"github.com/nziran/gradpipe/internal/retry"
)

// maxResponseBodyBytes limits the size of fetched detail responses.
const maxResponseBodyBytes = 5 * 1024 * 1024 // 5 MB

// Config configures the detail fetcher pool.
type Config struct {
	Workers        int
	UserAgent      string
	RequestTimeout time.Duration
	MaxRetries     int
}

// Pool fetches detail pages with a fixed worker budget. Each submitted
// reference yields exactly one DetailResult keyed by that reference,
// regardless of completion order or failures.
type Pool struct {
	client    *http.Client
	workers   int
	userAgent string
	timeout   time.Duration
	retryCfg  retry.Config
	log       logger.Interface
}

// NewPool creates a detail fetcher pool.
func NewPool(cfg Config, log logger.Interface) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		workers:   workers,
		userAgent: cfg.UserAgent,
		timeout:   cfg.RequestTimeout,
		retryCfg: retry.Config{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: time.Second,
			Multiplier:   2.0,
		},
		log: log,
	}
}

// FetchDetails fetches every reference in refs and returns one result per
// input. Failures become typed errors on the result, never missing entries.
// Completion order is unconstrained; callers re-associate by Ref.
func (p *Pool) FetchDetails(ctx context.Context, refs []string) []domain.DetailResult {
	if len(refs) == 0 {
		return nil
	}

	jobs := make(chan string)
	out := make(chan domain.DetailResult, len(refs))

	workers := p.workers
	if workers > len(refs) {
		workers = len(refs)
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				out <- p.fetchOne(ctx, ref)
			}
		}()
	}

	for _, ref := range refs {
		jobs <- ref
	}
	close(jobs)

	// In-flight fetches drain on their own timeouts; a returned result is
	// never discarded.
	wg.Wait()
	close(out)

	results := make([]domain.DetailResult, 0, len(refs))
	for res := range out {
		results = append(results, res)
	}

	return results
}

// fetchOne fetches and parses a single detail page, retrying transient
// failures before yielding a failure result.
func (p *Pool) fetchOne(ctx context.Context, ref string) domain.DetailResult {
	var body []byte
	err := retry.Retry(ctx, p.retryCfg, func() error {
		var fetchErr error
		body, fetchErr = p.fetch(ctx, ref)
		return fetchErr
	})
	if err != nil {
		p.log.Warn("detail fetch failed", "ref", ref, "error", err)
		return domain.DetailResult{Ref: ref, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.DetailResult{
			Ref: ref,
			Err: &domain.ParseError{URL: ref, Detail: "invalid html: " + err.Error()},
		}
	}

	return domain.DetailResult{Ref: ref, Fields: extractFields(doc)}
}

func (p *Pool) fetch(ctx context.Context, ref string) ([]byte, error) {
	reqCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ref, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: ref, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{URL: ref, Err: err}
	}

	return body, nil
}
