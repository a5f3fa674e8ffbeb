package listing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/listing"
	"github.com/nziran/gradpipe/internal/logger"
)

func newFetcher(baseURL string, maxRetries int) *listing.Fetcher {
	return listing.NewFetcher(listing.Config{
		BaseURL:        baseURL,
		UserAgent:      "test-agent",
		PageDelay:      time.Millisecond,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     maxRetries,
	}, logger.NewNoOp())
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL+"/survey/", 3)

	page, err := f.FetchPage(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, page.Records, 2)
}

func TestFetchPageDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFetcher(srv.URL+"/survey/", 3)

	_, err := f.FetchPage(context.Background(), 1)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestFetchPageSendsPageQuery(t *testing.T) {
	t.Parallel()

	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte("<html><body><table></table></body></html>"))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL+"/survey/", 1)

	_, err := f.FetchPage(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "page=42", gotQuery.Load())
}

func TestFetchPageCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL+"/survey/", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchPage(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
