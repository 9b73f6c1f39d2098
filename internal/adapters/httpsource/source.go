package httpsource

import (
	"context"
	crand "crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"market_intel/internal/adapters/observability"
)

// maxDownloads bounds the bodies one Source keeps open at a time.
const maxDownloads = 2

// Source is a CSV export served over HTTP. Requests are rate limited and
// retried on 429 and transient 5xx.
type Source struct {
	name      string
	url       string
	hc        *http.Client
	key       string
	rl        *rate.Limiter
	downloads *semaphore.Weighted
}

func New(name, url, key string, rps int) (*Source, error) {
	if url == "" {
		return nil, fmt.Errorf("%s: URL is required", name)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Source{
		name: name,
		url:  url,
		hc:   &http.Client{Timeout: 60 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),

		downloads: semaphore.NewWeighted(maxDownloads),
	}, nil
}

func (s *Source) Name() string { return s.name }

// Signature identifies the current content from a HEAD request: the ETag when
// the server sends one, otherwise Last-Modified. Servers sending neither are
// fetched and hashed.
func (s *Source) Signature(ctx context.Context) (string, error) {
	resp, err := s.do(ctx, http.MethodHead)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if et := resp.Header.Get("ETag"); et != "" {
		return s.url + "#etag=" + et, nil
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		return s.url + "#modified=" + lm, nil
	}

	rc, err := s.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	h := sha1.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("%s: hash body: %w", s.name, err)
	}
	return s.url + "#sha1=" + hex.EncodeToString(h.Sum(nil)), nil
}

// Open fetches the export. The caller closes the body, which frees the
// download slot.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := s.downloads.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	resp, err := s.do(ctx, http.MethodGet)
	if err != nil {
		s.downloads.Release(1)
		return nil, err
	}
	return &body{ReadCloser: resp.Body, release: func() { s.downloads.Release(1) }}, nil
}

type body struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *body) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("httpsource: not found")
	ErrUnauthorized = errors.New("httpsource: unauthorized")
	ErrForbidden    = errors.New("httpsource: forbidden")
)

// do performs a request with client-side rate limiting and retries. On
// success the response body is left open.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (s *Source) do(ctx context.Context, method string) (*http.Response, error) {
	// client-side rate limiting
	if err := s.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, method, s.url, nil)
		if err != nil {
			return nil, err
		}
		if s.key != "" {
			req.Header.Set("Authorization", "Bearer "+s.key)
		}
		req.Header.Set("Accept", "text/csv, */*")
		req.Header.Set("User-Agent", "market-intel/1.0")

		start := time.Now()
		resp, err := s.hc.Do(req)
		if err != nil {
			observability.ObserveSource(s.name, method, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			// context-aware sleep before retry
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveSource(s.name, method, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			return resp, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, fmt.Errorf("%s: %w", s.url, ErrNotFound)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff: 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
