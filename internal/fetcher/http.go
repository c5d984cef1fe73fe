package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/data-qa/internal/resilience"
)

const downloadChunkSize = 16 * 1024

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds each download attempt end to end.
	Timeout time.Duration
	// MaxContentLength is the hard ceiling on downloaded bytes. The
	// download is truncated, not failed, once the ceiling is reached.
	MaxContentLength int64
	// RateLimiters holds per-host limiters; hosts without an entry
	// share a default limiter.
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher downloads cache copies over HTTP with rate limiting,
// transient-error retries, and a polling loop for 202 responses.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter

	// base wait of the 202 retry loop; grows threefold per retry and
	// gives up once it reaches wait202Limit
	wait202Base  time.Duration
	wait202Limit time.Duration
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxContentLength == 0 {
		opts.MaxContentLength = 10_000_000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "data-qa/1.0"
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:         opts,
		limiters:     limiters,
		fallback:     rate.NewLimiter(20, 20),
		wait202Base:  time.Second,
		wait202Limit: 120 * time.Second,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.fallback
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

// FetchToTemp downloads rawURL to a temporary file, truncating at the
// content-length ceiling. The temp file is removed on every error
// path.
func (f *HTTPFetcher) FetchToTemp(ctx context.Context, rawURL string) (string, error) {
	zap.L().Info("fetching cache copy", zap.String("url", rawURL))

	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp("", tempPattern(rawURL))
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create temp file")
	}

	written, err := copyCapped(tmp, resp.Body, f.opts.MaxContentLength)
	if closeErr := tmp.Close(); closeErr != nil && err == nil {
		err = eris.Wrap(closeErr, "fetcher: close temp file")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "fetcher: download %s", rawURL)
	}

	zap.L().Info("downloaded ok",
		zap.String("url", rawURL),
		zap.Int64("bytes", written),
	)
	return tmp.Name(), nil
}

// copyCapped copies src to dst up to limit bytes. Reaching the limit
// is a successful, truncated download.
func copyCapped(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	var written int64
	buf := make([]byte, downloadChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			remaining := limit - written
			if int64(n) >= remaining {
				if _, werr := dst.Write(buf[:remaining]); werr != nil {
					return written, werr
				}
				written += remaining
				zap.L().Warn("download exceeds size limit, truncating",
					zap.Int64("limit", limit),
				)
				return written, nil
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// get performs the request with transient-error retries, then polls
// through 202 "still processing" responses with 1s, 3s, 9s... waits
// until the wait reaches the cap.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := f.doOnce(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	wait := f.wait202Base
	for resp.StatusCode == http.StatusAccepted && wait < f.wait202Limit {
		_ = resp.Body.Close()
		zap.L().Debug("202 response, retrying",
			zap.String("url", rawURL),
			zap.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrap(ctx.Err(), "fetcher: wait for 202 retry")
		case <-timer.C:
		}
		resp, err = f.doOnce(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		wait *= 3
	}

	if resp.StatusCode == http.StatusAccepted {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: gave up on %s: still status 202 after retries", rawURL)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: bad HTTP response %d from %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}

// doOnce issues a single rate-limited GET, retrying transient network
// failures and 5xx responses.
func (f *HTTPFetcher) doOnce(ctx context.Context, rawURL string) (*http.Response, error) {
	return resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	}, func(ctx context.Context) (*http.Response, error) {
		if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL),
				resp.StatusCode,
			)
		}
		return resp, nil
	})
}
