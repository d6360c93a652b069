package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const jitterPercent = 20

type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	RetryStatuses map[int]bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests:    true,
			http.StatusRequestTimeout:     true,
			http.StatusBadGateway:         true,
			http.StatusServiceUnavailable: true,
			http.StatusGatewayTimeout:     true,
		},
	}
}

// NewBackoff returns an exponential schedule starting at base, capped at max, with
// +/-20% jitter, that stops after retries delays.
func NewBackoff(base, max time.Duration, retries int) retry.Backoff {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if retries < 0 {
		retries = 0
	}
	b := retry.NewExponential(base)
	if max > 0 {
		b = retry.WithCappedDuration(max, b)
	}
	b = retry.WithJitterPercent(jitterPercent, b)
	return retry.WithMaxRetries(uint64(retries), b)
}

// withRetryAfter lets a collaborator's Retry-After replace the next scheduled delay.
func withRetryAfter(hint *time.Duration, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		if *hint > 0 {
			d, *hint = *hint, 0
		}
		return d, false
	})
}

// doWithRetry sends the request built by buildReq, retrying timeouts, dropped
// connections and the configured statuses. The last response is returned alongside
// an HTTPError so callers can inspect its status.
func doWithRetry(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var (
		resp       *http.Response
		body       []byte
		retryAfter time.Duration
	)
	backoff := withRetryAfter(&retryAfter, NewBackoff(cfg.BaseDelay, cfg.MaxDelay, cfg.MaxAttempts-1))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, body = nil, nil

		req, err := buildReq(ctx)
		if err != nil {
			return err
		}
		r, err := client.Do(req)
		if err != nil {
			if isRetryableNetErr(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		b, err := readAndClose(r.Body)
		resp, body = r, b
		if err != nil {
			return err
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			return nil
		}

		herr := &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: r.StatusCode,
			Body:       b,
		}
		if cfg.RetryStatuses[r.StatusCode] {
			retryAfter = ParseRetryAfter(r)
			return retry.RetryableError(herr)
		}
		return herr
	})

	if err != nil && ctx.Err() != nil {
		return nil, nil, err
	}
	return resp, body, err
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
