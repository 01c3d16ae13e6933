package source

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
)

const (
	defaultMaxRetries     = 3
	initialRetryBackoff   = 1 * time.Second
	maxRetryBackoff       = 30 * time.Second
	retryBackoffMultipler = 2
)

var networkErrorSubstrings = []string{
	"timeout",
	"i/o timeout",
	"tls handshake timeout",
	"broken pipe",
	"connection reset",
	"connection refused",
	"network is unreachable",
	"no route to host",
	"no such host",
}

type retryConfig struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sleep          func(context.Context, time.Duration) error
}

func defaultRetryConfig(maxRetries int) retryConfig {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return retryConfig{
		maxAttempts:    maxRetries,
		initialBackoff: initialRetryBackoff,
		maxBackoff:     maxRetryBackoff,
		sleep:          sleepWithContext,
	}
}

// executeWithRetry runs fn, retrying rate-limited failures with doubling
// backoff up to maxAttempts. All other failures return immediately.
func executeWithRetry(ctx context.Context, cfg retryConfig, sourceName string, fn func() error) error {
	if cfg.sleep == nil {
		cfg.sleep = sleepWithContext
	}
	backoff := cfg.initialBackoff

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRateLimited(err) {
			return err
		}
		if attempt > cfg.maxAttempts {
			return bqerr.RateLimited(sourceName, lastErr)
		}

		if err := cfg.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= retryBackoffMultipler
		if backoff > cfg.maxBackoff {
			backoff = cfg.maxBackoff
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRateLimited reports whether err is an upstream rate-limit response.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}

// classifyAPIError maps a Google API failure into the error taxonomy.
// role names the IAM role the failing source requires.
func classifyAPIError(err error, sourceName, role string) error {
	if err == nil {
		return nil
	}

	var typed *bqerr.Error
	if errors.As(err, &typed) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return bqerr.Network(sourceName, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401:
			return bqerr.Authentication(err)
		case 403:
			return bqerr.PermissionDenied(sourceName, role, err)
		case 429:
			return bqerr.RateLimited(sourceName, err)
		case 500, 502, 503, 504:
			return bqerr.Network(sourceName, err)
		}
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated:
			return bqerr.Authentication(err)
		case codes.PermissionDenied:
			return bqerr.PermissionDenied(sourceName, role, err)
		case codes.ResourceExhausted:
			return bqerr.RateLimited(sourceName, err)
		case codes.Unavailable, codes.DeadlineExceeded:
			return bqerr.Network(sourceName, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return bqerr.Network(sourceName, err)
	}

	errText := strings.ToLower(err.Error())
	for _, marker := range networkErrorSubstrings {
		if strings.Contains(errText, marker) {
			return bqerr.Network(sourceName, err)
		}
	}
	if strings.Contains(errText, "could not find default credentials") ||
		strings.Contains(errText, "application default credentials") {
		return bqerr.Authentication(err)
	}

	return err
}
