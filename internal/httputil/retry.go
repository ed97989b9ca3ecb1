// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across fetch components.
package httputil

import (
	"context"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for linear backoff between
// attempts. Tests override this to avoid real sleeps.
var RetryBaseDelay = 400 * time.Millisecond

const defaultMaxAttempts = 3

// Retryable reports whether a response status warrants another attempt:
// 429 and all 5xx codes.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request with bounded attempts and linear
// backoff (RetryBaseDelay, 2x, 3x, ...). Transport errors and retryable
// statuses both trigger another attempt; the body of a retried response is
// closed before sleeping. When maxAttempts is 0 the default (3) is used.
// If the context is cancelled during a backoff wait the function returns
// ctx.Err(). After the last attempt the final response or error is returned
// unchanged so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var resp *http.Response
	var err error
	for attempt := 1; ; attempt++ {
		resp, err = client.Do(req.Clone(ctx))
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= maxAttempts {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}

		backoff := time.Duration(attempt) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
