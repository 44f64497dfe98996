package upstream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/logging"
)

const maxUpstreamRetries = 3

// StreamWithRetry wraps one logical attempt with the upstream retry policy
// (§4.4, §9 "whole-attempt retry"): a 403 triggers an immediate forced
// token refresh and retry; a 429 or 5xx is retried with exponential backoff;
// any other error is returned unretried.
func (c *Client) StreamWithRetry(ctx context.Context, payload Payload) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		r, err := c.StreamRequest(ctx, payload, false)
		var pe *domain.ProxyError
		if err != nil && errors.As(err, &pe) && pe.Kind == domain.KindPermission {
			r, err = c.StreamRequest(ctx, payload, true)
		}
		if err != nil {
			if !domain.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(1*time.Second),
		backoff.WithMultiplier(2),
	), maxUpstreamRetries), ctx)

	err := backoff.RetryNotify(operation, bo, func(err error, wait time.Duration) {
		logging.Warnf("UC", "attempt failed, retrying in %s: %v", wait, err)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
