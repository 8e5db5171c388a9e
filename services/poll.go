package services

import (
	"context"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"
)

// DefaultPollInterval is the fixed delay between two status checks.
const DefaultPollInterval = time.Second

// StatusQuery reads the current status of whatever is being polled.
type StatusQuery func(ctx context.Context) (models.StatusCode, error)

/**
 * Poll a status until it reaches a target
 * @param {context.Context} ctx - Cancels the poll between two checks
 * @param {StatusQuery} query - Status source, an error aborts the poll
 * @param {models.StatusCode} target - Status to wait for
 * @param {time.Duration} timeout - Upper bound for the whole poll
 * @param {time.Duration} interval - Fixed delay between checks, DefaultPollInterval if <= 0
 * @returns {bool} True as soon as query reports target, false once timeout is exceeded
 * @returns {error} Error returned by query, or the context error
 * @description
 * - The status is checked at least once, and once more when the timeout is reached
 * - StatusError is logged and polling continues
 * - Sleeps never extend past the timeout
 */
func PollUntil(ctx context.Context, query StatusQuery, target models.StatusCode, timeout, interval time.Duration) (bool, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		status, err := query(ctx)
		if err != nil {
			return false, err
		}
		if status == target {
			return true, nil
		}
		if status == models.StatusError {
			logger.Warnf("Cannot determine status while waiting for %s", target)
		} else {
			logger.Debugf("Status is %s, waiting for %s", status, target)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.Errorf("Status %s not reached, timeout of %s reached", target, timeout)
			return false, nil
		}
		wait := interval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}
