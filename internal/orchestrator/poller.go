package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"server/internal/domain"
	"server/internal/providers/image"
)

// startPolling schedules the recurring status poll for the given job. Any
// existing poller is canceled first: at most one may be live at a time.
func (c *Controller) startPolling(seq uint64, jobID string) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.stopPollingLocked()
	pollCtx, cancel := context.WithCancel(c.ctx)
	c.pollCancel = cancel
	c.retryAvailable = true
	c.setStageLocked(domain.StagePolling, "Generating image")
	c.mu.Unlock()

	atomic.AddInt32(&c.activePolls, 1)
	go func() {
		defer atomic.AddInt32(&c.activePolls, -1)
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				if done := c.pollOnce(pollCtx, seq, jobID); done {
					return
				}
			}
		}
	}()
}

// stopPollingLocked cancels the live poll timer, if any. Callers hold the
// mutex. Invoked on new run start, new job start, terminal status, permanent
// poll errors, and controller teardown.
func (c *Controller) stopPollingLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// pollOnce issues a single status request and folds the result into the state
// machine. It returns true when polling must stop: terminal status, permanent
// error, or the run has been superseded. Shared by the timer and the manual
// "check status" action.
func (c *Controller) pollOnce(ctx context.Context, seq uint64, jobID string) bool {
	res, err := c.opts.Jobs.Status(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		var serr *image.StatusError
		if errors.As(err, &serr) && serr.Permanent() {
			// A 4xx answer means the job id itself is bad; retrying
			// cannot help.
			return c.fail(seq, fmt.Sprintf("Image generation unavailable: %s", err))
		}
		// Transient transport, server, or parse trouble: the next tick
		// retries.
		c.opts.Logger.Warn().Err(err).Str("job_id", jobID).Msg("poll failed, will retry")
		return false
	}

	switch res.Status {
	case domain.JobStatusSucceeded:
		if len(res.Output) == 0 {
			return c.fail(seq, "Image generation succeeded but returned no output")
		}
		url := res.Output[0]
		c.apply(seq, func() {
			c.stopPollingLocked()
			if c.job != nil {
				c.job.Status = domain.JobStatusSucceeded
				c.job.ResultURL = url
			}
			c.resultURL = url
			c.stage = domain.StageSucceeded
			c.statusMessage = "Your postcard is ready"
			c.loading = false
			c.retryAvailable = false
		})
		return true

	case domain.JobStatusFailed, domain.JobStatusCanceled:
		reason := res.ErrorReason
		if reason == "" {
			reason = "Unknown"
		}
		c.mu.Lock()
		if seq == c.seq {
			if c.job != nil {
				c.job.Status = res.Status
				c.job.ErrorReason = reason
			}
			c.failLocked(fmt.Sprintf("Image generation %s: %s", res.Status, reason))
		}
		c.mu.Unlock()
		return true

	case domain.JobStatusProcessing, domain.JobStatusStarting:
		return !c.apply(seq, func() {
			if c.job != nil {
				c.job.Status = res.Status
			}
			c.statusMessage = fmt.Sprintf("Image generation %s", res.Status)
		})

	default:
		// Non-fatal anomaly: surface a warning, keep the timer and the
		// manual-retry affordance.
		c.opts.Logger.Warn().Str("job_id", jobID).Str("status", string(res.Status)).Msg("job reported unexpected status")
		return !c.apply(seq, func() {
			c.statusMessage = fmt.Sprintf("Job reported unexpected status %q", string(res.Status))
		})
	}
}
