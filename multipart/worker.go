package multipart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bitrise-io/go-multipart-uploader/multipart/content"
	"github.com/bitrise-io/go-multipart-uploader/multipart/network"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/docker/go-units"
)

// dispatchLoop is the only goroutine sending fragments of an Uploader. Start never spawns
// a second one while it runs, which keeps part numbers in order on the remote side.
func (u *Uploader) dispatchLoop(ctx context.Context) {
	for u.shouldDispatch() {
		part, err := u.uploadFragment(ctx)
		if !u.complete(part, err) {
			return
		}
	}
}

// shouldDispatch is the dispatch decision point where Pause and Cancel take effect.
func (u *Uploader) shouldDispatch() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state == StateExecuting {
		return true
	}
	u.running = false
	if u.state == StatePaused {
		u.logger.Infof("Upload paused at fragment %d/%d", u.content.CurrentFragment()+1, u.content.TotalFragments())
		u.run.settle()
	}
	return false
}

// complete applies the outcome of one fragment and reports whether dispatching continues.
func (u *Uploader) complete(part Part, err error) bool {
	u.mu.Lock()

	if u.state == StateCancelled {
		u.running = false
		u.mu.Unlock()
		u.logger.Debugf("Discarding fragment result of cancelled upload")
		return false
	}

	if err == nil {
		if err = u.content.Advance(); err == nil {
			u.stats.record(part)
		}
	}
	if err != nil {
		u.state = StateFailed
		u.err = err
		u.running = false
		r := u.run
		u.mu.Unlock()

		u.logger.Errorf("Upload of %s failed: %s", u.content.FilePath(), err)
		u.deliver(StateFailed, err, r)
		return false
	}

	current, total := u.content.CurrentFragment(), u.content.TotalFragments()
	if progress := float64(current) / float64(total); progress > u.progress {
		u.progress = progress
	}

	if current == total {
		u.state = StateFinished
		u.running = false
		r := u.run
		u.mu.Unlock()

		u.logger.Donef("Uploaded %s in %d fragment(s), %v total (%s/s)", u.content.FilePath(), total,
			u.stats.TotalDuration().Round(time.Millisecond), units.HumanSizeWithPrecision(u.stats.Throughput(), 3))
		u.deliver(StateFinished, nil, r)
		return false
	}

	u.mu.Unlock()
	return true
}

func (u *Uploader) uploadFragment(ctx context.Context) (Part, error) {
	if !u.content.IsReady() {
		return Part{}, fmt.Errorf("upload %s: %w", u.content.FilePath(), content.ErrNotReady)
	}
	sessionID, err := u.content.BeginSession()
	if err != nil {
		return Part{}, ErrSessionNotSet
	}
	u.client.SetSessionID(sessionID)

	index, total := u.content.CurrentFragment(), u.content.TotalFragments()
	body, err := u.content.Next()
	if err != nil {
		return Part{}, fmt.Errorf("get fragment %d/%d: %w", index+1, total, err)
	}

	headers := map[string]string{
		network.HeaderContentType: u.contentType.MIMEType(),
		network.HeaderPartNumber:  strconv.Itoa(index + 1),
		network.HeaderPartsTotal:  strconv.Itoa(total),
	}
	headers[u.config.Digester.Header()] = u.config.Digester.Digest(body)

	u.logger.Debugf("Uploading fragment %d/%d (%s) [finished=%d] [avg=%v]",
		index+1, total, units.HumanSizeWithPrecision(float64(len(body)), 3),
		u.stats.FinishedCount(), u.stats.Average().Round(time.Millisecond))

	start := time.Now()
	if err := u.putWithRetry(ctx, index, headers, body); err != nil {
		return Part{}, fmt.Errorf("upload fragment %d/%d: %w", index+1, total, err)
	}

	took := time.Since(start)
	u.logger.Debugf("Fragment %d/%d accepted in %v", index+1, total, took.Round(time.Millisecond))

	return Part{Number: index + 1, Bytes: len(body), Duration: took}, nil
}

// putWithRetry repeats transport failures up to FragmentRetries times.
// Remote rejections and cancellation end the attempts immediately.
func (u *Uploader) putWithRetry(ctx context.Context, index int, headers map[string]string, body []byte) error {
	destination := u.content.Remote().String()

	var lastErr error
	return retry.Times(u.config.FragmentRetries).Wait(u.config.RetryWait).TryWithAbort(func(attempt uint) (error, bool) {
		if attempt > 0 {
			if u.State() == StateCancelled {
				return lastErr, true
			}
			u.logger.Warnf("Retrying fragment %d (attempt %d/%d)", index+1, attempt+1, u.config.FragmentRetries+1)
		}

		_, err := u.client.Put(ctx, destination, headers, body)
		if err == nil {
			return nil, true
		}
		lastErr = err

		var rejected *network.RemoteRejectedError
		if errors.As(err, &rejected) {
			return err, true
		}
		u.logger.Warnf("Fragment %d attempt %d failed: %s", index+1, attempt+1, err)
		return err, false
	})
}
