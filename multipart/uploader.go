// Package multipart uploads a file as an ordered series of size-bounded fragments,
// one authenticated PUT request per fragment.
//
// An Uploader dispatches fragments from a single worker goroutine, so fragment N+1 is
// never sent before the remote accepted fragment N. Start, Pause and Cancel are
// observed at the next dispatch decision; a request already in flight always runs
// to completion or timeout.
package multipart

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/bitrise-io/go-multipart-uploader/multipart/content"
	"github.com/bitrise-io/go-multipart-uploader/multipart/network"
	"github.com/bitrise-io/go-multipart-uploader/multipart/notify"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// Uploader drives the fragment upload of one file.
type Uploader struct {
	config      Config
	contentType ContentType
	content     *content.Content
	client      *network.Client
	logger      log.Logger
	stats       *Stats
	callbacks   callbacks

	mu       sync.Mutex
	state    State
	progress float64
	err      error
	running  bool
	run      *run
}

// run is one Executing period, from Start until dispatch stops.
type run struct {
	done chan struct{}
	once sync.Once
}

func newRun() *run {
	return &run{done: make(chan struct{})}
}

func (r *run) settle() {
	r.once.Do(func() { close(r.done) })
}

// New creates an Uploader for the file at path. Fragments are PUT to destination.
func New(path string, destination *url.URL, contentType ContentType, config Config) (*Uploader, error) {
	config = config.withDefaults()

	c, err := content.New(path, destination, config.MaxFragmentSize)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	var client *network.Client
	if config.HTTPClient != nil {
		client = network.NewClientWithHTTPClient(config.HTTPClient, config.Timeout, config.ConnectionRetries, config.Logger)
	} else {
		client = network.NewClient(config.Timeout, config.ConnectionRetries, config.Logger)
	}

	return &Uploader{
		config:      config,
		contentType: contentType,
		content:     c,
		client:      client,
		logger:      config.Logger,
		stats:       newStats(),
		state:       StateIdle,
		run:         newRun(),
	}, nil
}

// SetSessionID binds every fragment of the upload to the session.
// It fails with content.ErrInvalidState once a fragment was sent.
func (u *Uploader) SetSessionID(id string) error {
	return u.content.SetSessionID(id)
}

// SetContentString uploads s instead of the file contents.
func (u *Uploader) SetContentString(s string) error {
	return u.content.SetContentString(s)
}

// AddDoneCallback adds fn to the callbacks run after a successful upload.
// The returned function removes it again.
func (u *Uploader) AddDoneCallback(fn CompletionFunc) func() {
	return u.callbacks.addDone(fn)
}

// AddFailCallback adds fn to the callbacks run after a failed upload.
// The returned function removes it again.
func (u *Uploader) AddFailCallback(fn FailFunc) func() {
	return u.callbacks.addFail(fn)
}

// AddAlwaysCallback adds fn to the callbacks run at the end of an upload, whatever the outcome.
// The returned function removes it again.
func (u *Uploader) AddAlwaysCallback(fn CompletionFunc) func() {
	return u.callbacks.addAlways(fn)
}

// CallbackCounts returns the length of the done, fail and always chains.
func (u *Uploader) CallbackCounts() (done, fail, always int) {
	return u.callbacks.counts()
}

// Start begins or resumes dispatching fragments from the current cursor.
// A failed upload can be started again; finished and cancelled uploads can't.
func (u *Uploader) Start() error {
	u.mu.Lock()

	switch u.state {
	case StateExecuting:
		u.mu.Unlock()
		return ErrAlreadyExecuting
	case StateFinished, StateCancelled:
		state := u.state
		u.mu.Unlock()
		return fmt.Errorf("start %s upload: %w", state, ErrTerminated)
	}

	// A worker that hasn't noticed the pause yet keeps serving the same run.
	resumed := u.state == StatePaused && u.running
	if !resumed {
		u.run = newRun()
	}
	u.state = StateExecuting
	u.err = nil
	spawn := !u.running
	u.running = true
	current, total := u.content.CurrentFragment(), u.content.TotalFragments()
	u.mu.Unlock()

	u.logger.Infof("Starting upload of %s (%s) from fragment %d/%d", u.content.FilePath(), units.HumanSizeWithPrecision(float64(u.content.Size()), 3), current+1, total)

	if spawn {
		go u.dispatchLoop(context.Background())
	}
	return nil
}

// Pause stops dispatching after the fragment in flight, if any, completes.
func (u *Uploader) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateExecuting {
		return fmt.Errorf("pause %s upload: %w", u.state, ErrNotExecuting)
	}
	u.state = StatePaused
	u.logger.Infof("Pausing upload at fragment %d/%d", u.content.CurrentFragment()+1, u.content.TotalFragments())
	return nil
}

// Cancel stops the upload for good. The result of a fragment in flight is discarded.
// Only the always callbacks run.
func (u *Uploader) Cancel() error {
	u.mu.Lock()
	if u.state.Terminal() {
		state := u.state
		u.mu.Unlock()
		return fmt.Errorf("cancel %s upload: %w", state, ErrTerminated)
	}
	u.state = StateCancelled
	// A stopped worker already settled the run when it paused.
	if !u.running {
		u.run = newRun()
	}
	r := u.run
	u.mu.Unlock()

	u.logger.Warnf("Upload of %s cancelled", u.content.FilePath())
	u.deliver(StateCancelled, nil, r)
	return nil
}

// Wait blocks until the upload stops dispatching, and for terminal states until the
// callbacks ran. It returns the error of a failed upload, or ctx.Err() when ctx is done
// first. A fragment timeout also wraps context.DeadlineExceeded, so check ctx.Err()
// to tell the two apart.
func (u *Uploader) Wait(ctx context.Context) error {
	u.mu.Lock()
	if u.state == StateIdle {
		u.mu.Unlock()
		return nil
	}
	r := u.run
	u.mu.Unlock()

	select {
	case <-r.done:
		return u.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current execution state.
func (u *Uploader) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// IsExecuting reports whether fragments are being dispatched.
func (u *Uploader) IsExecuting() bool {
	return u.State() == StateExecuting
}

// IsFinished reports whether every fragment was accepted.
func (u *Uploader) IsFinished() bool {
	return u.State() == StateFinished
}

// Progress goes from 0.0 to 1.0 and never decreases.
func (u *Uploader) Progress() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.progress
}

// Err returns the error that failed the upload, nil unless the state is StateFailed.
func (u *Uploader) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// CurrentFragment returns the 0-based index of the next fragment to send.
func (u *Uploader) CurrentFragment() int {
	return u.content.CurrentFragment()
}

// TotalFragments returns the number of fragments of the upload.
func (u *Uploader) TotalFragments() int {
	return u.content.TotalFragments()
}

// Stats returns the accepted parts of the upload.
func (u *Uploader) Stats() *Stats {
	return u.stats
}

// CloseIdleConnections closes idle connections of the fragment client.
func (u *Uploader) CloseIdleConnections() {
	u.client.CloseIdleConnections()
}

// deliver runs the callbacks of a terminal state on the delivery context, then publishes
// the outcome and settles the run.
func (u *Uploader) deliver(state State, err error, r *run) {
	n := notify.Notification{
		FilePath:      u.content.FilePath(),
		PartsUploaded: u.content.CurrentFragment(),
		PartsTotal:    u.content.TotalFragments(),
		BytesUploaded: u.stats.BytesUploaded(),
		Duration:      u.stats.TotalDuration(),
		Err:           err,
	}
	if remote := u.content.Remote(); remote != nil {
		n.Destination = remote.String()
	}

	u.config.Dispatcher.Dispatch(func() {
		defer r.settle()

		done, fail, always := u.callbacks.snapshot()
		switch state {
		case StateFinished:
			for _, fn := range done {
				fn()
			}
		case StateFailed:
			for _, fn := range fail {
				fn(err)
			}
		}
		for _, fn := range always {
			fn()
		}

		switch state {
		case StateFinished:
			n.Name = notify.UploadCompleteEvent
			u.config.Notifier.Notify(n)
		case StateFailed:
			n.Name = notify.UploadErrorEvent
			u.config.Notifier.Notify(n)
		}
	})
}
