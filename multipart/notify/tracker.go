package notify

import (
	"fmt"
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
)

// TrackerFactory creates an analytics tracker with base properties.
type TrackerFactory func(...analytics.Properties) analytics.Tracker

const (
	StepExecutionIDEnvKey = "BITRISE_STEP_EXECUTION_ID"
	StepExecutionID       = "step_execution_id"
)

// TrackerNotifier turns notifications into analytics events.
type TrackerNotifier struct {
	tracker analytics.Tracker
}

// NewTrackerNotifier ...
func NewTrackerNotifier(tracker analytics.Tracker) *TrackerNotifier {
	return &TrackerNotifier{tracker: tracker}
}

// NewStepTrackerNotifier creates a TrackerNotifier bound to the current step execution.
func NewStepTrackerNotifier(repository env.Repository, trackerFactory TrackerFactory) (*TrackerNotifier, error) {
	stepExecutionID := repository.Get(StepExecutionIDEnvKey)
	if stepExecutionID == "" {
		return nil, fmt.Errorf("no step execution ID found")
	}
	return NewTrackerNotifier(trackerFactory(analytics.Properties{StepExecutionID: stepExecutionID})), nil
}

// Notify ...
func (t *TrackerNotifier) Notify(n Notification) {
	properties := analytics.Properties{
		"destination":    n.Destination,
		"parts_uploaded": n.PartsUploaded,
		"parts_total":    n.PartsTotal,
		"bytes_uploaded": n.BytesUploaded,
		"upload_time_s":  n.Duration.Truncate(time.Second).Seconds(),
	}
	if n.Err != nil {
		properties["error"] = n.Err.Error()
	}
	t.tracker.Enqueue(n.Name, properties)
}

// Wait blocks until queued events are sent.
func (t *TrackerNotifier) Wait() {
	t.tracker.Wait()
}
