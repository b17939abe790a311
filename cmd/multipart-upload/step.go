package main

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/bitrise-io/go-multipart-uploader/export"
	"github.com/bitrise-io/go-multipart-uploader/multipart"
	"github.com/bitrise-io/go-multipart-uploader/multipart/notify"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// Output keys.
const (
	StateOutputKey       = "MULTIPART_UPLOAD_STATE"
	PartsOutputKey       = "MULTIPART_UPLOAD_PARTS"
	BytesOutputKey       = "MULTIPART_UPLOAD_BYTES"
	DestinationOutputKey = "MULTIPART_UPLOAD_DESTINATION"
)

// Inputs ...
type Inputs struct {
	FilePath        string          `env:"file_path,file"`
	DestinationURL  string          `env:"destination_url,required"`
	ContentType     string          `env:"content_type,opt[jpeg,video]"`
	SessionID       stepconf.Secret `env:"session_id,required"`
	FragmentSize    string          `env:"fragment_size"`
	TimeoutSeconds  int             `env:"timeout_seconds"`
	FragmentRetries int             `env:"fragment_retries"`
	Verbose         bool            `env:"verbose"`
}

// Config is the validated form of Inputs.
type Config struct {
	FilePath    string
	Destination *url.URL
	ContentType multipart.ContentType
	SessionID   string
	Upload      multipart.Config
}

// Result describes where the upload stopped.
type Result struct {
	State         multipart.State
	PartsUploaded int
	PartsTotal    int
	BytesUploaded int64
	Destination   string
}

// UploadStep uploads one file to a fragment upload endpoint.
type UploadStep struct {
	logger         log.Logger
	envRepo        env.Repository
	inputParser    stepconf.InputParser
	exporter       export.Exporter
	trackerFactory notify.TrackerFactory
}

// NewUploadStep ...
func NewUploadStep(
	logger log.Logger,
	envRepo env.Repository,
	inputParser stepconf.InputParser,
	exporter export.Exporter,
	trackerFactory notify.TrackerFactory,
) UploadStep {
	return UploadStep{
		logger:         logger,
		envRepo:        envRepo,
		inputParser:    inputParser,
		exporter:       exporter,
		trackerFactory: trackerFactory,
	}
}

// ProcessInputs parses and validates the step inputs.
func (s UploadStep) ProcessInputs() (Config, error) {
	var inputs Inputs
	if err := s.inputParser.Parse(&inputs); err != nil {
		return Config{}, err
	}
	s.logger.EnableDebugLog(inputs.Verbose)

	s.logger.Println()
	s.logger.Infof("Inputs:")
	s.logger.Printf("- file_path: %s", inputs.FilePath)
	s.logger.Printf("- destination_url: %s", inputs.DestinationURL)
	s.logger.Printf("- content_type: %s", inputs.ContentType)
	s.logger.Printf("- session_id: %s", inputs.SessionID)
	s.logger.Printf("- fragment_size: %s", inputs.FragmentSize)
	s.logger.Printf("- timeout_seconds: %d", inputs.TimeoutSeconds)
	s.logger.Printf("- fragment_retries: %d", inputs.FragmentRetries)
	s.logger.Printf("- verbose: %t", inputs.Verbose)

	return inputs.config(s.logger)
}

func (i Inputs) config(logger log.Logger) (Config, error) {
	destination, err := url.Parse(i.DestinationURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid destination_url: %w", err)
	}
	if destination.Scheme != "http" && destination.Scheme != "https" {
		return Config{}, fmt.Errorf("invalid destination_url: unsupported scheme %q", destination.Scheme)
	}

	contentType, ok := multipart.ParseContentType(i.ContentType)
	if !ok {
		return Config{}, fmt.Errorf("invalid content_type: %s", i.ContentType)
	}

	upload := multipart.DefaultConfig()
	upload.Logger = logger

	if i.FragmentSize != "" {
		size, err := units.FromHumanSize(i.FragmentSize)
		if err != nil {
			return Config{}, fmt.Errorf("invalid fragment_size: %w", err)
		}
		if size <= 0 || size > math.MaxInt32 {
			return Config{}, fmt.Errorf("invalid fragment_size: %s is out of range", i.FragmentSize)
		}
		upload.MaxFragmentSize = int(size)
	}

	if i.TimeoutSeconds < 0 {
		return Config{}, fmt.Errorf("invalid timeout_seconds: %d", i.TimeoutSeconds)
	}
	if i.TimeoutSeconds > 0 {
		upload.Timeout = time.Duration(i.TimeoutSeconds) * time.Second
	}

	if i.FragmentRetries < 0 {
		return Config{}, fmt.Errorf("invalid fragment_retries: %d", i.FragmentRetries)
	}
	upload.FragmentRetries = uint(i.FragmentRetries)

	return Config{
		FilePath:    i.FilePath,
		Destination: destination,
		ContentType: contentType,
		SessionID:   string(i.SessionID),
		Upload:      upload,
	}, nil
}

// Run uploads the file and blocks until the upload stops.
func (s UploadStep) Run(config Config) (Result, error) {
	center := notify.NewCenter()
	center.Subscribe(notify.UploadCompleteEvent, func(n notify.Notification) {
		s.logger.Donef("Upload of %s accepted by %s", n.FilePath, n.Destination)
	})
	center.Subscribe(notify.UploadErrorEvent, func(n notify.Notification) {
		s.logger.Warnf("Upload of %s stopped after %d/%d fragment(s)", n.FilePath, n.PartsUploaded, n.PartsTotal)
	})

	notifiers := notify.Multi{center}
	tracker, err := notify.NewStepTrackerNotifier(s.envRepo, s.trackerFactory)
	if err != nil {
		s.logger.Debugf("Analytics disabled: %s", err)
	} else {
		notifiers = append(notifiers, tracker)
		defer tracker.Wait()
	}

	upload := config.Upload
	upload.Notifier = notifiers

	uploader, err := multipart.New(config.FilePath, config.Destination, config.ContentType, upload)
	if err != nil {
		return Result{}, err
	}
	defer uploader.CloseIdleConnections()

	if err := uploader.SetSessionID(config.SessionID); err != nil {
		return Result{}, err
	}

	s.logger.Println()
	if err := uploader.Start(); err != nil {
		return Result{}, err
	}
	err = uploader.Wait(context.Background())

	return Result{
		State:         uploader.State(),
		PartsUploaded: uploader.CurrentFragment(),
		PartsTotal:    uploader.TotalFragments(),
		BytesUploaded: uploader.Stats().BytesUploaded(),
		Destination:   config.Destination.String(),
	}, err
}

// Export exposes the upload result to subsequent steps.
func (s UploadStep) Export(result Result) error {
	s.logger.Println()
	s.logger.Infof("Exporting outputs:")
	s.logger.Printf("- %s: %s", StateOutputKey, result.State)
	s.logger.Printf("- %s: %d", PartsOutputKey, result.PartsUploaded)
	s.logger.Printf("- %s: %s", BytesOutputKey, units.HumanSizeWithPrecision(float64(result.BytesUploaded), 3))
	s.logger.Printf("- %s: %s", DestinationOutputKey, result.Destination)

	return s.exporter.ExportOutputs([]export.Output{
		{Key: StateOutputKey, Value: result.State.String()},
		{Key: PartsOutputKey, Value: fmt.Sprintf("%d", result.PartsUploaded)},
		{Key: BytesOutputKey, Value: fmt.Sprintf("%d", result.BytesUploaded)},
		{Key: DestinationOutputKey, Value: result.Destination, NoExpand: true},
	})
}
