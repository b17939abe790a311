package main

import (
	"os"

	"github.com/bitrise-io/go-multipart-uploader/export"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()
	envRepo := env.NewRepository()

	step := NewUploadStep(
		logger,
		envRepo,
		stepconf.NewInputParser(envRepo),
		export.NewExporter(command.NewFactory(envRepo)),
		func(p ...analytics.Properties) analytics.Tracker {
			return analytics.NewDefaultTracker(logger, envRepo, p...)
		},
	)

	config, err := step.ProcessInputs()
	if err != nil {
		logger.Errorf("Process inputs: %s", err)
		return 1
	}

	result, runErr := step.Run(config)
	if err := step.Export(result); err != nil {
		logger.Errorf("Export outputs: %s", err)
		return 1
	}
	if runErr != nil {
		logger.Errorf("Upload failed: %s", runErr)
		return 1
	}

	return 0
}
