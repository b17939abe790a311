package export

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/command"
)

// Exporter exposes step outputs through envman.
type Exporter struct {
	cmdFactory command.Factory
}

// NewExporter ...
func NewExporter(cmdFactory command.Factory) Exporter {
	return Exporter{
		cmdFactory: cmdFactory,
	}
}

// ExportOutput is used for exposing values for other steps.
// Regular env vars are isolated between steps, so instead of calling `os.Setenv()`, use this to explicitly expose
// a value for subsequent steps.
func (e *Exporter) ExportOutput(key, value string) error {
	return e.export(key, value)
}

// ExportOutputNoExpand works like ExportOutput but does not expand environment variables in the value.
// Upload destinations carry query strings beyond the control of the step, export them with this.
func (e *Exporter) ExportOutputNoExpand(key, value string) error {
	return e.export(key, value, "--no-expand")
}

// ExportOutputs exports every key in order and stops at the first failure.
func (e *Exporter) ExportOutputs(outputs []Output) error {
	for _, o := range outputs {
		exportFn := e.ExportOutput
		if o.NoExpand {
			exportFn = e.ExportOutputNoExpand
		}
		if err := exportFn(o.Key, o.Value); err != nil {
			return fmt.Errorf("export %s: %w", o.Key, err)
		}
	}
	return nil
}

// Output is a single exported key.
type Output struct {
	Key      string
	Value    string
	NoExpand bool
}

func (e *Exporter) export(key, value string, flags ...string) error {
	args := append([]string{"add", "--key", key, "--value", value}, flags...)
	cmd := e.cmdFactory.Create("envman", args, nil)
	return runExport(cmd)
}

func runExport(cmd command.Command) error {
	out, err := cmd.RunAndReturnTrimmedCombinedOutput()
	if err != nil {
		return fmt.Errorf("exporting output with envman failed: %s, output: %s", err, out)
	}
	return nil
}
