package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
)

// TAPFormatter formats results in TAP version 13. Ignored blocks are
// reported with a SKIP directive and empty blocks are left out.
type TAPFormatter struct {
	writer  io.Writer
	results []tapResult
}

type tapResult struct {
	name     string
	location string
	state    parser.State
	duration time.Duration
	err      error
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *TAPFormatter) FormatResult(result *runner.Result) {
	for _, b := range result.Blocks() {
		switch b.State() {
		case parser.StatePassed, parser.StateFailed, parser.StateIgnored:
			f.results = append(f.results, tapResult{
				name:     b.Description(),
				location: b.Location(),
				state:    b.State(),
				duration: b.Duration,
				err:      b.Err,
			})
		}
	}
}

func (f *TAPFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "Bail out! %s\n", errorMessage(err))
}

func (f *TAPFormatter) FormatHeader(version string) {}

// tapDiagnostic is the YAML block written under a failed test point.
type tapDiagnostic struct {
	Message  string `yaml:"message"`
	Type     string `yaml:"type"`
	At       string `yaml:"at"`
	Duration string `yaml:"duration,omitempty"`
}

// Flush writes the plan, the test points and the total time.
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TAP version 13\n1..%d\n", len(f.results))

	for i, r := range f.results {
		n := i + 1
		switch r.state {
		case parser.StatePassed:
			fmt.Fprintf(&sb, "ok %d - %s\n", n, r.name)
		case parser.StateIgnored:
			fmt.Fprintf(&sb, "ok %d - %s # SKIP ignored\n", n, r.name)
		default:
			fmt.Fprintf(&sb, "not ok %d - %s\n", n, r.name)
			if err := writeDiagnostic(&sb, r); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(&sb, "# time %dms\n", totalDuration.Milliseconds())
	_, err := io.WriteString(f.writer, sb.String())
	return err
}

func writeDiagnostic(sb *strings.Builder, r tapResult) error {
	diag := tapDiagnostic{
		Message: errorMessage(r.err),
		Type:    errorType(r.err),
		At:      r.location,
	}
	if r.duration > 0 {
		diag.Duration = r.duration.String()
	}
	data, err := yaml.Marshal(diag)
	if err != nil {
		return err
	}
	sb.WriteString("  ---\n")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		sb.WriteString("  " + line + "\n")
	}
	sb.WriteString("  ...\n")
	return nil
}
