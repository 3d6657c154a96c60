package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitrun/packages/assertions"
	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
)

// Formatter renders run results.
type Formatter interface {
	FormatResult(result *runner.Result)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and
// write them in one document.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Display is the console verbosity.
type Display string

const (
	DisplayMinimal  Display = "minimal"
	DisplayStandard Display = "standard"
	DisplayVerbose  Display = "verbose"
)

// ParseDisplay accepts minimal, standard and verbose; empty is standard.
func ParseDisplay(s string) (Display, error) {
	switch Display(strings.ToLower(strings.TrimSpace(s))) {
	case "", DisplayStandard:
		return DisplayStandard, nil
	case DisplayMinimal:
		return DisplayMinimal, nil
	case DisplayVerbose:
		return DisplayVerbose, nil
	default:
		return "", fmt.Errorf("unknown display %q (want minimal, standard or verbose)", s)
	}
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

// New returns the formatter for format, writing to w.
func New(format string, w io.Writer, display Display, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithDisplay(display), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s)", format, strings.Join(Formats, ", "))
	}
}

// errorMessage is the first line of a block error.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}

// errorType names the kind of a block failure.
func errorType(err error) string {
	var assertErr *assertions.AssertionError
	var depErr *runner.DependencyError
	var parseErr *parser.ParseError
	var cmdErr *runner.CommandError
	var transportErr *http.TransportError
	switch {
	case errors.As(err, &assertErr):
		return "AssertionError"
	case errors.As(err, &depErr):
		return "DependencyError"
	case errors.As(err, &parseErr):
		return "ParseError"
	case errors.As(err, &cmdErr):
		return "CommandError"
	case errors.As(err, &transportErr):
		return "TransportError"
	default:
		return "Error"
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func flattenHeader(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, values := range h {
		out[k] = strings.Join(values, ", ")
	}
	return out
}
