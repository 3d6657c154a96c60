package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitrun/packages/assertions"
	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	display Display
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:  os.Stdout,
		display: DisplayStandard,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func WithDisplay(d Display) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if d != "" {
			f.display = d
		}
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// displayFor lets a block's display meta override the formatter level.
func (f *ConsoleFormatter) displayFor(b *parser.Block) Display {
	if d, err := ParseDisplay(b.Meta.Display); err == nil && b.Meta.Display != "" {
		return d
	}
	return f.display
}

func (f *ConsoleFormatter) FormatResult(result *runner.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, file := range result.Files {
		if f.display != DisplayMinimal {
			fmt.Fprintf(f.writer, "\n%s\n", bold(file.Name()))
		}

		for _, b := range file.Blocks {
			display := f.displayFor(b)
			name := b.Description()

			switch b.State() {
			case parser.StatePassed:
				if display == DisplayMinimal {
					continue
				}
				fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), name, cyan(fmt.Sprintf("(%dms)", b.Duration.Milliseconds())))
			case parser.StateFailed:
				fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), name, cyan(fmt.Sprintf("(%dms)", b.Duration.Milliseconds())))
				f.formatFailure(b, display)
			case parser.StateIgnored:
				if display == DisplayMinimal {
					continue
				}
				fmt.Fprintf(f.writer, "  %s %s %s\n", yellow("-"), name, faint("(ignored)"))
			case parser.StateEmpty:
				if display != DisplayVerbose {
					continue
				}
				fmt.Fprintf(f.writer, "  %s %s %s\n", faint("·"), name, faint("(no request)"))
			default:
				continue
			}

			if display == DisplayVerbose {
				f.formatExchange(b)
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests:   ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Ignored > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d ignored", result.Ignored)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Passed+result.Failed+result.Ignored)

	if lat := result.Latency; lat.Count > 0 {
		fmt.Fprintf(f.writer, "Latency: min %s, p50 %s, p95 %s, p99 %s, max %s\n",
			lat.Min, lat.P50, lat.P95, lat.P99, lat.Max)
	}
	fmt.Fprintf(f.writer, "Time:    %dms\n", result.Duration.Milliseconds())

	if result.Aborted {
		fmt.Fprintf(f.writer, "%s\n", yellow("Stopped after the first failure (fail fast)"))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(f.writer, "%s %s\n", yellow("Warning:"), warning)
	}

	if failed := result.FailedBlocks(); len(failed) > 0 {
		fmt.Fprintf(f.writer, "\n%s\n", bold("Failed blocks:"))
		for _, b := range failed {
			fmt.Fprintf(f.writer, "  %s %s: %s\n", b.Location(), b.Description(), errorMessage(b.Err))
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) formatFailure(b *parser.Block, display Display) {
	red := color.New(color.FgRed).SprintFunc()

	var assertErr *assertions.AssertionError
	if errors.As(b.Err, &assertErr) {
		fmt.Fprintf(f.writer, "    %s %s\n", red("→"), assertErr.Field)
		if assertErr.Field != assertions.FieldBody || display != DisplayVerbose {
			fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(assertErr.Expected, 100))
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(assertErr.Actual, 100))
		}
		if display == DisplayVerbose && assertErr.Diff != "" {
			for _, line := range strings.Split(strings.TrimRight(assertErr.Diff, "\n"), "\n") {
				fmt.Fprintf(f.writer, "      %s\n", line)
			}
		}
		return
	}
	fmt.Fprintf(f.writer, "    %s %s\n", red("→"), errorMessage(b.Err))
}

func (f *ConsoleFormatter) formatExchange(b *parser.Block) {
	faint := color.New(color.Faint).SprintFunc()
	if b.Request != nil {
		fmt.Fprintf(f.writer, "    %s\n", faint("> "+b.Request.String()))
	}
	if b.Response != nil {
		fmt.Fprintf(f.writer, "    %s\n", faint(fmt.Sprintf("< %d %s", b.Response.StatusCode, b.Response.StatusText)))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	if f.display == DisplayMinimal {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitrun"), version)
}
