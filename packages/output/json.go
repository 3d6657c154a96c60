package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary  `json:"summary"`
	Tests    []JSONTest   `json:"tests"`
	Latency  *JSONLatency `json:"latency,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	OnlyMode bool         `json:"onlyMode,omitempty"`
	Aborted  bool         `json:"aborted,omitempty"`
	ExitCode int          `json:"exitCode"`
	Duration float64      `json:"duration"`
	Time     string       `json:"time"`
}

// JSONSummary represents the block summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Ignored int `json:"ignored"`
	Empty   int `json:"empty"`
}

// JSONTest represents a single block result
type JSONTest struct {
	Name      string        `json:"name"`
	ID        string        `json:"id,omitempty"`
	File      string        `json:"file"`
	Line      int           `json:"line"`
	State     string        `json:"state"`
	Duration  float64       `json:"duration"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"errorType,omitempty"`
	Request   *JSONRequest  `json:"request,omitempty"`
	Response  *JSONResponse `json:"response,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONLatency is the latency distribution in milliseconds.
type JSONLatency struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONFormatter formats results as one JSON document written on Flush.
type JSONFormatter struct {
	writer io.Writer
	output JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		output: JSONOutput{Tests: make([]JSONTest, 0)},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *JSONFormatter) FormatResult(result *runner.Result) {
	for _, b := range result.Blocks() {
		if b.State() == parser.StatePending {
			continue
		}
		f.output.Tests = append(f.output.Tests, jsonTest(b))
	}

	f.output.Summary.Passed += result.Passed
	f.output.Summary.Failed += result.Failed
	f.output.Summary.Ignored += result.Ignored
	f.output.Summary.Empty += result.Empty
	f.output.Summary.Total = len(f.output.Tests)
	f.output.Warnings = append(f.output.Warnings, result.Warnings...)
	f.output.OnlyMode = f.output.OnlyMode || result.OnlyMode
	f.output.Aborted = f.output.Aborted || result.Aborted
	f.output.ExitCode = result.ExitCode()

	if lat := result.Latency; lat.Count > 0 {
		f.output.Latency = &JSONLatency{
			Count: lat.Count,
			Min:   milliseconds(lat.Min),
			Mean:  milliseconds(lat.Mean),
			P50:   milliseconds(lat.P50),
			P95:   milliseconds(lat.P95),
			P99:   milliseconds(lat.P99),
			Max:   milliseconds(lat.Max),
		}
	}
}

func jsonTest(b *parser.Block) JSONTest {
	test := JSONTest{
		Name:     b.Description(),
		ID:       b.Meta.ID,
		File:     b.File.Name(),
		Line:     b.Line(),
		State:    b.State().String(),
		Duration: milliseconds(b.Duration),
	}

	if b.Err != nil {
		test.Error = b.Err.Error()
		test.ErrorType = errorType(b.Err)
	}

	if b.Request != nil {
		test.Request = &JSONRequest{
			Method:  b.Request.Method,
			URL:     b.Request.URL,
			Headers: flattenHeader(b.Request.Header),
		}
	}

	if b.Response != nil {
		test.Response = &JSONResponse{
			StatusCode: b.Response.StatusCode,
			Status:     b.Response.StatusText,
			Headers:    flattenHeader(b.Response.Header),
			Duration:   milliseconds(b.Response.Duration),
		}
	}
	return test
}

func (f *JSONFormatter) FormatError(err error) {
	f.output.Warnings = append(f.output.Warnings, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	f.output.Duration = milliseconds(totalDuration)
	f.output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
