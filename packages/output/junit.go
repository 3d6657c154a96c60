package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
)

type junitReport struct {
	XMLName xml.Name `xml:"testsuites"`
	Name    string   `xml:"name,attr"`
	counts
	Time   float64      `xml:"time,attr"`
	Suites []junitSuite `xml:"testsuite"`
}

// counts are shared by the report and each suite.
type counts struct {
	Tests    int `xml:"tests,attr"`
	Failures int `xml:"failures,attr"`
	Errors   int `xml:"errors,attr"`
	Skipped  int `xml:"skipped,attr"`
}

func (c *counts) add(o counts) {
	c.Tests += o.Tests
	c.Failures += o.Failures
	c.Errors += o.Errors
	c.Skipped += o.Skipped
}

type junitSuite struct {
	Name string `xml:"name,attr"`
	counts
	Time      float64     `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr,omitempty"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	Skipped   *junitProblem `xml:"skipped,omitempty"`
}

// junitProblem is the body of a failure, error or skipped element.
type junitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Detail  string `xml:",chardata"`
}

func problem(err error) *junitProblem {
	return &junitProblem{Message: errorMessage(err), Type: errorType(err), Detail: err.Error()}
}

// JUnitFormatter writes one testsuite per file. Assertion mismatches are
// failures; every other block error is an error. Blocks without a request
// are left out.
type JUnitFormatter struct {
	writer io.Writer
	suites []junitSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.Result) {
	stamp := time.Now().Format(time.RFC3339)
	for _, file := range result.Files {
		f.suites = append(f.suites, fileSuite(file, stamp))
	}
}

func fileSuite(file *parser.File, stamp string) junitSuite {
	suite := junitSuite{Name: file.Name(), Timestamp: stamp}
	for _, b := range file.Blocks {
		c := junitCase{
			Name:      fmt.Sprintf("%s (line %d)", b.Description(), b.Line()),
			ClassName: file.Name(),
			Time:      b.Duration.Seconds(),
		}
		switch b.State() {
		case parser.StatePassed:
		case parser.StateIgnored:
			suite.Skipped++
			c.Skipped = &junitProblem{Message: "ignored"}
		case parser.StateFailed:
			if errorType(b.Err) == "AssertionError" {
				suite.Failures++
				c.Failure = problem(b.Err)
			} else {
				suite.Errors++
				c.Error = problem(b.Err)
			}
		default:
			continue
		}
		suite.Time += c.Time
		suite.Cases = append(suite.Cases, c)
	}
	suite.Tests = len(suite.Cases)
	return suite
}

// FormatError records a run that could not start as a suite with a single
// errored case.
func (f *JUnitFormatter) FormatError(err error) {
	f.suites = append(f.suites, junitSuite{
		Name:   "load",
		counts: counts{Tests: 1, Errors: 1},
		Cases:  []junitCase{{Name: "load", ClassName: "hitrun", Error: problem(err)}},
	})
}

func (f *JUnitFormatter) FormatHeader(version string) {}

// Flush writes the report.
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	report := junitReport{Name: "hitrun", Time: totalDuration.Seconds(), Suites: f.suites}
	for _, s := range f.suites {
		report.add(s.counts)
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}
