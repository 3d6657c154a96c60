// Package output renders run results.
//
// Supported output formats:
//   - Console: colored terminal output with minimal, standard and verbose display
//   - JSON: machine-readable JSON output
//   - JUnit: JUnit XML for CI integration
//   - TAP: Test Anything Protocol version 13
//
// JSON, JUnit and TAP accumulate results and write them on Flush.
package output
