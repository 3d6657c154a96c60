// Package runner executes hitrun documents.
//
// A run has two phases. Load parses every file, follows import directives,
// extracts front matter for every block and validates the needs graph.
// Execute then runs blocks in source order, one at a time:
//   - needs targets run first, depth-first
//   - only and ignore gate which blocks send requests
//   - the expected response is rendered and asserted after the request
//   - named blocks become visible to later templates under their id
//   - fail fast stops the run at the first failure
package runner
