// Package parser turns .http documents into blocks.
//
// A document is split on lines starting with "###" into blocks that keep
// their exact source line span. Each block may carry:
//   - YAML front matter between two "---" lines, rendered through the
//     template capability before decoding
//   - a request section starting at an HTTP method line
//   - an expected response section starting at an "HTTP/" status line
//
// Request and response sections are parsed with the same line state
// machine: url (or status) line, then headers, then body. The expected
// response is parsed late, after the actual response is known, so it can
// reference it in templates.
package parser
