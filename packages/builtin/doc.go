// Package builtin provides the helper functions available inside hitrun
// templates.
//
// Available functions:
//   - uuid: random UUID v4
//   - now, date, timestamp, timestampMs: clock values
//   - random, randomString, randomEmail, randomAlphanumeric: generated data
//   - base64, base64Decode, md5, sha256, urlEncode, urlDecode: encoders
//   - json: marshal a value to JSON
//   - path: look up a gjson path in a decoded body
//   - env: read an environment variable
//   - shq: quote a value for safe use in a shell command
//
// Functions are invoked with template syntax, e.g. <%= uuid %> or
// <%= path .login.body "data.token" %>.
package builtin
