// Package assertions compares actual responses against expected ones.
//
// Only the fields an expected response sets are checked, in this order:
//   - status code
//   - status text
//   - headers (extra actual headers are allowed)
//   - body (object bodies match as a subset, everything else exactly)
//
// The first mismatch stops the comparison and is returned as an
// *AssertionError. JSON Schema validation of the actual body is available
// separately through ValidateSchema.
package assertions
