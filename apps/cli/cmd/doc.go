// Package cmd implements the hitrun CLI commands using Cobra.
//
// Available commands:
//   - run: execute .http documents
//   - validate: parse documents and check the needs graph without sending requests
//   - list: show the blocks of each document
//   - history: show recent runs recorded with --history
//   - init: create an example document and config file
//   - version, completion
package cmd
