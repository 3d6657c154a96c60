// Package config loads the hitrun project configuration.
//
// The configuration lives in .hitrun.yaml, .hitrun.yml or .hitrun.json and
// is found by searching upward from the working directory. Command line
// flags are merged over it with Merge.
package config
