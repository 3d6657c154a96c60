// Package env loads template variables from .env files and HITRUN_
// prefixed process environment variables.
package env
