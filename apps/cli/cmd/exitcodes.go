package cmd

// Exit codes for the hitrun CLI. A run that fails blocks exits with the
// number of failed blocks, capped at runner.MaxExitCode.
const (
	// ExitSuccess indicates at least one block ran and none failed
	ExitSuccess = 0

	// ExitNoBlocks indicates no block ran, or the run could not start
	ExitNoBlocks = 1

	// ExitInterrupted indicates SIGINT
	ExitInterrupted = 130

	// ExitTerminated indicates SIGTERM
	ExitTerminated = 143
)
