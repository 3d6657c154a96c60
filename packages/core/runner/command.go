package runner

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"go.uber.org/zap"
)

// runCommand runs a command meta value through the configured shell in
// dir. A leading "-" runs the command but ignores its exit status.
func (r *Runner) runCommand(ctx context.Context, command, dir string) error {
	command = strings.TrimSpace(command)
	ignoreErr := strings.HasPrefix(command, "-")
	if ignoreErr {
		command = strings.TrimSpace(strings.TrimPrefix(command, "-"))
	}
	if command == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, r.config.Shell, "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	r.logger.Debug("command finished",
		zap.String("command", shellescape.QuoteCommand([]string{r.config.Shell, "-c", command})),
		zap.String("dir", dir),
		zap.ByteString("output", output),
		zap.Error(err),
	)
	if err != nil && !ignoreErr {
		return &CommandError{
			Command: command,
			Output:  strings.TrimSpace(string(output)),
			Err:     err,
		}
	}
	return nil
}
