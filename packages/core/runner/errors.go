package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
)

// errAbort stops a run after a fail-fast failure.
var errAbort = errors.New("run aborted")

// DependencyKind classifies a DependencyError.
type DependencyKind string

const (
	DependencyMissing     DependencyKind = "missing"
	DependencyCycle       DependencyKind = "cycle"
	DependencyImportCycle DependencyKind = "import-cycle"
	DependencyFailed      DependencyKind = "failed"
)

// DependencyError reports a broken needs or import graph. Missing targets
// and cycles abort the run; a failed dependency only fails the dependent.
type DependencyError struct {
	Kind DependencyKind
	From *parser.Block
	To   *parser.Block
	ID   string
	Path []string
	Err  error
}

func (e *DependencyError) Error() string {
	switch e.Kind {
	case DependencyMissing:
		return fmt.Sprintf("%s: needs unknown block %q", e.From.Location(), e.ID)
	case DependencyCycle:
		return fmt.Sprintf("dependency cycle: %s (%s) needs %s (%s), which is already being resolved",
			describe(e.From), e.From.Location(), describe(e.To), e.To.Location())
	case DependencyImportCycle:
		return fmt.Sprintf("import cycle: %s", strings.Join(e.Path, " -> "))
	case DependencyFailed:
		return fmt.Sprintf("dependency %s (%s) failed: %v", describe(e.To), e.To.Location(), e.Err)
	default:
		return fmt.Sprintf("dependency error: %s", e.Kind)
	}
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// CommandError reports a failed command meta.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("command failed: %s: %v\nOutput: %s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("command failed: %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func describe(b *parser.Block) string {
	if b.Meta.ID != "" {
		return b.Meta.ID
	}
	return b.Description()
}
