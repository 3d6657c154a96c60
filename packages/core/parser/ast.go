package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
)

// File is a parsed document.
type File struct {
	Path    string
	RelPath string
	Blocks  []*Block
	// Imports are the resolved paths of the files this file imports.
	Imports []string
}

// Name returns the path used for display.
func (f *File) Name() string {
	if f.RelPath != "" {
		return f.RelPath
	}
	return f.Path
}

// State is the execution state of a block.
type State int

const (
	StatePending State = iota
	StateResolving
	StateIgnored
	StateEmpty
	StateFailed
	StatePassed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolving:
		return "resolving"
	case StateIgnored:
		return "ignored"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	case StatePassed:
		return "passed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s >= StateIgnored
}

// Block is one request/expected-response/metadata unit.
type Block struct {
	File      *File
	Index     int
	Text      string
	StartLine int
	EndLine   int

	Meta    meta.Meta
	MetaErr error

	lines    []Line
	content  []Line
	request  []Line
	response []Line

	Request          *http.Request
	ExpectedResponse *http.Response
	Response         *http.Response
	Err              error
	Duration         time.Duration

	state State
}

// State returns the execution state.
func (b *Block) State() State {
	return b.state
}

// Resolve marks the block as resolving its dependencies.
func (b *Block) Resolve() {
	if b.state.Terminal() {
		panic(fmt.Sprintf("block %s: resolve after terminal state %s", b.Location(), b.state))
	}
	b.state = StateResolving
}

// Finish records the terminal state. A block finishes exactly once; a second
// call is a scheduler bug and panics.
func (b *Block) Finish(state State, err error) {
	if !state.Terminal() {
		panic(fmt.Sprintf("block %s: %s is not a terminal state", b.Location(), state))
	}
	if b.state.Terminal() {
		panic(fmt.Sprintf("block %s: already %s, cannot become %s", b.Location(), b.state, state))
	}
	b.state = state
	b.Err = err
}

// HasRequest reports whether the block has a request section.
func (b *Block) HasRequest() bool {
	return len(b.request) > 0
}

// HasExpectedResponse reports whether the block has a response section.
func (b *Block) HasExpectedResponse() bool {
	return len(b.response) > 0
}

// Line returns the 1-based line of the block start.
func (b *Block) Line() int {
	if len(b.request) > 0 {
		return b.request[0].Number + 1
	}
	return b.StartLine + 1
}

// Location returns "file:line".
func (b *Block) Location() string {
	name := ""
	if b.File != nil {
		name = b.File.Name()
	}
	return fmt.Sprintf("%s:%d", name, b.Line())
}

// Description is the description or name from meta, else "METHOD URL",
// else the first non-blank source line. The id is never used.
func (b *Block) Description() string {
	if b.Meta.Description != "" {
		return b.Meta.Description
	}
	if b.Meta.Name != "" {
		return b.Meta.Name
	}
	if b.Request != nil {
		return b.Request.Method + " " + b.Request.URL
	}
	if len(b.request) > 0 {
		method, target := splitRequestLine(b.request[0].Text)
		return strings.TrimSpace(method + " " + target)
	}
	for _, line := range b.lines {
		if line.Kind != LineBlank {
			return strings.TrimSpace(line.Text)
		}
	}
	return ""
}
