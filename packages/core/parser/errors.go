package parser

import (
	"fmt"
)

// ErrorKind distinguishes structural problems from template failures.
type ErrorKind int

const (
	KindStructural ErrorKind = iota
	KindTemplate
)

// ParseError is a structural error in a block, located by file and 1-based line.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	Kind    ErrorKind
	Err     error
}

func (e *ParseError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(b *Block, line int, message string, err error) *ParseError {
	name := ""
	if b.File != nil {
		name = b.File.Name()
	}
	return &ParseError{
		File:    name,
		Line:    line + 1,
		Message: message,
		Kind:    KindStructural,
		Err:     err,
	}
}
