package assertions

import (
	"fmt"
	"strings"
)

// Field names the part of a response that failed an assertion.
type Field string

const (
	FieldStatus     Field = "status"
	FieldStatusText Field = "statusText"
	FieldHeader     Field = "header"
	FieldBody       Field = "body"
	FieldSchema     Field = "schema"
)

// AssertionError is a mismatch between an expected and an actual response.
type AssertionError struct {
	Field    Field
	Header   string
	Expected any
	Actual   any
	Diff     string
}

func (e *AssertionError) Error() string {
	var sb strings.Builder
	switch e.Field {
	case FieldHeader:
		fmt.Fprintf(&sb, "header %s: expected %q, got %q", e.Header, e.Expected, e.Actual)
	case FieldStatus:
		fmt.Fprintf(&sb, "status: expected %v, got %v", e.Expected, e.Actual)
	case FieldStatusText:
		fmt.Fprintf(&sb, "status text: expected %q, got %q", e.Expected, e.Actual)
	case FieldSchema:
		fmt.Fprintf(&sb, "schema %v: %v", e.Expected, e.Actual)
	default:
		fmt.Fprintf(&sb, "body: expected %s, got %s", format(e.Expected), format(e.Actual))
	}
	if e.Diff != "" {
		sb.WriteString("\n(-expected +actual):\n")
		sb.WriteString(e.Diff)
	}
	return sb.String()
}

func format(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []byte:
		return fmt.Sprintf("%d bytes", len(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}
