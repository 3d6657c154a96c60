package parser

import (
	"regexp"
	"strings"
)

// LineKind classifies a single source line without context. The parser's
// state machine decides what a line means in its position.
type LineKind int

const (
	LineText LineKind = iota
	LineBlank
	LineComment
	LineSeparator
	LineFrontMatter
	LineMethod
	LineStatus
	LineHeader
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineSeparator:
		return "separator"
	case LineFrontMatter:
		return "front-matter"
	case LineMethod:
		return "method"
	case LineStatus:
		return "status"
	case LineHeader:
		return "header"
	default:
		return "text"
	}
}

// Line is one source line with its 0-indexed position in the file.
type Line struct {
	Kind   LineKind
	Text   string
	Number int
}

var (
	separatorPattern = regexp.MustCompile(`^#{3,}`)
	methodPattern    = regexp.MustCompile(`^(GET|HEAD|POST|PUT|DELETE|CONNECT|OPTIONS|TRACE|PATCH)(\s|$)`)
	headerPattern    = regexp.MustCompile(`^\s*([A-Za-z0-9!#$%&'*+.^_|~-]+)\s*:(.*)$`)
)

// Classify returns the context-free kind of a line.
func Classify(text string) LineKind {
	text = strings.TrimSuffix(text, "\r")
	trimmed := strings.TrimSpace(text)

	switch {
	case separatorPattern.MatchString(text):
		return LineSeparator
	case trimmed == "":
		return LineBlank
	case trimmed == "---":
		return LineFrontMatter
	case strings.HasPrefix(text, "HTTP/"):
		return LineStatus
	case methodPattern.MatchString(trimmed):
		return LineMethod
	case strings.HasPrefix(trimmed, "#"):
		return LineComment
	case headerPattern.MatchString(text):
		return LineHeader
	default:
		return LineText
	}
}

// Lex splits text into classified lines numbered from offset. A single
// trailing newline does not produce an extra empty line.
func Lex(text string, offset int) []Line {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	if len(raw) > 1 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}

	lines := make([]Line, len(raw))
	for i, s := range raw {
		lines[i] = Line{
			Kind:   Classify(s),
			Text:   strings.TrimSuffix(s, "\r"),
			Number: offset + i,
		}
	}
	return lines
}

func splitHeader(text string) (string, string, bool) {
	m := headerPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// splitRequestLine returns the method and target of "METHOD URL [HTTP/x.y]".
func splitRequestLine(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	i := strings.IndexAny(trimmed, " \t")
	if i < 0 {
		return trimmed, ""
	}
	method, rest := trimmed[:i], strings.TrimSpace(trimmed[i+1:])
	if i := strings.LastIndex(rest, " "); i >= 0 && strings.HasPrefix(rest[i+1:], "HTTP/") {
		rest = strings.TrimSpace(rest[:i])
	}
	return method, rest
}
