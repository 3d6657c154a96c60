package template

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/abdul-hamid-achik/hitrun/packages/builtin"
)

const (
	leftDelim  = "<%"
	rightDelim = "%>"
)

// Scope is the variable scope a template is rendered against.
type Scope map[string]any

// Merge returns a new scope with other layered over s.
func (s Scope) Merge(other map[string]any) Scope {
	out := make(Scope, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// FuncMap is a set of functions made visible to templates.
type FuncMap = template.FuncMap

// Renderer renders a template string against a scope.
type Renderer interface {
	Render(ctx context.Context, text string, scope Scope, funcs FuncMap) (string, error)
}

// Error is a template parse or execution failure.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template error: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TextRenderer is the default Renderer backed by text/template.
type TextRenderer struct {
	funcs FuncMap
}

type Option func(*TextRenderer)

// WithFuncs adds functions available to every render.
func WithFuncs(funcs FuncMap) Option {
	return func(r *TextRenderer) {
		for name, fn := range funcs {
			r.funcs[name] = fn
		}
	}
}

func New(opts ...Option) *TextRenderer {
	r := &TextRenderer{funcs: FuncMap(builtin.NewRegistry().Funcs())}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders text. Text without a "<%" delimiter is returned unchanged.
func (r *TextRenderer) Render(ctx context.Context, text string, scope Scope, funcs FuncMap) (string, error) {
	if !strings.Contains(text, leftDelim) {
		return text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	normalized := strings.ReplaceAll(text, leftDelim+"=", leftDelim)

	tmpl := template.New("block").
		Delims(leftDelim, rightDelim).
		Option("missingkey=error").
		Funcs(r.funcs)
	if len(funcs) > 0 {
		tmpl = tmpl.Funcs(funcs)
	}

	parsed, err := tmpl.Parse(normalized)
	if err != nil {
		return "", &Error{Source: text, Err: err}
	}

	var out strings.Builder
	if err := parsed.Execute(&out, map[string]any(scope)); err != nil {
		return "", &Error{Source: text, Err: err}
	}
	return out.String(), nil
}
