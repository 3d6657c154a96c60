package template

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRenderer_Render(t *testing.T) {
	r := New()
	scope := Scope{
		"host":  "api.example.com",
		"debug": true,
		"ids":   []any{1, 2},
		"login": map[string]any{
			"status": 200,
			"body":   map[string]any{"token": "abc"},
		},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain text untouched", "GET http://h/ {{not a template}}", "GET http://h/ {{not a template}}"},
		{"interpolation", "GET <%= .host %>/users", "GET api.example.com/users"},
		{"bare delimiters", "<% .host %>", "api.example.com"},
		{"nested reference", "Bearer <%= .login.body.token %>", "Bearer abc"},
		{"conditional", "<% if .debug %>on<% else %>off<% end %>", "on"},
		{"loop", "<% range .ids %>[<% . %>]<% end %>", "[1][2]"},
		{"trim markers", "a <%- .host -%> b", "aapi.example.comb"},
		{"builtin", `<%= base64 "a:b" %>`, "YTpi"},
		{"path helper", `<%= path .login.body "token" %>`, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(context.Background(), tt.text, scope, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextRenderer_MissingKey(t *testing.T) {
	_, err := New().Render(context.Background(), "<%= .nope %>", Scope{}, nil)

	var tmplErr *Error
	require.True(t, errors.As(err, &tmplErr))
	assert.Equal(t, "<%= .nope %>", tmplErr.Source)
}

func TestTextRenderer_SyntaxError(t *testing.T) {
	_, err := New().Render(context.Background(), "<% if %>", Scope{}, nil)
	var tmplErr *Error
	assert.ErrorAs(t, err, &tmplErr)
}

func TestTextRenderer_CallFuncs(t *testing.T) {
	r := New(WithFuncs(FuncMap{"shout": strings.ToUpper}))

	got, err := r.Render(context.Background(), `<%= shout "hi" %> <%= whisper "HI" %>`, nil, FuncMap{"whisper": strings.ToLower})
	require.NoError(t, err)
	assert.Equal(t, "HI hi", got)
}

func TestTextRenderer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Render(ctx, "<%= .x %>", Scope{"x": 1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScope_Merge(t *testing.T) {
	base := Scope{"a": 1, "b": 2}
	merged := base.Merge(map[string]any{"b": 3, "c": 4})

	assert.Equal(t, Scope{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, 2, base["b"])
}
