package parser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
	"github.com/abdul-hamid-achik/hitrun/packages/template"
)

var (
	schemePattern     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	statusLinePattern = regexp.MustCompile(`^(HTTP/\S+)(?:\s+(\d{3}))?(?:\s+(.*))?$`)
)

// Parse splits a document into a File.
func Parse(text, path string) *File {
	file := &File{Path: path}
	splitInto(file, text)
	return file
}

// ParseFile reads and splits a document from disk.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(string(content), path), nil
}

// message is the result of the shared url/headers/body state machine.
type message struct {
	first   Line
	headers []header
	body    []string
}

type header struct {
	key   string
	value string
	line  int
}

type parseState int

const (
	stateURL parseState = iota
	stateHeaders
	stateBody
)

func scanMessage(lines []Line) message {
	var msg message
	state := stateURL

	for _, line := range lines {
		switch state {
		case stateURL:
			msg.first = line
			state = stateHeaders
		case stateHeaders:
			switch line.Kind {
			case LineComment:
				continue
			case LineBlank:
				state = stateBody
				continue
			}
			if key, value, ok := splitHeader(line.Text); ok {
				msg.headers = append(msg.headers, header{key: key, value: value, line: line.Number})
				continue
			}
			state = stateBody
			msg.body = append(msg.body, line.Text)
		case stateBody:
			msg.body = append(msg.body, line.Text)
		}
	}
	return msg
}

// ParseRequest parses the request section of a block with the resolved
// meta. It returns nil when the block has no request.
func ParseRequest(ctx context.Context, b *Block, m meta.Meta, r template.Renderer, scope template.Scope) (*http.Request, error) {
	if len(b.request) == 0 {
		return nil, nil
	}
	msg := scanMessage(b.request)

	method, target := splitRequestLine(msg.first.Text)
	if target == "" {
		return nil, newParseError(b, msg.first.Number, "missing URL after "+method, nil)
	}

	target, err := render(ctx, b, msg.first.Number, r, target, scope, nil)
	if err != nil {
		return nil, err
	}

	req := http.NewRequest(method, "")
	if err := applyHeaders(ctx, b, &req.Message, msg.headers, r, scope, nil); err != nil {
		return nil, err
	}

	host := m.Host
	if host == "" {
		host = req.Header.Get("Host")
	}
	req.URL, err = resolveURL(target, host)
	if err != nil {
		return nil, newParseError(b, msg.first.Number, "malformed URL", err)
	}

	if err := applyBody(ctx, b, &req.Message, msg, r, scope, nil); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseResponse parses the expected response section. funcs are extra
// template functions such as assertion helpers. It returns nil when the
// block has no response section.
func ParseResponse(ctx context.Context, b *Block, r template.Renderer, scope template.Scope, funcs template.FuncMap) (*http.Response, error) {
	if len(b.response) == 0 {
		return nil, nil
	}
	msg := scanMessage(b.response)

	statusLine, err := render(ctx, b, msg.first.Number, r, strings.TrimSpace(msg.first.Text), scope, funcs)
	if err != nil {
		return nil, err
	}
	match := statusLinePattern.FindStringSubmatch(statusLine)
	if match == nil {
		return nil, newParseError(b, msg.first.Number, "malformed status line", nil)
	}

	resp := http.NewResponse()
	resp.Proto = match[1]
	if match[2] != "" {
		resp.StatusCode, _ = strconv.Atoi(match[2])
	}
	resp.StatusText = strings.TrimSpace(match[3])

	if err := applyHeaders(ctx, b, &resp.Message, msg.headers, r, scope, funcs); err != nil {
		return nil, err
	}
	if err := applyBody(ctx, b, &resp.Message, msg, r, scope, funcs); err != nil {
		return nil, err
	}
	return resp, nil
}

func applyHeaders(ctx context.Context, b *Block, m *http.Message, headers []header, r template.Renderer, scope template.Scope, funcs template.FuncMap) error {
	for _, h := range headers {
		value, err := render(ctx, b, h.line, r, h.value, scope, funcs)
		if err != nil {
			return err
		}
		m.Header.Set(h.key, strings.TrimSpace(value))
	}
	return nil
}

func applyBody(ctx context.Context, b *Block, m *http.Message, msg message, r template.Renderer, scope template.Scope, funcs template.FuncMap) error {
	if len(msg.body) == 0 {
		return nil
	}
	line := msg.first.Number
	body, err := render(ctx, b, line, r, strings.Join(msg.body, "\n"), scope, funcs)
	if err != nil {
		return err
	}
	body = strings.TrimSpace(body)
	if body != "" {
		m.SetBody(body)
	}
	return nil
}

func render(ctx context.Context, b *Block, line int, r template.Renderer, text string, scope template.Scope, funcs template.FuncMap) (string, error) {
	out, err := r.Render(ctx, text, scope, funcs)
	if err != nil {
		pe := newParseError(b, line, "rendering template", err)
		var tmplErr *template.Error
		if errors.As(err, &tmplErr) {
			pe.Kind = KindTemplate
		}
		return "", pe
	}
	return out, nil
}

// resolveURL applies the host and default scheme, then normalizes the URL
// so that an empty path becomes "/".
func resolveURL(target, host string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("empty URL")
	}

	if !schemePattern.MatchString(target) {
		if host = strings.TrimSpace(host); host != "" {
			target = strings.TrimRight(host, "/") + "/" + strings.TrimLeft(target, "/")
		}
		if !schemePattern.MatchString(target) {
			target = "http://" + target
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", target)
	}
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
