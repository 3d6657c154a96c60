package runner

import (
	nethttp "net/http"
	"strings"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
	"github.com/abdul-hamid-achik/hitrun/packages/template"
)

// requestScope layers the block's reserved scalars, the global user keys,
// the completed named blocks and the block's own user keys, in that order.
func (s *scheduler) requestScope(m meta.Meta) template.Scope {
	return template.Scope(m.Scalars()).Merge(s.defaults.User).Merge(s.named).Merge(m.User)
}

// responseScope adds the executed request and response to scope.
func responseScope(scope template.Scope, req *http.Request, resp *http.Response, body any) template.Scope {
	return scope.Merge(map[string]any{
		"request":  requestValue(req),
		"response": responseValue(resp, body),
	})
}

// namedValue is what later blocks see under a completed block's id.
func namedValue(b *parser.Block) map[string]any {
	value := map[string]any{
		"id":       b.Meta.ID,
		"meta":     b.Meta.Raw(),
		"state":    b.State().String(),
		"duration": b.Duration.Milliseconds(),
	}
	if b.Request != nil {
		value["request"] = requestValue(b.Request)
	}
	if resp := b.Response; resp != nil {
		value["status"] = resp.StatusCode
		value["statusText"] = resp.StatusText
		value["headers"] = headerValue(resp.Header)
		value["body"] = decodedBody(resp)
		value["raw"] = resp.BodyString()
	}
	return value
}

// decodedBody is the decoded body, or the raw text when it does not decode.
func decodedBody(resp *http.Response) any {
	body, err := resp.Body()
	if err != nil {
		return resp.BodyString()
	}
	return body
}

func requestValue(req *http.Request) map[string]any {
	if req == nil {
		return nil
	}
	return map[string]any{
		"method":  req.Method,
		"url":     req.URL,
		"headers": headerValue(req.Header),
		"body":    req.BodyString(),
	}
}

func responseValue(resp *http.Response, body any) map[string]any {
	return map[string]any{
		"status":     resp.StatusCode,
		"statusText": resp.StatusText,
		"headers":    headerValue(resp.Header),
		"body":       body,
		"raw":        resp.BodyString(),
	}
}

// headerValue flattens a header multimap, joining repeated values.
func headerValue(h nethttp.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, values := range h {
		out[k] = strings.Join(values, ", ")
	}
	return out
}
