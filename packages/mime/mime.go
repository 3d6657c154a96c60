package mime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	stdmime "mime"
	"mime/multipart"
	"net/url"
	"strings"
)

// Strategy is a body decoding strategy.
type Strategy int

const (
	Text Strategy = iota
	JSON
	Form
	Blob
	Binary
)

func (s Strategy) String() string {
	switch s {
	case Text:
		return "text"
	case JSON:
		return "json"
	case Form:
		return "form"
	case Blob:
		return "blob"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// BlobBody is an opaque body that keeps its media type.
type BlobBody struct {
	ContentType string
	Data        []byte
}

func (b BlobBody) String() string {
	return fmt.Sprintf("<%s, %d bytes>", b.ContentType, len(b.Data))
}

// ContentTypeError reports a content type that no strategy can decode.
type ContentTypeError struct {
	ContentType string
	Err         error
}

func (e *ContentTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized content type %q: %v", e.ContentType, e.Err)
	}
	return fmt.Sprintf("unrecognized content type %q", e.ContentType)
}

func (e *ContentTypeError) Unwrap() error {
	return e.Err
}

var knownTopLevel = map[string]bool{
	"text":        true,
	"application": true,
	"image":       true,
	"audio":       true,
	"video":       true,
	"font":        true,
	"multipart":   true,
	"message":     true,
	"model":       true,
}

var textApplications = map[string]bool{
	"xml":        true,
	"javascript": true,
	"ecmascript": true,
	"graphql":    true,
	"x-yaml":     true,
	"yaml":       true,
	"x-sh":       true,
	"sql":        true,
	"csv":        true,
	"x-ndjson":   true,
}

var blobApplications = map[string]bool{
	"pdf":               true,
	"zip":               true,
	"gzip":              true,
	"x-tar":             true,
	"x-7z-compressed":   true,
	"vnd.ms-excel":      true,
	"msword":            true,
	"x-shockwave-flash": true,
}

// Classify returns the decoding strategy for a Content-Type header value
// together with its media type parameters.
func Classify(contentType string) (Strategy, map[string]string, error) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return Text, nil, nil
	}

	mediaType, params, err := stdmime.ParseMediaType(contentType)
	if err != nil {
		return 0, nil, &ContentTypeError{ContentType: contentType, Err: err}
	}

	top, sub, ok := strings.Cut(mediaType, "/")
	if !ok || !knownTopLevel[top] {
		return 0, nil, &ContentTypeError{ContentType: contentType}
	}

	switch {
	case sub == "json" || strings.HasSuffix(sub, "+json"):
		return JSON, params, nil
	case mediaType == "application/x-www-form-urlencoded", mediaType == "multipart/form-data":
		return Form, params, nil
	case top == "text":
		return Text, params, nil
	case top == "application" && (textApplications[sub] || strings.HasSuffix(sub, "+xml")):
		return Text, params, nil
	case top == "image", top == "audio", top == "video", top == "font", top == "model":
		return Blob, params, nil
	case top == "application" && blobApplications[sub]:
		return Blob, params, nil
	case top == "multipart", top == "message":
		return Text, params, nil
	default:
		return Binary, params, nil
	}
}

// Decode converts a raw body with the given strategy. The content type is
// needed for multipart boundaries and for tagging blobs.
func Decode(strategy Strategy, contentType string, raw []byte) (any, error) {
	switch strategy {
	case Text:
		return string(raw), nil
	case JSON:
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding JSON body: %w", err)
		}
		return v, nil
	case Form:
		return decodeForm(contentType, raw)
	case Blob:
		mediaType, _, _ := stdmime.ParseMediaType(contentType)
		return BlobBody{ContentType: mediaType, Data: raw}, nil
	case Binary:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown decoding strategy %s", strategy)
	}
}

// DecodeContent classifies contentType and decodes raw in one step.
func DecodeContent(contentType string, raw []byte) (any, error) {
	strategy, _, err := Classify(contentType)
	if err != nil {
		return nil, err
	}
	return Decode(strategy, contentType, raw)
}

func decodeForm(contentType string, raw []byte) (any, error) {
	mediaType, params, _ := stdmime.ParseMediaType(contentType)
	if mediaType != "multipart/form-data" {
		values, err := url.ParseQuery(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("decoding form body: %w", err)
		}
		return valuesToMap(values), nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, &ContentTypeError{ContentType: contentType, Err: fmt.Errorf("missing multipart boundary")}
	}

	values := url.Values{}
	reader := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding multipart body: %w", err)
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("reading multipart field %q: %w", part.FormName(), err)
		}
		name := part.FormName()
		if part.FileName() != "" {
			values.Add(name, part.FileName())
			continue
		}
		values.Add(name, string(data))
	}
	return valuesToMap(values), nil
}

func valuesToMap(values url.Values) map[string]any {
	result := make(map[string]any, len(values))
	for key, vs := range values {
		if len(vs) == 1 {
			result[key] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		result[key] = list
	}
	return result
}
