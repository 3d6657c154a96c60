package assertions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/abdul-hamid-achik/hitrun/packages/http"
)

// Assert checks actual against the fields set on expected. A zero status,
// an empty status text and an absent body are not asserted.
func Assert(expected, actual *http.Response) error {
	if expected == nil {
		return nil
	}
	if actual == nil {
		return fmt.Errorf("no response to assert against")
	}

	if expected.StatusCode != 0 && expected.StatusCode != actual.StatusCode {
		return &AssertionError{Field: FieldStatus, Expected: expected.StatusCode, Actual: actual.StatusCode}
	}

	if expected.StatusText != "" && expected.StatusText != actual.StatusText {
		return &AssertionError{Field: FieldStatusText, Expected: expected.StatusText, Actual: actual.StatusText}
	}

	if err := assertHeaders(expected, actual); err != nil {
		return err
	}

	if expected.HasBody() {
		return assertBody(expected, actual)
	}
	return nil
}

func assertHeaders(expected, actual *http.Response) error {
	names := make([]string, 0, len(expected.Header))
	for name := range expected.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := expected.Header.Get(name)
		got := strings.Join(actual.Header.Values(name), ", ")
		if want != got {
			return &AssertionError{Field: FieldHeader, Header: name, Expected: want, Actual: got}
		}
	}
	return nil
}

func assertBody(expected, actual *http.Response) error {
	if expected.Header.Get("Content-Type") == "" {
		expected.FallbackContentType = actual.ContentType()
	}

	want, err := expected.Body()
	if err != nil {
		return fmt.Errorf("decoding expected body: %w", err)
	}
	got, err := actual.Body()
	if err != nil {
		return fmt.Errorf("decoding actual body: %w", err)
	}

	want, got = normalize(want), normalize(got)

	if wantMap, ok := want.(map[string]any); ok {
		if gotMap, ok := got.(map[string]any); ok {
			if !isSubset(wantMap, gotMap) {
				return &AssertionError{
					Field:    FieldBody,
					Expected: want,
					Actual:   got,
					Diff:     cmp.Diff(want, project(gotMap, wantMap)),
				}
			}
			return nil
		}
	}

	if !cmp.Equal(want, got) {
		return &AssertionError{Field: FieldBody, Expected: want, Actual: got, Diff: cmp.Diff(want, got)}
	}
	return nil
}

// isSubset reports whether every key of want is present in got with an
// equal value. Nested objects are compared as subsets too.
func isSubset(want, got map[string]any) bool {
	for key, wantValue := range want {
		gotValue, ok := got[key]
		if !ok {
			return false
		}
		wantMap, wantIsMap := wantValue.(map[string]any)
		gotMap, gotIsMap := gotValue.(map[string]any)
		if wantIsMap && gotIsMap {
			if !isSubset(wantMap, gotMap) {
				return false
			}
			continue
		}
		if !cmp.Equal(wantValue, gotValue) {
			return false
		}
	}
	return true
}

// project keeps only the keys of got that want mentions, so diffs show
// what was compared and not every extra field.
func project(got, want map[string]any) map[string]any {
	out := make(map[string]any, len(want))
	for key, wantValue := range want {
		gotValue, ok := got[key]
		if !ok {
			continue
		}
		wantMap, wantIsMap := wantValue.(map[string]any)
		gotMap, gotIsMap := gotValue.(map[string]any)
		if wantIsMap && gotIsMap {
			out[key] = project(gotMap, wantMap)
			continue
		}
		out[key] = gotValue
	}
	return out
}

// normalize converts numeric values to float64 so integers written in
// templates compare equal to decoded JSON numbers.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		if f, ok := toFloat64(val); ok {
			return f
		}
		return v
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
