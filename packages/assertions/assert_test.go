package assertions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitrun/packages/http"
)

func actualResponse(status int, statusText, contentType, body string) *http.Response {
	resp := http.NewResponse()
	resp.StatusCode = status
	resp.StatusText = statusText
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	resp.SetBody(body)
	return resp
}

func expectedResponse(status int, statusText string, headers map[string]string, body string) *http.Response {
	resp := http.NewResponse()
	resp.StatusCode = status
	resp.StatusText = statusText
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	if body != "" {
		resp.SetBody(body)
	}
	return resp
}

func requireField(t *testing.T, err error, field Field) *AssertionError {
	t.Helper()
	var assertErr *AssertionError
	require.True(t, errors.As(err, &assertErr), "expected AssertionError, got %v", err)
	assert.Equal(t, field, assertErr.Field)
	return assertErr
}

func TestAssert_Status(t *testing.T) {
	err := Assert(expectedResponse(200, "OK", nil, ""), actualResponse(400, "Bad Request", "", ""))

	assertErr := requireField(t, err, FieldStatus)
	assert.Equal(t, 200, assertErr.Expected)
	assert.Equal(t, 400, assertErr.Actual)
}

func TestAssert_StatusText(t *testing.T) {
	err := Assert(expectedResponse(200, "Fine", nil, ""), actualResponse(200, "OK", "", ""))
	requireField(t, err, FieldStatusText)
}

func TestAssert_OnlySetFieldsAreChecked(t *testing.T) {
	actual := actualResponse(503, "Service Unavailable", "application/json", `{"a":1}`)

	assert.NoError(t, Assert(expectedResponse(0, "", nil, ""), actual))
	assert.NoError(t, Assert(expectedResponse(503, "", nil, ""), actual))
	assert.NoError(t, Assert(expectedResponse(0, "", map[string]string{"Content-Type": "application/json"}, ""), actual))
	assert.NoError(t, Assert(nil, actual))
}

func TestAssert_ShortCircuitOrder(t *testing.T) {
	actual := actualResponse(500, "Internal Server Error", "text/plain", "boom")
	expected := expectedResponse(200, "OK", map[string]string{"X-Id": "1"}, "fine")

	requireField(t, Assert(expected, actual), FieldStatus)

	expected.StatusCode = 500
	requireField(t, Assert(expected, actual), FieldStatusText)

	expected.StatusText = "Internal Server Error"
	header := requireField(t, Assert(expected, actual), FieldHeader)
	assert.Equal(t, "X-Id", header.Header)

	expected.Header.Del("X-Id")
	requireField(t, Assert(expected, actual), FieldBody)
}

func TestAssert_Headers(t *testing.T) {
	actual := actualResponse(200, "OK", "application/json", "")
	actual.Header.Set("X-Extra", "ignored")
	actual.Header.Add("Vary", "Accept")
	actual.Header.Add("Vary", "Origin")

	assert.NoError(t, Assert(expectedResponse(0, "", map[string]string{"content-type": "application/json"}, ""), actual))
	assert.NoError(t, Assert(expectedResponse(0, "", map[string]string{"Vary": "Accept, Origin"}, ""), actual))

	err := Assert(expectedResponse(0, "", map[string]string{"X-Missing": "v"}, ""), actual)
	assertErr := requireField(t, err, FieldHeader)
	assert.Equal(t, "v", assertErr.Expected)
	assert.Equal(t, "", assertErr.Actual)
}

func TestAssert_BodySubset(t *testing.T) {
	actual := actualResponse(200, "OK", "application/json", `{"foo":"bar","bar":"foo"}`)
	assert.NoError(t, Assert(expectedResponse(0, "", nil, `{"foo":"bar"}`), actual))

	actual = actualResponse(200, "OK", "application/json", `{"foo":"bar"}`)
	err := Assert(expectedResponse(0, "", nil, `{"foo":"bar","b":"f"}`), actual)
	assertErr := requireField(t, err, FieldBody)
	assert.NotEmpty(t, assertErr.Diff)
}

func TestAssert_NestedSubset(t *testing.T) {
	actual := actualResponse(200, "OK", "application/json", `{"user":{"id":1,"name":"a","roles":["x","y"]},"meta":{}}`)

	assert.NoError(t, Assert(expectedResponse(0, "", nil, `{"user":{"id":1}}`), actual))
	assert.NoError(t, Assert(expectedResponse(0, "", nil, `{"user":{"roles":["x","y"]}}`), actual))

	err := Assert(expectedResponse(0, "", nil, `{"user":{"roles":["x"]}}`), actual)
	requireField(t, err, FieldBody)
}

func TestAssert_BodyExact(t *testing.T) {
	actual := actualResponse(200, "OK", "text/plain", "hola mundo")
	assert.NoError(t, Assert(expectedResponse(0, "", nil, "hola mundo"), actual))
	requireField(t, Assert(expectedResponse(0, "", nil, "hola"), actual), FieldBody)

	arrays := actualResponse(200, "OK", "application/json", `[1,2,3]`)
	assert.NoError(t, Assert(expectedResponse(0, "", nil, `[1, 2, 3]`), arrays))
	requireField(t, Assert(expectedResponse(0, "", nil, `[1,2]`), arrays), FieldBody)
}

func TestAssert_ObjectAgainstNonObject(t *testing.T) {
	actual := actualResponse(200, "OK", "application/json", `["foo"]`)
	requireField(t, Assert(expectedResponse(0, "", nil, `{"foo":"bar"}`), actual), FieldBody)
}

func TestAssert_ExpectedContentTypeWins(t *testing.T) {
	actual := actualResponse(200, "OK", "text/plain", `{"foo":"bar","x":1}`)
	expected := expectedResponse(0, "", map[string]string{"Content-Type": "text/plain"}, `{"foo":"bar"}`)
	requireField(t, Assert(expected, actual), FieldBody)
}

func TestAssert_DecodeErrors(t *testing.T) {
	actual := actualResponse(200, "OK", "application/json", `not json`)
	err := Assert(expectedResponse(0, "", nil, `{"a":1}`), actual)

	require.Error(t, err)
	var assertErr *AssertionError
	assert.False(t, errors.As(err, &assertErr))
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Field: FieldStatus, Expected: 200, Actual: 400}
	assert.Equal(t, "status: expected 200, got 400", err.Error())

	err = &AssertionError{Field: FieldHeader, Header: "X-Id", Expected: "1", Actual: "2"}
	assert.Equal(t, `header X-Id: expected "1", got "2"`, err.Error())
}

func TestValidateSchema(t *testing.T) {
	dir := t.TempDir()
	schema := `{
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "number"},
    "name": {"type": "string"}
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(schema), 0644))

	assert.NoError(t, ValidateSchema("user.json", dir, map[string]any{"id": 1.0, "name": "a"}))

	err := ValidateSchema("user.json", dir, map[string]any{"id": "x"})
	assertErr := requireField(t, err, FieldSchema)
	assert.Contains(t, assertErr.Actual, "name")

	err = ValidateSchema("../outside.json", dir, nil)
	assert.ErrorContains(t, err, "path traversal")

	err = ValidateSchema("missing.json", dir, nil)
	assert.ErrorContains(t, err, "failed to read schema file")
}

func TestHelpers(t *testing.T) {
	ok, err := matches("/^[0-9]+$/", 42)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = matches("[", "x")
	assert.Error(t, err)

	assert.True(t, contains([]any{1.0, "b"}, 1))
	assert.True(t, contains(map[string]any{"k": 1}, "k"))
	assert.True(t, contains("hello world", "world"))
	assert.False(t, contains([]any{"a"}, "b"))

	assert.True(t, oneOf(201.0, 200, 201))
	assert.False(t, oneOf("x", "a", "b"))

	assert.True(t, exists("v"))
	assert.False(t, exists(nil))
	assert.False(t, exists(map[string]any(nil)))

	assert.Len(t, Helpers(), 4)
}
