package builtin

import (
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"now", "uuid", "base64", "path", "shq", "env", "json"} {
		assert.True(t, r.Has(name), name)
	}
}

func TestRegistry_RegisterDoesNotLeakIntoCopies(t *testing.T) {
	r := NewRegistry()
	funcs := r.Funcs()
	funcs["extra"] = func() string { return "x" }

	assert.False(t, r.Has("extra"))
	r.Register("extra", func() string { return "y" })
	assert.True(t, r.Has("extra"))
}

func TestFuncUUID(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), funcUUID())
	assert.NotEqual(t, funcUUID(), funcUUID())
}

func TestFuncRandom(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := funcRandom(3, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 5)
	}

	_, err := funcRandom(5, 3)
	assert.Error(t, err)
}

func TestFuncBase64RoundTrip(t *testing.T) {
	encoded := funcBase64("user:pass")
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("user:pass")), encoded)

	decoded, err := funcBase64Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "user:pass", decoded)
}

func TestFuncPath(t *testing.T) {
	body := map[string]any{
		"data": map[string]any{
			"items": []any{map[string]any{"id": float64(7)}},
		},
	}

	v, err := funcPath(body, "data.items.0.id")
	require.NoError(t, err)
	assert.Equal(t, float64(7), v)

	v, err = funcPath(`{"token":"abc"}`, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = funcPath(body, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFuncShellQuote(t *testing.T) {
	assert.Equal(t, "plain", funcShellQuote("plain"))
	assert.Equal(t, `'it'"'"'s'`, funcShellQuote("it's"))
	assert.Equal(t, "42", funcShellQuote(42))
}

func TestFuncJSON(t *testing.T) {
	s, err := funcJSON(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, s)
}
