package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		want        Strategy
	}{
		{"", Text},
		{"application/json", JSON},
		{"application/json; charset=utf-8", JSON},
		{"application/problem+json", JSON},
		{"text/json", JSON},
		{"text/plain", Text},
		{"text/html; charset=utf-8", Text},
		{"application/xml", Text},
		{"application/atom+xml", Text},
		{"application/x-www-form-urlencoded", Form},
		{"multipart/form-data; boundary=xyz", Form},
		{"image/png", Blob},
		{"application/pdf", Blob},
		{"application/octet-stream", Binary},
		{"application/vnd.custom", Binary},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, _, err := Classify(tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	for _, ct := range []string{"nonsense", "weird/type", "text/"} {
		_, _, err := Classify(ct)
		var ctErr *ContentTypeError
		require.ErrorAs(t, err, &ctErr, ct)
		assert.Equal(t, ct, ctErr.ContentType)
	}
}

func TestDecodeContent(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		v, err := DecodeContent("application/json", []byte(`{"foo":"bar","n":1}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"foo": "bar", "n": float64(1)}, v)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeContent("application/json", []byte(`{"foo"`))
		assert.Error(t, err)
	})

	t.Run("text", func(t *testing.T) {
		v, err := DecodeContent("text/plain", []byte("hola mundo"))
		require.NoError(t, err)
		assert.Equal(t, "hola mundo", v)
	})

	t.Run("form", func(t *testing.T) {
		v, err := DecodeContent("application/x-www-form-urlencoded", []byte("a=1&b=2&b=3"))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": "1", "b": []any{"2", "3"}}, v)
	})

	t.Run("multipart", func(t *testing.T) {
		body := "--xyz\r\n" +
			"Content-Disposition: form-data; name=\"name\"\r\n\r\n" +
			"gopher\r\n" +
			"--xyz--\r\n"
		v, err := DecodeContent("multipart/form-data; boundary=xyz", []byte(body))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "gopher"}, v)
	})

	t.Run("blob", func(t *testing.T) {
		v, err := DecodeContent("image/png", []byte{0x89, 0x50})
		require.NoError(t, err)
		assert.Equal(t, BlobBody{ContentType: "image/png", Data: []byte{0x89, 0x50}}, v)
	})

	t.Run("binary", func(t *testing.T) {
		v, err := DecodeContent("application/octet-stream", []byte{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, v)
	})
}
