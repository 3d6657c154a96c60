package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
)

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hitrun.yaml")
	content := `host: https://api.example.com
timeout: 5000
failFast: true
headers:
  Accept: application/json
vars:
  user: ana
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Host)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.True(t, cfg.GetFailFast())
	assert.Equal(t, "application/json", cfg.Headers["Accept"])
	assert.Equal(t, "ana", cfg.Vars["user"])
	assert.Equal(t, "standard", cfg.Display)
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hitrun.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"host": "localhost:8080", "validateSSL": false}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Host)
	assert.False(t, cfg.GetValidateSSL())
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hitrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFind_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hitrun.yml"), []byte("display: verbose\n"), 0o644))

	cfg, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, "verbose", cfg.Display)
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.IsDefault())
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetFailFast())
	assert.Zero(t, cfg.Timeout)
}

func TestMerge(t *testing.T) {
	base := &Config{
		Host:     "a.example.com",
		Timeout:  1000,
		FailFast: BoolPtr(true),
		Vars:     map[string]any{"user": "ana", "role": "admin"},
	}
	override := &Config{
		Timeout:  2000,
		FailFast: BoolPtr(false),
		Vars:     map[string]any{"user": "bo"},
	}

	merged := base.Merge(override)

	assert.Equal(t, "a.example.com", merged.Host)
	assert.Equal(t, 2000, merged.Timeout)
	assert.False(t, merged.GetFailFast())
	assert.Equal(t, map[string]any{"user": "bo", "role": "admin"}, merged.Vars)
	assert.Equal(t, "ana", base.Vars["user"])
	assert.Same(t, base, base.Merge(nil))
}

func TestToMeta(t *testing.T) {
	cfg := &Config{
		Host:    "api.example.com",
		Timeout: 1500,
		Vars:    map[string]any{"token": "secret"},
	}

	m, err := cfg.ToMeta()
	require.NoError(t, err)

	assert.Equal(t, "api.example.com", m.Host)
	assert.Equal(t, 1500*time.Millisecond, m.Timeout)
	assert.True(t, m.Has(meta.KeyHost))
	assert.False(t, m.Has(meta.KeyDisplay))
	assert.Equal(t, "secret", m.User["token"])
}

func TestToMeta_VarsNamedLikeReservedKeysStayUserKeys(t *testing.T) {
	cfg := &Config{Vars: map[string]any{"name": "ana", "description": "d", "host": "var-host"}}

	m, err := cfg.ToMeta()
	require.NoError(t, err)

	assert.Empty(t, m.ID)
	assert.Empty(t, m.Host)
	assert.False(t, m.Has(meta.KeyHost))
	assert.Equal(t, map[string]any{"name": "ana", "description": "d", "host": "var-host"}, m.User)
}
