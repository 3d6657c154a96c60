package runner

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abdul-hamid-achik/hitrun/packages/assertions"
	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// hits records the paths a test server received, in order.
type hits struct {
	mu    sync.Mutex
	paths []string
}

func (h *hits) add(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
}

func (h *hits) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

// newServer starts a server that answers /status/{code} with that status
// and everything else with a small JSON document.
func newServer(t *testing.T) (*httptest.Server, *hits) {
	t.Helper()
	h := &hits{}
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/status/{code}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h.add(r.URL.Path)
		code, err := strconv.Atoi(r.PathValue("code"))
		if err != nil {
			code = nethttp.StatusBadRequest
		}
		w.WriteHeader(code)
	})
	mux.HandleFunc("/login", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h.add(r.URL.Path)
		writeJSON(w, map[string]any{"token": "abc123", "user": map[string]any{"id": 7, "name": "ana"}})
	})
	mux.HandleFunc("/me", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h.add(r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer abc123" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"id": 7, "name": "ana", "admin": false})
	})
	mux.HandleFunc("/slow", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h.add(r.URL.Path)
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h.add(r.URL.Path)
		writeJSON(w, map[string]any{"path": r.URL.Path, "ok": true})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, h
}

func writeJSON(w nethttp.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newRunner(t *testing.T, server *httptest.Server, cfg *Config, opts ...Option) *Runner {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if server != nil {
		defaults, err := meta.FromMap(map[string]any{"host": server.URL})
		require.NoError(t, err)
		cfg.Defaults = cfg.Defaults.Merge(defaults)
	}

	client := http.NewClient()
	t.Cleanup(client.CloseIdleConnections)
	return New(cfg, append([]Option{WithClient(client)}, opts...)...)
}

func run(t *testing.T, r *Runner, paths ...string) *Result {
	t.Helper()
	result, err := r.Run(context.Background(), paths)
	require.NoError(t, err)
	return result
}

func blockByID(t *testing.T, result *Result, id string) *parser.Block {
	t.Helper()
	for _, b := range result.Blocks() {
		if b.Meta.ID == id {
			return b
		}
	}
	t.Fatalf("no block with id %q", id)
	return nil
}

func TestRun_Passes(t *testing.T) {
	server, h := newServer(t)
	path := writeFile(t, t.TempDir(), "ok.http", "GET /ping\n\nHTTP/1.1 200 OK\n")

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 0, result.ExitCode())
	assert.Equal(t, []string{"/ping"}, h.list())
	assert.Equal(t, int64(1), result.Latency.Count)
}

func TestRun_StatusMismatchFails(t *testing.T) {
	server, _ := newServer(t)
	path := writeFile(t, t.TempDir(), "status.http", "GET /status/400\n\nHTTP/1.1 200\n")

	result := run(t, newRunner(t, server, nil), path)

	require.Equal(t, 1, result.Failed)
	b := result.FailedBlocks()[0]
	var assertErr *assertions.AssertionError
	require.ErrorAs(t, b.Err, &assertErr)
	assert.Equal(t, assertions.FieldStatus, assertErr.Field)
	assert.Equal(t, 1, result.ExitCode())
}

func TestRun_NeedsRunFirstAndShareResults(t *testing.T) {
	server, h := newServer(t)
	doc := strings.Join([]string{
		"---",
		"id: me",
		"needs: login",
		"---",
		"GET /me",
		"Authorization: Bearer <%= .login.body.token %>",
		"",
		"HTTP/1.1 200",
		"",
		`{"name": "<%= .login.body.user.name %>"}`,
		"###",
		"---",
		"id: login",
		"---",
		"POST /login",
		"",
		"HTTP/1.1 200",
	}, "\n")
	path := writeFile(t, t.TempDir(), "needs.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, []string{"/login", "/me"}, h.list())
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, parser.StatePassed, blockByID(t, result, "me").State())
}

func TestRun_NeedsCycleAbortsBeforeAnyRequest(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nid: a\nneeds: b\n---\nGET /a\n###\n---\nid: b\nneeds: a\n---\nGET /b\n"
	path := writeFile(t, t.TempDir(), "cycle.http", doc)

	_, err := newRunner(t, server, nil).Run(context.Background(), []string{path})

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, DependencyCycle, depErr.Kind)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
	assert.Empty(t, h.list())
}

func TestRun_SelfNeedIsCycle(t *testing.T) {
	path := writeFile(t, t.TempDir(), "self.http", "---\nid: a\nneeds: a\n---\nGET http://localhost/a\n")

	_, err := newRunner(t, nil, nil).Run(context.Background(), []string{path})

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, DependencyCycle, depErr.Kind)
}

func TestRun_MissingNeedsTarget(t *testing.T) {
	server, h := newServer(t)
	path := writeFile(t, t.TempDir(), "missing.http", "---\nneeds: nowhere\n---\nGET /a\n")

	_, err := newRunner(t, server, nil).Run(context.Background(), []string{path})

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, DependencyMissing, depErr.Kind)
	assert.Equal(t, "nowhere", depErr.ID)
	assert.Empty(t, h.list())
}

func TestRun_FailedDependencyFailsDependent(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nid: broken\n---\nGET /status/500\n\nHTTP/1.1 200\n###\n---\nneeds: broken\n---\nGET /after\n"
	path := writeFile(t, t.TempDir(), "dep.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"/status/500"}, h.list())

	dependent := result.Blocks()[1]
	var depErr *DependencyError
	require.ErrorAs(t, dependent.Err, &depErr)
	assert.Equal(t, DependencyFailed, depErr.Kind)
	assert.Same(t, result.Blocks()[0], depErr.To)
}

func TestRun_IgnoredDependencyStillRunsDependent(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nid: skipped\nignore: true\n---\nGET /skipped\n###\n---\nneeds: skipped\n---\nGET /after\n\nHTTP/1.1 200\n"
	path := writeFile(t, t.TempDir(), "ignored.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 1, result.Ignored)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, []string{"/after"}, h.list())
}

func TestRun_OnlyMode(t *testing.T) {
	server, h := newServer(t)
	var blocks []string
	for i := 0; i < 5; i++ {
		block := "GET /b" + strconv.Itoa(i) + "\n"
		if i == 2 {
			block = "---\nonly: true\n---\n" + block
		}
		blocks = append(blocks, block)
	}
	path := writeFile(t, t.TempDir(), "only.http", strings.Join(blocks, "###\n"))

	result := run(t, newRunner(t, server, nil), path)

	assert.True(t, result.OnlyMode)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 4, result.Ignored)
	assert.Equal(t, []string{"/b2"}, h.list())
	assert.NotEmpty(t, result.Warnings)
	assert.NotZero(t, result.ExitCode())
}

func TestRun_OnlyModeKeepsNeeds(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nid: login\n---\nPOST /login\n###\nGET /other\n###\n---\nonly: true\nneeds: login\n---\nGET /focused\n"
	path := writeFile(t, t.TempDir(), "only-needs.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Ignored)
	assert.Equal(t, []string{"/login", "/focused"}, h.list())
}

func TestRun_BodySubset(t *testing.T) {
	server, _ := newServer(t)
	dir := t.TempDir()
	pass := writeFile(t, dir, "subset.http", "GET /thing\n\nHTTP/1.1 200\n\n{\"path\": \"/thing\"}\n")
	fail := writeFile(t, dir, "mismatch.http", "GET /thing\n\nHTTP/1.1 200\n\n{\"path\": \"/other\"}\n")

	r := newRunner(t, server, nil)
	assert.Equal(t, 1, run(t, r, pass).Passed)

	result := run(t, r, fail)
	require.Equal(t, 1, result.Failed)
	var assertErr *assertions.AssertionError
	require.ErrorAs(t, result.FailedBlocks()[0].Err, &assertErr)
	assert.Equal(t, assertions.FieldBody, assertErr.Field)
	assert.NotEmpty(t, assertErr.Diff)
}

func TestRun_Timeout(t *testing.T) {
	server, _ := newServer(t)
	path := writeFile(t, t.TempDir(), "slow.http", "---\ntimeout: 50\n---\nGET /slow\n")

	start := time.Now()
	result := run(t, newRunner(t, server, nil), path)

	assert.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1, result.Failed)
	var transportErr *http.TransportError
	require.ErrorAs(t, result.FailedBlocks()[0].Err, &transportErr)
	assert.True(t, transportErr.Timeout)
}

func TestRun_IgnoreSkipsMalformedBlocks(t *testing.T) {
	server, _ := newServer(t)
	doc := "---\nignore: true\n---\nGET http://[::1\n###\nGET /fine\n"
	path := writeFile(t, t.TempDir(), "ignore.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 1, result.Ignored)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 0, result.ExitCode())
}

func TestRun_MalformedURLFails(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.http", "GET http://[::1\n")

	result := run(t, newRunner(t, nil, nil), path)

	require.Equal(t, 1, result.Failed)
	var parseErr *parser.ParseError
	assert.ErrorAs(t, result.FailedBlocks()[0].Err, &parseErr)
}

func TestRun_InvalidFrontMatterFailsBlock(t *testing.T) {
	server, h := newServer(t)
	path := writeFile(t, t.TempDir(), "meta.http", "---\ntimeout: soon\n---\nGET /never\n")

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, h.list())
}

func TestRun_FailFast(t *testing.T) {
	server, h := newServer(t)
	doc := "GET /status/500\n\nHTTP/1.1 200\n###\nGET /second\n###\nGET /third\n"
	path := writeFile(t, t.TempDir(), "fast.http", doc)

	result := run(t, newRunner(t, server, &Config{FailFast: true}), path)

	assert.True(t, result.Aborted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"/status/500"}, h.list())
	assert.Equal(t, parser.StatePending, result.Blocks()[1].State())
}

func TestRun_MetadataBlockSetsFileDefaults(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nhost: " + server.URL + "\n---\n###\nGET /from-meta\n\nHTTP/1.1 200\n"
	path := writeFile(t, t.TempDir(), "defaults.http", doc)

	result := run(t, newRunner(t, nil, nil), path)

	assert.Equal(t, 1, result.Empty)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, []string{"/from-meta"}, h.list())
}

func TestRun_Imports(t *testing.T) {
	server, h := newServer(t)
	dir := t.TempDir()
	writeFile(t, dir, "common.http", "---\nid: login\n---\nPOST /login\n")
	main := writeFile(t, dir, "main.http", strings.Join([]string{
		"---",
		"import: common.http",
		"---",
		"###",
		"---",
		"needs: login",
		"---",
		"GET /me",
		"Authorization: Bearer <%= .login.body.token %>",
		"",
		"HTTP/1.1 200",
	}, "\n"))

	result := run(t, newRunner(t, server, &Config{WorkDir: dir}), main)

	require.Len(t, result.Files, 2)
	assert.Equal(t, "common.http", result.Files[0].RelPath)
	assert.Equal(t, "main.http", result.Files[1].RelPath)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, []string{"/login", "/me"}, h.list())
}

func TestRun_ImportLoadedOnce(t *testing.T) {
	server, h := newServer(t)
	dir := t.TempDir()
	common := writeFile(t, dir, "common.http", "GET /common\n")
	main := writeFile(t, dir, "main.http", "---\nimport: common.http\n---\n###\nGET /main\n")

	result := run(t, newRunner(t, server, nil), common, main)

	assert.Len(t, result.Files, 2)
	assert.Equal(t, []string{"/common", "/main"}, h.list())
}

func TestRun_ImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.http", "---\nimport: b.http\n---\n")
	writeFile(t, dir, "b.http", "---\nimport: a.http\n---\n")

	_, err := newRunner(t, nil, &Config{WorkDir: dir}).Run(context.Background(), []string{filepath.Join(dir, "a.http")})

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, DependencyImportCycle, depErr.Kind)
	assert.Equal(t, []string{"a.http", "b.http", "a.http"}, depErr.Path)
}

func TestRun_UnreadableFile(t *testing.T) {
	_, err := newRunner(t, nil, nil).Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.http")})
	assert.Error(t, err)
}

func TestRun_DuplicateIDFirstWins(t *testing.T) {
	server, _ := newServer(t)
	doc := "---\nid: twin\n---\nGET /first\n###\n---\nid: twin\n---\nGET /second\n###\n---\nneeds: twin\n---\nGET /after\n"
	path := writeFile(t, t.TempDir(), "dup.http", doc)

	r := newRunner(t, server, nil)
	plan, err := r.Load(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Same(t, plan.Files[0].Blocks[0], plan.Index["twin"])
	assert.Len(t, plan.Warnings, 1)
}

func TestRun_DuplicateIDScopeUsesFirstDeclaration(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nid: twin\n---\nGET /first\n###\n---\nid: twin\n---\nGET /second\n###\n---\nneeds: twin\n---\nGET /echo<%= .twin.body.path %>\n"
	path := writeFile(t, t.TempDir(), "dup.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, []string{"/first", "/second", "/echo/first"}, h.list())
}

func TestRun_TemplateScopeHasVarsAndReservedScalars(t *testing.T) {
	server, h := newServer(t)
	doc := "---\nid: greet\ntimeout: 5000\n---\nGET /hello/<%= .name %>/<%= .id %>/<%= .timeout %>\n"
	path := writeFile(t, t.TempDir(), "scope.http", doc)

	cfg := &Config{Defaults: meta.FromVars(map[string]any{"name": "ana"})}
	result := run(t, newRunner(t, server, cfg), path)

	require.Equal(t, 1, result.Passed, "%v", result.Blocks()[0].Err)
	assert.Equal(t, []string{"/hello/ana/greet/5000"}, h.list())
}

func TestRun_Command(t *testing.T) {
	server, _ := newServer(t)
	dir := t.TempDir()
	doc := "---\ncommand: echo ran > marker.txt\n---\nGET /with-command\n###\n---\ncommand: exit 3\n---\nGET /never\n###\n---\ncommand: -exit 3\n---\nGET /tolerated\n"
	path := writeFile(t, dir, "command.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	marker, err := os.ReadFile(filepath.Join(dir, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ran\n", string(marker))

	assert.Equal(t, 2, result.Passed)
	require.Equal(t, 1, result.Failed)
	var cmdErr *CommandError
	assert.ErrorAs(t, result.FailedBlocks()[0].Err, &cmdErr)
}

func TestRun_Schema(t *testing.T) {
	server, _ := newServer(t)
	dir := t.TempDir()
	writeFile(t, dir, "schema.json", `{"type":"object","required":["path","ok"],"properties":{"ok":{"type":"boolean"}}}`)
	writeFile(t, dir, "strict.json", `{"type":"object","required":["missing"]}`)
	doc := "---\nschema: schema.json\n---\nGET /valid\n###\n---\nschema: strict.json\n---\nGET /invalid\n"
	path := writeFile(t, dir, "schema.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 1, result.Passed)
	require.Equal(t, 1, result.Failed)
	var assertErr *assertions.AssertionError
	require.ErrorAs(t, result.FailedBlocks()[0].Err, &assertErr)
	assert.Equal(t, assertions.FieldSchema, assertErr.Field)
}

func TestRun_ResponseTemplateHelpers(t *testing.T) {
	server, _ := newServer(t)
	doc := "GET /echo\n\nHTTP/1.1 <% if .response.body.ok %>200<% else %>500<% end %>\n"
	path := writeFile(t, t.TempDir(), "helpers.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	assert.Equal(t, 1, result.Passed)
}

func TestRun_RateLimit(t *testing.T) {
	server, h := newServer(t)
	path := writeFile(t, t.TempDir(), "rate.http", "GET /one\n###\nGET /two\n")

	result := run(t, newRunner(t, server, nil, WithRateLimit(1000)), path)

	assert.Equal(t, 2, result.Passed)
	assert.Len(t, h.list(), 2)
}

func TestRun_Canceled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cancel.http", "GET http://localhost/\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, nil, nil).Run(ctx, []string{path})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EveryBlockReachesTerminalState(t *testing.T) {
	server, _ := newServer(t)
	doc := "# notes only\n###\nGET /a\n###\n---\nignore: true\n---\nGET /b\n###\nGET /status/404\n\nHTTP/1.1 200\n"
	path := writeFile(t, t.TempDir(), "states.http", doc)

	result := run(t, newRunner(t, server, nil), path)

	for _, b := range result.Blocks() {
		assert.True(t, b.State().Terminal(), b.Location())
	}
	assert.Equal(t, 1, result.Empty)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Ignored)
	assert.Equal(t, 1, result.Failed)
}
