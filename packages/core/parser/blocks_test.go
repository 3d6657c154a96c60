package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBlocks_Empty(t *testing.T) {
	assert.Empty(t, SplitBlocks("", "empty.http"))
}

func TestSplitBlocks_SeparatorOnly(t *testing.T) {
	blocks := SplitBlocks("###", "sep.http")
	require.Len(t, blocks, 1)
	assert.Equal(t, 0, blocks[0].StartLine)
	assert.Equal(t, 0, blocks[0].EndLine)
}

func TestSplitBlocks_NoSeparator(t *testing.T) {
	blocks := SplitBlocks("GET http://h/\nAccept: */*", "one.http")
	require.Len(t, blocks, 1)
	assert.Equal(t, 0, blocks[0].StartLine)
	assert.Equal(t, 1, blocks[0].EndLine)
	assert.Equal(t, "GET http://h/\nAccept: */*", blocks[0].Text)
}

func TestSplitBlocks_Spans(t *testing.T) {
	doc := strings.Join([]string{
		"GET http://a/",  // 0
		"",               // 1
		"### second",     // 2
		"POST http://b/", // 3
		"",               // 4
		"body",           // 5
		"####",           // 6
		"GET http://c/",  // 7
	}, "\n")

	blocks := SplitBlocks(doc, "spans.http")
	require.Len(t, blocks, 3)

	spans := [][2]int{{0, 2}, {3, 6}, {7, 7}}
	for i, b := range blocks {
		assert.Equal(t, spans[i][0], b.StartLine, "block %d start", i)
		assert.Equal(t, spans[i][1], b.EndLine, "block %d end", i)
		assert.Equal(t, i, b.Index)
		assert.Equal(t, "spans.http", b.File.Path)
	}
}

func TestSplitBlocks_Partition(t *testing.T) {
	docs := []string{
		"GET http://a/",
		"###",
		"###\n###\n###",
		"GET http://a/\n###\nGET http://b/\n###\nGET http://c/",
		"---\nid: a\n---\nGET http://a/\n\n### b\nGET http://b/\nHTTP/1.1 200 OK",
		"# comment\n\n###\n\n\nGET http://x/",
		"GET http://a/\n###\n\n",
		"GET http://a/\n###\n\n\n",
		"GET http://a/\n###\n  \n",
	}

	for _, doc := range docs {
		blocks := SplitBlocks(doc, "p.http")
		require.NotEmpty(t, blocks)

		want := strings.TrimSuffix(doc, "\n")
		next := 0
		texts := make([]string, len(blocks))
		for i, b := range blocks {
			assert.Equal(t, next, b.StartLine, "gap before block %d in %q", i, doc)
			assert.LessOrEqual(t, b.StartLine, b.EndLine)
			next = b.EndLine + 1
			texts[i] = b.Text
		}
		assert.Equal(t, strings.Count(want, "\n")+1, next, "uncovered lines in %q", doc)
		assert.Equal(t, want, strings.Join(texts, "\n"))
	}
}

func TestSplitBlocks_BlankTrailingSpan(t *testing.T) {
	for _, doc := range []string{"GET http://a/\n###\n\n", "GET http://a/\n###\n\n\n"} {
		blocks := SplitBlocks(doc, "t.http")
		require.Len(t, blocks, 2, doc)
		assert.Equal(t, 2, blocks[1].StartLine)
		assert.False(t, blocks[1].HasRequest())
	}
}

func TestSplitBlocks_TrailingBlock(t *testing.T) {
	blocks := SplitBlocks("GET http://a/\n###\nGET http://b/\n", "t.http")
	require.Len(t, blocks, 2)
	assert.Equal(t, 2, blocks[1].StartLine)
	assert.Equal(t, "GET http://b/", blocks[1].Text)

	blocks = SplitBlocks("GET http://a/\n###\n", "t.http")
	require.Len(t, blocks, 1)
}

func TestSplitBlocks_HeadingsAreNotSeparatorsUnlessAtColumnZero(t *testing.T) {
	blocks := SplitBlocks("GET http://a/\n  ### indented\nbody", "h.http")
	require.Len(t, blocks, 1)

	blocks = SplitBlocks("GET http://a/\n## two hashes\n", "h.http")
	require.Len(t, blocks, 1)
}

func TestBlock_Description(t *testing.T) {
	blocks := SplitBlocks("# just a note\n###\nGET http://h/users\n", "d.http")
	require.Len(t, blocks, 2)
	assert.Equal(t, "# just a note", blocks[0].Description())
	assert.Equal(t, "GET http://h/users", blocks[1].Description())
}

func TestBlock_FinishTwicePanics(t *testing.T) {
	b := SplitBlocks("GET http://h/", "f.http")[0]
	b.Resolve()
	assert.Equal(t, StateResolving, b.State())

	b.Finish(StatePassed, nil)
	assert.Equal(t, StatePassed, b.State())

	assert.Panics(t, func() { b.Finish(StateFailed, nil) })
	assert.Panics(t, func() { b.Resolve() })
}

func TestBlock_FinishRequiresTerminalState(t *testing.T) {
	b := SplitBlocks("GET http://h/", "f.http")[0]
	assert.Panics(t, func() { b.Finish(StateResolving, nil) })
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"###", LineSeparator},
		{"### Login", LineSeparator},
		{"", LineBlank},
		{"   ", LineBlank},
		{"---", LineFrontMatter},
		{"GET http://h/", LineMethod},
		{"  PATCH /x", LineMethod},
		{"get http://h/", LineText},
		{"GETTER", LineText},
		{"HTTP/1.1 200 OK", LineStatus},
		{"# note", LineComment},
		{"Content-Type: application/json", LineHeader},
		{`{"a": 1}`, LineText},
		{"line\r", LineText},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}
