package parser

import (
	"context"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/template"
)

// ExtractMeta locates the block's front matter, renders it with scope,
// decodes it as YAML and stores the result on the block. A block without
// front matter gets an empty Meta. On error the front matter is still
// stripped so the rest of the block remains parseable.
func ExtractMeta(ctx context.Context, b *Block, r template.Renderer, scope template.Scope) error {
	start, end, found, err := findFrontMatter(b)
	if !found {
		b.Meta, _ = meta.FromMap(nil)
		return err
	}

	b.content = b.lines[end+1:]
	b.request, b.response = splitSections(b.content)

	source := joinLines(b.lines[start+1 : end])
	rendered, err := r.Render(ctx, source, scope, nil)
	if err != nil {
		pe := newParseError(b, b.lines[start].Number, "rendering front matter", err)
		var tmplErr *template.Error
		if errors.As(err, &tmplErr) {
			pe.Kind = KindTemplate
		}
		return pe
	}

	var values map[string]any
	if err := yaml.Unmarshal([]byte(rendered), &values); err != nil {
		return newParseError(b, b.lines[start].Number, "invalid front matter", err)
	}

	m, err := meta.FromMap(values)
	if err != nil {
		if ignore, ok := values["ignore"].(bool); ok {
			b.Meta.Ignore = ignore
			b.Meta.Set(meta.KeyIgnore)
		}
		return newParseError(b, b.lines[start].Number, "invalid front matter", err)
	}
	b.Meta = m
	return nil
}

// findFrontMatter returns the indexes of the opening and closing "---"
// lines. Front matter must open before any request line.
func findFrontMatter(b *Block) (int, int, bool, error) {
	start := -1
	for i, line := range b.lines {
		if line.Kind == LineBlank || line.Kind == LineSeparator {
			continue
		}
		if line.Kind == LineFrontMatter {
			start = i
		}
		break
	}
	if start < 0 {
		return 0, 0, false, nil
	}

	for i := start + 1; i < len(b.lines); i++ {
		switch b.lines[i].Kind {
		case LineFrontMatter:
			return start, i, true, nil
		case LineSeparator:
			return 0, 0, false, newParseError(b, b.lines[start].Number, "unterminated front matter", nil)
		}
	}
	return 0, 0, false, newParseError(b, b.lines[start].Number, "unterminated front matter", nil)
}

// FrontMatter returns the raw front matter text of a block, if any.
func FrontMatter(b *Block) string {
	start, end, found, _ := findFrontMatter(b)
	if !found {
		return ""
	}
	return strings.TrimSpace(joinLines(b.lines[start+1 : end]))
}
