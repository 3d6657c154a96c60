package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/template"
)

// Plan is the result of the load phase: every file and block with its
// front matter extracted and the needs graph validated.
type Plan struct {
	Files    []*parser.File
	Index    map[string]*parser.Block
	OnlyMode bool
	Warnings []string

	allowed map[*parser.Block]bool
}

// Blocks returns every block in file order.
func (p *Plan) Blocks() []*parser.Block {
	var blocks []*parser.Block
	for _, f := range p.Files {
		blocks = append(blocks, f.Blocks...)
	}
	return blocks
}

// Excluded reports whether only mode keeps b from running.
func (p *Plan) Excluded(b *parser.Block) bool {
	return p.OnlyMode && !p.allowed[b]
}

type loader struct {
	runner  *Runner
	scope   template.Scope
	files   []*parser.File
	loaded  map[string]bool
	onStack map[string]bool
	stack   []string
}

// Load runs the parse phase for paths. Imported files are placed before
// the files that import them; each file is loaded once.
func (r *Runner) Load(ctx context.Context, paths []string) (*Plan, error) {
	l := &loader{
		runner:  r,
		scope:   template.Scope(r.config.Defaults.Scalars()).Merge(r.config.Defaults.User),
		loaded:  make(map[string]bool),
		onStack: make(map[string]bool),
	}

	for _, path := range paths {
		if err := l.load(ctx, path); err != nil {
			return nil, err
		}
	}

	plan := &Plan{Files: l.files, Index: make(map[string]*parser.Block)}
	plan.index(r.logger)
	if err := plan.validate(); err != nil {
		return nil, err
	}
	plan.applyOnly(r.logger)
	return plan, nil
}

func (l *loader) load(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	if l.onStack[abs] {
		cycle := append(append([]string(nil), l.stack...), l.display(abs))
		return &DependencyError{Kind: DependencyImportCycle, Path: cycle}
	}
	if l.loaded[abs] {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := parser.ParseFile(abs)
	if err != nil {
		return err
	}
	file.RelPath = l.display(abs)
	l.loaded[abs] = true

	l.onStack[abs] = true
	l.stack = append(l.stack, file.RelPath)
	defer func() {
		delete(l.onStack, abs)
		l.stack = l.stack[:len(l.stack)-1]
	}()

	for _, b := range file.Blocks {
		b.MetaErr = parser.ExtractMeta(ctx, b, l.runner.renderer, l.scope)
		if b.MetaErr != nil {
			l.runner.logger.Debug("invalid front matter",
				zap.String("block", b.Location()),
				zap.Error(b.MetaErr),
			)
		}

		for _, imp := range b.Meta.Import {
			target := imp
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(abs), target)
			}
			file.Imports = append(file.Imports, target)
			if err := l.load(ctx, target); err != nil {
				return err
			}
		}
	}

	l.files = append(l.files, file)
	return nil
}

func (l *loader) display(abs string) string {
	base := l.runner.config.WorkDir
	if base == "" {
		return abs
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return abs
	}
	return rel
}

// index maps ids to blocks. The first declaration of an id wins.
func (p *Plan) index(logger *zap.Logger) {
	for _, b := range p.Blocks() {
		id := b.Meta.ID
		if id == "" {
			continue
		}
		if first, ok := p.Index[id]; ok {
			warning := fmt.Sprintf("duplicate block id %q at %s, using %s", id, b.Location(), first.Location())
			p.Warnings = append(p.Warnings, warning)
			logger.Warn("duplicate block id",
				zap.String("id", id),
				zap.String("block", b.Location()),
				zap.String("first", first.Location()),
			)
			continue
		}
		p.Index[id] = b
	}
}

// validate rejects missing needs targets and needs cycles before any
// request is sent. Edges from ignored blocks are skipped since ignored
// blocks never resolve their dependencies.
func (p *Plan) validate() error {
	blocks := p.Blocks()
	for _, b := range blocks {
		if b.Meta.Ignore {
			continue
		}
		for _, id := range b.Meta.Needs {
			if p.Index[id] == nil {
				return &DependencyError{Kind: DependencyMissing, From: b, ID: id}
			}
		}
	}

	const (
		visiting = 1
		visited  = 2
	)
	marks := make(map[*parser.Block]int)

	var visit func(b *parser.Block) error
	visit = func(b *parser.Block) error {
		marks[b] = visiting
		if !b.Meta.Ignore {
			for _, id := range b.Meta.Needs {
				target := p.Index[id]
				switch marks[target] {
				case visiting:
					return &DependencyError{Kind: DependencyCycle, From: b, To: target}
				case 0:
					if err := visit(target); err != nil {
						return err
					}
				}
			}
		}
		marks[b] = visited
		return nil
	}

	for _, b := range blocks {
		if marks[b] == 0 {
			if err := visit(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyOnly enables only mode when any block sets only. Only blocks and
// everything they need stay runnable; the rest are ignored.
func (p *Plan) applyOnly(logger *zap.Logger) {
	p.allowed = make(map[*parser.Block]bool)

	var allow func(b *parser.Block)
	allow = func(b *parser.Block) {
		if p.allowed[b] {
			return
		}
		p.allowed[b] = true
		for _, id := range b.Meta.Needs {
			if target := p.Index[id]; target != nil {
				allow(target)
			}
		}
	}

	count := 0
	for _, b := range p.Blocks() {
		if b.Meta.Only && !b.Meta.Ignore {
			count++
			allow(b)
		}
	}
	if count == 0 {
		return
	}

	p.OnlyMode = true
	warning := fmt.Sprintf("only mode: %d block(s) marked only, all other blocks are ignored", count)
	p.Warnings = append(p.Warnings, warning)
	logger.Warn("only mode enabled", zap.Int("only", count))
}
