package runner

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/hitrun/packages/assertions"
	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
)

// scheduler holds the mutable state of one run.
type scheduler struct {
	r        *Runner
	plan     *Plan
	defaults meta.Meta
	named    map[string]any
	result   *Result
}

func newScheduler(r *Runner, plan *Plan) *scheduler {
	return &scheduler{
		r:        r,
		plan:     plan,
		defaults: r.config.Defaults,
		named:    make(map[string]any),
		result: &Result{
			Files:    plan.Files,
			OnlyMode: plan.OnlyMode,
			Warnings: append([]string(nil), plan.Warnings...),
		},
	}
}

func (s *scheduler) run(ctx context.Context) error {
	for _, file := range s.plan.Files {
		for _, b := range file.Blocks {
			if err := s.runBlock(ctx, b, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// runBlock drives b to a terminal state, running its needs first. The
// returned error stops the run; block failures are recorded on the block.
func (s *scheduler) runBlock(ctx context.Context, b, requester *parser.Block) error {
	switch {
	case b.State().Terminal():
		return nil
	case b.State() == parser.StateResolving:
		return &DependencyError{Kind: DependencyCycle, From: requester, To: b}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := s.defaults.Merge(b.Meta)
	if m.Ignore || s.plan.Excluded(b) {
		return s.finish(b, parser.StateIgnored, nil)
	}

	b.Resolve()
	for _, id := range b.Meta.Needs {
		target := s.plan.Index[id]
		if target == nil {
			return &DependencyError{Kind: DependencyMissing, From: b, ID: id}
		}
		if err := s.runBlock(ctx, target, b); err != nil {
			return err
		}
		if target.State() == parser.StateFailed {
			return s.finish(b, parser.StateFailed, &DependencyError{
				Kind: DependencyFailed,
				From: b,
				To:   target,
				Err:  target.Err,
			})
		}
	}

	if b.MetaErr != nil {
		return s.finish(b, parser.StateFailed, b.MetaErr)
	}

	scope := s.requestScope(m)
	req, err := parser.ParseRequest(ctx, b, m, s.r.renderer, scope)
	if err != nil {
		return s.fail(ctx, b, err)
	}
	if req == nil {
		if b.Index == 0 {
			s.defaults = s.defaults.Merge(b.Meta.Inheritable())
		}
		return s.finish(b, parser.StateEmpty, nil)
	}
	b.Request = req

	dir := filepath.Dir(b.File.Path)
	if m.Command != "" {
		if err := s.r.runCommand(ctx, m.Command, dir); err != nil {
			return s.fail(ctx, b, err)
		}
	}

	if s.r.limiter != nil {
		if err := s.r.limiter.Wait(ctx); err != nil {
			return s.fail(ctx, b, err)
		}
	}

	resp, err := s.send(ctx, b, req, m.Timeout)
	if err != nil {
		return s.fail(ctx, b, err)
	}

	body := decodedBody(resp)
	expected, err := parser.ParseResponse(ctx, b, s.r.renderer, responseScope(scope, req, resp, body), assertions.Helpers())
	if err != nil {
		return s.fail(ctx, b, err)
	}
	if expected != nil {
		b.ExpectedResponse = expected
		if err := assertions.Assert(expected, resp); err != nil {
			return s.finish(b, parser.StateFailed, err)
		}
	}
	if m.Schema != "" {
		if err := assertions.ValidateSchema(m.Schema, dir, body); err != nil {
			return s.finish(b, parser.StateFailed, err)
		}
	}

	return s.finish(b, parser.StatePassed, nil)
}

// send executes req under the block timeout and reads the whole body
// before the timeout context is released.
func (s *scheduler) send(ctx context.Context, b *parser.Block, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		b.Duration = time.Since(start)
	}()

	s.r.logger.Debug("sending request",
		zap.String("block", b.Location()),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
	)

	resp, err := s.r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	b.Response = resp

	if _, err := resp.RawBody(); err != nil {
		return nil, err
	}
	return resp, nil
}

// fail records err on b unless the run itself was canceled.
func (s *scheduler) fail(ctx context.Context, b *parser.Block, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return s.finish(b, parser.StateFailed, err)
}

func (s *scheduler) finish(b *parser.Block, state parser.State, err error) error {
	b.Finish(state, err)
	s.result.count(state)

	if sent(b, err) {
		s.r.latency.Record(b.Duration, state == parser.StateFailed)
	}
	// a duplicate id never shadows the block the index resolved it to
	if b.Meta.ID != "" && s.plan.Index[b.Meta.ID] == b {
		s.named[b.Meta.ID] = namedValue(b)
	}
	if b.Response != nil {
		if releaseErr := b.Response.Release(); releaseErr != nil {
			s.r.logger.Debug("releasing response body", zap.String("block", b.Location()), zap.Error(releaseErr))
		}
	}

	fields := []zap.Field{
		zap.String("block", b.Location()),
		zap.String("description", b.Description()),
		zap.Stringer("state", state),
		zap.Duration("duration", b.Duration),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.r.logger.Info("block finished", fields...)

	if state == parser.StateFailed && s.r.config.FailFast {
		return errAbort
	}
	return nil
}

// sent reports whether a request left the runner for b.
func sent(b *parser.Block, err error) bool {
	if b.Response != nil {
		return true
	}
	var transportErr *http.TransportError
	return errors.As(err, &transportErr)
}
