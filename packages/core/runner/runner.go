package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
	"github.com/abdul-hamid-achik/hitrun/packages/metrics"
	"github.com/abdul-hamid-achik/hitrun/packages/template"
)

// Transport executes a request. *http.Client implements it.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type Runner struct {
	client   Transport
	renderer template.Renderer
	config   *Config
	logger   *zap.Logger
	limiter  *rate.Limiter
	latency  *metrics.Recorder
}

type Config struct {
	// FailFast stops the run at the first failed block.
	FailFast bool
	// Defaults is the global default meta every block is merged over.
	Defaults meta.Meta
	// WorkDir is used to compute file paths for display.
	WorkDir string
	// Shell runs command meta values; defaults to "sh".
	Shell string
}

type Option func(*Runner)

func WithClient(client Transport) Option {
	return func(r *Runner) {
		r.client = client
	}
}

func WithRenderer(renderer template.Renderer) Option {
	return func(r *Runner) {
		r.renderer = renderer
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRateLimit caps requests per second across the run.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func New(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Shell == "" {
		cfg.Shell = "sh"
	}

	r := &Runner{
		config:  cfg,
		logger:  zap.NewNop(),
		latency: metrics.NewRecorder(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		r.client = http.NewClient()
	}
	if r.renderer == nil {
		r.renderer = template.New()
	}
	return r
}

// Run loads and executes the given files. The returned error is reserved
// for problems that stop the whole run: unreadable files, broken needs or
// import graphs and cancellation. Block failures are reported in Result.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()

	plan, err := r.Load(ctx, paths)
	if err != nil {
		return nil, err
	}

	result, err := r.Execute(ctx, plan)
	result.Duration = time.Since(start)
	return result, err
}

// Execute runs a loaded plan.
func (r *Runner) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	r.latency.Reset()
	s := newScheduler(r, plan)

	result := s.result
	err := s.run(ctx)
	if errors.Is(err, errAbort) {
		result.Aborted = true
		err = nil
	}
	result.Latency = r.latency.Summary()

	r.logger.Info("run finished",
		zap.Int("passed", result.Passed),
		zap.Int("failed", result.Failed),
		zap.Int("ignored", result.Ignored),
		zap.Int("empty", result.Empty),
		zap.Bool("aborted", result.Aborted),
	)
	return result, err
}
