package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abdul-hamid-achik/hitrun/packages/core/config"
	"github.com/abdul-hamid-achik/hitrun/packages/core/env"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
	"github.com/abdul-hamid-achik/hitrun/packages/history"
	"github.com/abdul-hamid-achik/hitrun/packages/http"
	"github.com/abdul-hamid-achik/hitrun/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run [patterns...]",
	Short: "Run .http documents",
	Long: `Run the blocks of .http documents in dependency order.

Patterns are files, directories or globs; ** matches any number of
directories. The default pattern is **/*.http.

Examples:
  hitrun run
  hitrun run api/users.http
  hitrun run "tests/**/*.http" --fail-fast
  hitrun run --env-file .env --env-file .env.local --output junit --output-file report.xml
  hitrun run --watch --display verbose`,
	ValidArgsFunction: completeHTTPFiles,
	RunE:              runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	watchFlag             bool
	timeoutFlag           string
	failFastFlag          bool
	displayFlag           string
	envFileFlags          []string
	outputFlag            string
	outputFileFlag        string
	noColorFlag           bool
	historyFlag           string
	rateFlag              float64
	insecureFlag          bool
	proxyFlag             string
	noFollowRedirectsFlag bool
)

func init() {
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITRUN_TIMEOUT", ""), "Default request timeout, e.g. 30s or 500 (ms) (env: HITRUN_TIMEOUT)")
	runCmd.Flags().BoolVar(&failFastFlag, "fail-fast", getEnvBool("HITRUN_FAIL_FAST", false), "Stop at the first failed block (env: HITRUN_FAIL_FAST)")
	runCmd.Flags().BoolVar(&failFastFlag, "bail", getEnvBool("HITRUN_FAIL_FAST", false), "Alias for --fail-fast")
	runCmd.Flags().StringVar(&displayFlag, "display", getEnvString("HITRUN_DISPLAY", ""), "Console display: minimal, standard, verbose (env: HITRUN_DISPLAY)")
	runCmd.Flags().StringArrayVar(&envFileFlags, "env-file", nil, "Load variables from a .env file (repeatable)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITRUN_OUTPUT", ""), "Output format: console, json, junit, tap (env: HITRUN_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITRUN_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HITRUN_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITRUN_NO_COLOR", false), "Disable colored output (env: HITRUN_NO_COLOR)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("HITRUN_HISTORY", ""), "Record runs in this SQLite database (env: HITRUN_HISTORY)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("HITRUN_RATE", 0), "Maximum requests per second, 0 for unlimited (env: HITRUN_RATE)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITRUN_INSECURE", false), "Disable TLS certificate validation (env: HITRUN_INSECURE)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITRUN_PROXY", ""), "Proxy URL for HTTP requests (env: HITRUN_PROXY)")
	runCmd.Flags().BoolVar(&noFollowRedirectsFlag, "no-follow-redirects", getEnvBool("HITRUN_NO_FOLLOW_REDIRECTS", false), "Do not follow redirects (env: HITRUN_NO_FOLLOW_REDIRECTS)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// parseTimeout accepts a Go duration or a number of milliseconds.
func parseTimeout(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.Atoi(s); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid timeout %q: must not be negative", s)
		}
		return ms, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout value %q (use a duration like 30s or milliseconds like 500)", s)
	}
	return int(d.Milliseconds()), nil
}

// flagConfig turns the run flags into a config overlay. Only flags set on
// the command line or through their environment variable override the
// config file.
func flagConfig(cmd *cobra.Command) (*config.Config, error) {
	set := func(name, envKey string) bool {
		return cmd.Flags().Changed(name) || (envKey != "" && os.Getenv(envKey) != "")
	}

	overlay := &config.Config{
		Display:    displayFlag,
		Output:     outputFlag,
		OutputFile: outputFileFlag,
		History:    historyFlag,
		Rate:       rateFlag,
		Proxy:      proxyFlag,
		EnvFiles:   envFileFlags,
	}

	timeout, err := parseTimeout(timeoutFlag)
	if err != nil {
		return nil, err
	}
	overlay.Timeout = timeout

	if set("fail-fast", "HITRUN_FAIL_FAST") || set("bail", "") {
		overlay.FailFast = config.BoolPtr(failFastFlag)
	}
	if set("no-color", "HITRUN_NO_COLOR") {
		overlay.NoColor = config.BoolPtr(noColorFlag)
	}
	if set("insecure", "HITRUN_INSECURE") {
		overlay.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if set("no-follow-redirects", "HITRUN_NO_FOLLOW_REDIRECTS") {
		overlay.FollowRedirects = config.BoolPtr(!noFollowRedirectsFlag)
	}
	return overlay, nil
}

// loadSettings merges defaults, the config file and the flags, then folds
// env files and HITRUN_ variables into the template vars.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	overlay, err := flagConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg := fileConfig.Merge(overlay)

	vars, err := env.Load(cfg.EnvFiles)
	if err != nil {
		return nil, err
	}
	cfg.Vars = env.MergeVariables(cfg.Vars, vars)
	return cfg, nil
}

func newRunner(cfg *config.Config) (*runner.Runner, *http.Client, error) {
	defaults, err := cfg.ToMeta()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithMaxRedirects(cfg.MaxRedirects),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithDefaultHeaders(cfg.Headers),
	}
	if cfg.Proxy != "" {
		proxy, err := http.ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, nil, err
		}
		clientOpts = append(clientOpts, http.WithProxy(proxy))
	}
	client := http.NewClient(clientOpts...)

	r := runner.New(&runner.Config{
		FailFast: cfg.GetFailFast(),
		Defaults: defaults,
		WorkDir:  wd,
	},
		runner.WithClient(client),
		runner.WithLogger(logger),
		runner.WithRateLimit(cfg.Rate),
	)
	return r, client, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	display, err := output.ParseDisplay(cfg.Display)
	if err != nil {
		return err
	}
	if _, err := output.New(cfg.Output, io.Discard, display, true); err != nil {
		return err
	}

	r, client, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	session := &runSession{
		cmd:     cmd,
		cfg:     cfg,
		display: display,
		runner:  r,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var signalCode atomic.Int32
	exitCode := ExitSuccess

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			code := int32(ExitInterrupted)
			if sig == syscall.SIGTERM {
				code = ExitTerminated
			}
			signalCode.Store(code)
			logger.Warn("interrupted, canceling run", zap.Stringer("signal", sig))
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		var err error
		if watchFlag {
			exitCode, err = session.watch(gctx, args)
		} else {
			exitCode, err = session.runOnce(gctx, args)
		}
		return err
	})

	err = g.Wait()
	if code := signalCode.Load(); code != 0 {
		return &exitError{code: int(code)}
	}
	if err != nil {
		return err
	}
	if exitCode != ExitSuccess {
		return &exitError{code: exitCode}
	}
	return nil
}

// runSession runs the collected files once per call; watch mode calls it
// again after every change.
type runSession struct {
	cmd     *cobra.Command
	cfg     *config.Config
	display output.Display
	runner  *runner.Runner
}

func (s *runSession) runOnce(ctx context.Context, args []string) (int, error) {
	files, err := collectFiles(args)
	if err != nil {
		return ExitNoBlocks, err
	}
	if len(files) == 0 {
		return ExitNoBlocks, fmt.Errorf("no .http files found")
	}

	var w io.Writer = s.cmd.OutOrStdout()
	if s.cfg.OutputFile != "" {
		f, err := os.Create(s.cfg.OutputFile)
		if err != nil {
			return ExitNoBlocks, fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	formatter, err := output.New(s.cfg.Output, w, s.display, s.cfg.GetNoColor())
	if err != nil {
		return ExitNoBlocks, err
	}
	formatter.FormatHeader(version)

	startedAt := time.Now()
	result, err := s.runner.Run(ctx, files)
	if err != nil {
		if ctx.Err() != nil {
			return ExitNoBlocks, nil
		}
		formatter.FormatError(err)
		if flushable, ok := formatter.(output.Flushable); ok {
			_ = flushable.Flush(time.Since(startedAt))
		}
		return ExitNoBlocks, nil
	}

	formatter.FormatResult(result)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return ExitNoBlocks, fmt.Errorf("error writing output: %w", err)
		}
	}

	if s.cfg.History != "" {
		if err := s.record(ctx, result, startedAt); err != nil {
			logger.Warn("failed to record run history", zap.Error(err))
		}
	}

	return result.ExitCode(), nil
}

func (s *runSession) record(ctx context.Context, result *runner.Result, startedAt time.Time) error {
	store, err := history.Open(ctx, s.cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Save(ctx, result, startedAt)
	if err != nil {
		return err
	}
	logger.Info("run recorded", zap.String("id", run.ID), zap.String("history", s.cfg.History))
	return nil
}
