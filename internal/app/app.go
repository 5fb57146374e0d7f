package app

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"envswitch/internal/config"
	"envswitch/internal/gitops"
	"envswitch/internal/nginx"
	"envswitch/internal/services"
	"envswitch/internal/store"
	"envswitch/internal/util/execx"
)

// App wires the switch pipeline used by the CLI.
// Keep it transport-agnostic (no flag parsing, no printing).
type App struct {
	cfg   *config.Config
	paths config.Paths
	log   *zap.Logger
	run   execx.Runner
	st    store.RunStore
	now   func() time.Time

	ng      *nginx.Manager
	repo    *gitops.Repository
	svc     *services.Manager
	builder *services.Builder
	steps   []step

	applyMu sync.Mutex
}

type Option func(*App)

// WithStore records every run in st.
func WithStore(st store.RunStore) Option {
	return func(a *App) { a.st = st }
}

// WithSleeper replaces the pause between stopping and starting services.
func WithSleeper(s services.Sleeper) Option {
	return func(a *App) { a.svc = services.NewManager(a.cfg.Exec.Sudo, a.cfg.Services.Port, a.cfg.Services.SettleDelay, a.run, s, a.log.Named("services")) }
}

// WithClock sets the time source for run records.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(cfg *config.Config, log *zap.Logger, run execx.Runner, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg is nil")
	}
	if run == nil {
		return nil, fmt.Errorf("runner is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	paths := cfg.ResolvePaths()
	a := &App{
		cfg:   cfg,
		paths: paths,
		log:   log,
		run:   run,
		now:   time.Now,
	}

	a.ng = nginx.NewManager(paths.NginxSource, paths.NginxDest, cfg.Nginx.Bin, cfg.Nginx.Service, cfg.Exec.Sudo, run, log.Named("nginx"))

	untrack := ""
	if cfg.BuildConfig.Remove {
		untrack = paths.BuildConfigFile
	}
	a.repo = gitops.NewRepository(paths.GitDir, cfg.Git.Remote, cfg.Git.Branch, cfg.Git.Files, untrack, run, log.Named("git"))

	a.svc = services.NewManager(cfg.Exec.Sudo, cfg.Services.Port, cfg.Services.SettleDelay, run, nil, log.Named("services"))
	a.builder = services.NewBuilder(paths.Root, paths.BuildDir, cfg.Build.Command, cfg.Build.MaxOldSpaceMB, run, log.Named("build"))

	for _, o := range opts {
		o(a)
	}

	steps, err := a.buildSteps()
	if err != nil {
		return nil, err
	}
	a.steps = steps
	return a, nil
}

// StepNames lists the pipeline in execution order.
func (a *App) StepNames() []string {
	out := make([]string, 0, len(a.steps))
	for _, s := range a.steps {
		out = append(out, s.name)
	}
	return out
}
