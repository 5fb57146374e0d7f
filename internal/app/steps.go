package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"envswitch/internal/cache"
	"envswitch/internal/config"
	"envswitch/internal/envfile"
	"envswitch/internal/gitops"
	"envswitch/internal/profile"
	"envswitch/internal/render"
	"envswitch/internal/scaffold"
	"envswitch/internal/util/atomic"
	"envswitch/internal/util/hashx"
)

const (
	StepEnv         = "env"
	StepServer      = "server"
	StepMiddlewares = "middlewares"
	StepBuildConfig = "build-config"
	StepNginx       = "nginx"
	StepGit         = "git"
	StepCaches      = "caches"
	StepScaffold    = "scaffold"
	StepServices    = "services"
)

type Policy string

const (
	Abort    Policy = config.OnErrorAbort
	Continue Policy = config.OnErrorContinue
)

var defaultPolicies = map[string]Policy{
	StepEnv:         Abort,
	StepServer:      Abort,
	StepMiddlewares: Abort,
	StepBuildConfig: Continue,
	StepNginx:       Abort,
	StepGit:         Continue,
	StepCaches:      Continue,
	StepScaffold:    Abort,
	StepServices:    Abort,
}

// runCtx is what a step sees of the current run.
type runCtx struct {
	mode    profile.Mode
	profile profile.Profile
	// warn records a failure that must not stop the step.
	warn func(err error)
}

type outcome struct {
	message string
	digest  string
}

type step struct {
	name    string
	policy  Policy
	enabled bool
	plan    string
	run     func(ctx context.Context, rc *runCtx) (outcome, error)
}

func (a *App) buildSteps() ([]step, error) {
	cfg := a.cfg
	p := a.paths

	steps := []step{
		{name: StepEnv, enabled: true, plan: "update " + p.EnvFile, run: a.stepEnv},
		{name: StepServer, enabled: true, plan: cfg.Server.Strategy + " " + p.ServerFile, run: a.stepServer},
		{name: StepMiddlewares, enabled: cfg.Middlewares.Enabled, plan: "write " + p.MiddlewaresFile, run: a.stepMiddlewares},
		{name: StepBuildConfig, enabled: cfg.BuildConfig.Remove, plan: "remove " + p.BuildConfigFile, run: a.stepBuildConfig},
		{name: StepNginx, enabled: true, plan: "publish " + p.NginxSource + " -> " + p.NginxDest, run: a.stepNginx},
		{name: StepGit, enabled: cfg.Git.Enabled, plan: "commit and push to " + cfg.Git.Remote + "/" + cfg.Git.Branch, run: a.stepGit},
		{name: StepCaches, enabled: len(p.CacheDirs) > 0, plan: "rm -rf " + strings.Join(cache.Plan(p.CacheDirs, p.CacheExclude), " "), run: a.stepCaches},
		{name: StepScaffold, enabled: len(p.Scaffold) > 0, plan: fmt.Sprintf("ensure %d files", len(p.Scaffold)), run: a.stepScaffold},
		{name: StepServices, enabled: true, plan: "stop " + strings.Join(cfg.Services.Stop, ","), run: a.stepServices},
	}

	for name := range cfg.Steps {
		if _, ok := defaultPolicies[name]; !ok {
			return nil, fmt.Errorf("steps.%s: unknown step", name)
		}
	}
	for i := range steps {
		steps[i].policy = defaultPolicies[steps[i].name]
		if o := cfg.Steps[steps[i].name].OnError; o != "" {
			steps[i].policy = Policy(o)
		}
	}
	return steps, nil
}

// writeIfChanged replaces path with data unless it already holds it.
func writeIfChanged(path string, data []byte) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err := atomic.ReplaceFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

func changedMessage(changed bool, path string) string {
	if changed {
		return "updated " + path
	}
	return "unchanged " + path
}

func (a *App) stepEnv(_ context.Context, rc *runCtx) (outcome, error) {
	content, changed, err := envfile.UpdateFile(a.paths.EnvFile, rc.profile.Env)
	if err != nil {
		return outcome{}, err
	}
	a.log.Info("updated env file", zap.String("file", a.paths.EnvFile), zap.Strings("keys", rc.profile.Env.Keys()), zap.Bool("changed", changed))
	return outcome{message: changedMessage(changed, a.paths.EnvFile), digest: hashx.Digest(content)}, nil
}

func (a *App) stepServer(_ context.Context, rc *runCtx) (outcome, error) {
	var (
		data []byte
		err  error
	)
	switch a.cfg.Server.Strategy {
	case config.ServerSubstitute:
		old, rerr := os.ReadFile(a.paths.ServerFile)
		if rerr != nil {
			return outcome{}, fmt.Errorf("read server config: %w", rerr)
		}
		data, err = render.SubstituteServerURL(old, rc.profile.URL())
	default:
		data, err = render.Server(render.ServerData{
			Host:            a.cfg.Server.Host,
			Port:            a.cfg.Server.Port,
			URL:             rc.profile.URL(),
			AdminPath:       a.cfg.Server.AdminPath,
			BootstrapScript: a.cfg.Server.BootstrapScript,
		})
	}
	if err != nil {
		return outcome{}, fmt.Errorf("render server config: %w", err)
	}

	changed, err := writeIfChanged(a.paths.ServerFile, data)
	if err != nil {
		return outcome{}, fmt.Errorf("write server config: %w", err)
	}
	a.log.Info("updated server config", zap.String("file", a.paths.ServerFile), zap.String("url", rc.profile.URL()), zap.Bool("proxy", true))
	return outcome{message: changedMessage(changed, a.paths.ServerFile), digest: hashx.Digest(data)}, nil
}

func (a *App) stepMiddlewares(_ context.Context, rc *runCtx) (outcome, error) {
	md := render.MiddlewareData{
		CORSOrigins:  rc.profile.CORSOrigins,
		Headers:      a.cfg.Middlewares.Headers,
		Methods:      a.cfg.Middlewares.Methods,
		ErrorHandler: a.cfg.Middlewares.ErrorHandler,
	}
	if a.cfg.Middlewares.SecurityPolicy {
		md.Directives = render.DefaultDirectives(rc.profile.CSP.ImgSrc, rc.profile.CSP.MediaSrc, rc.profile.CSP.ScriptSrc)
	}
	data, err := render.Middlewares(md)
	if err != nil {
		return outcome{}, fmt.Errorf("render middlewares: %w", err)
	}

	changed, err := writeIfChanged(a.paths.MiddlewaresFile, data)
	if err != nil {
		return outcome{}, fmt.Errorf("write middlewares: %w", err)
	}
	a.log.Info("updated middlewares", zap.String("file", a.paths.MiddlewaresFile), zap.Strings("origins", rc.profile.CORSOrigins))
	return outcome{message: changedMessage(changed, a.paths.MiddlewaresFile), digest: hashx.Digest(data)}, nil
}

func (a *App) stepBuildConfig(_ context.Context, _ *runCtx) (outcome, error) {
	err := os.Remove(a.paths.BuildConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		a.log.Info("build config absent, skipping removal", zap.String("file", a.paths.BuildConfigFile))
		return outcome{message: "absent " + a.paths.BuildConfigFile}, nil
	}
	if err != nil {
		return outcome{}, fmt.Errorf("remove %s: %w", a.paths.BuildConfigFile, err)
	}
	a.log.Info("removed build config", zap.String("file", a.paths.BuildConfigFile))
	return outcome{message: "removed " + a.paths.BuildConfigFile}, nil
}

func (a *App) stepNginx(ctx context.Context, _ *runCtx) (outcome, error) {
	digest, err := a.ng.Publish(ctx)
	if err != nil {
		return outcome{}, err
	}
	return outcome{message: "published " + a.paths.NginxDest, digest: digest}, nil
}

func (a *App) stepGit(ctx context.Context, rc *runCtx) (outcome, error) {
	err := a.repo.CommitAndPush(ctx, rc.mode)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		a.log.Info("no changes to commit")
		return outcome{message: "nothing to commit"}, nil
	}
	if err != nil {
		return outcome{}, err
	}
	return outcome{message: gitops.CommitMessage(rc.mode)}, nil
}

func (a *App) stepCaches(ctx context.Context, _ *runCtx) (outcome, error) {
	cleared, err := cache.Clear(ctx, a.run, a.log.Named("cache"), a.paths.CacheDirs, a.paths.CacheExclude)
	msg := "cleared " + strings.Join(cleared, " ")
	if err != nil {
		return outcome{message: msg}, err
	}
	return outcome{message: msg}, nil
}

func (a *App) stepScaffold(_ context.Context, _ *runCtx) (outcome, error) {
	written, err := scaffold.Ensure(a.log.Named("scaffold"), a.paths.Scaffold)
	if err != nil {
		return outcome{}, err
	}
	return outcome{message: fmt.Sprintf("created %d files", len(written))}, nil
}

func (a *App) stepServices(ctx context.Context, rc *runCtx) (outcome, error) {
	a.svc.StopAll(ctx, a.cfg.Services.Stop)

	if a.cfg.Services.FreePort {
		if _, err := a.svc.FreePort(ctx); err != nil {
			rc.warn(fmt.Errorf("free port %d: %w", a.cfg.Services.Port, err))
		}
	}

	a.svc.Settle()

	if rc.profile.RequireBuild {
		if _, err := a.builder.Ensure(ctx); err != nil {
			return outcome{}, err
		}
	}

	for _, s := range rc.profile.Start {
		if err := a.svc.Start(ctx, s); err != nil {
			return outcome{}, err
		}
	}
	return outcome{message: "started " + strings.Join(rc.profile.Start, ",")}, nil
}
