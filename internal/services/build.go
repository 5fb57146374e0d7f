package services

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"envswitch/internal/util/execx"
)

// Builder produces the production admin build when it is missing.
type Builder struct {
	AppDir        string
	BuildDir      string
	Command       []string
	MaxOldSpaceMB int

	run execx.Runner
	log *zap.Logger
}

func NewBuilder(appDir, buildDir string, command []string, maxOldSpaceMB int, run execx.Runner, log *zap.Logger) *Builder {
	return &Builder{
		AppDir:        appDir,
		BuildDir:      buildDir,
		Command:       command,
		MaxOldSpaceMB: maxOldSpaceMB,
		run:           run,
		log:           log,
	}
}

func (b *Builder) Built() bool {
	fi, err := os.Stat(b.BuildDir)
	return err == nil && fi.IsDir()
}

func (b *Builder) command() execx.Command {
	c := execx.Command{Name: b.Command[0], Args: b.Command[1:], Dir: b.AppDir}
	if b.MaxOldSpaceMB > 0 {
		c.Env = []string{fmt.Sprintf("NODE_OPTIONS=--max-old-space-size=%d", b.MaxOldSpaceMB)}
	}
	return c
}

// Ensure runs the build command when BuildDir does not exist. It reports
// whether a build ran.
func (b *Builder) Ensure(ctx context.Context) (bool, error) {
	if b.Built() {
		b.log.Debug("admin panel already built", zap.String("dir", b.BuildDir))
		return false, nil
	}
	if len(b.Command) == 0 {
		return false, fmt.Errorf("build dir %s missing and no build command configured", b.BuildDir)
	}

	c := b.command()
	b.log.Info("admin panel not built, building now", zap.String("command", c.String()), zap.String("dir", b.AppDir))
	if _, err := b.run.Run(ctx, c); err != nil {
		return false, fmt.Errorf("build admin panel: %w", err)
	}
	b.log.Info("admin panel built")
	return true, nil
}
