package nginx

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"envswitch/internal/util/execx"
	"envswitch/internal/util/hashx"
)

// Manager republishes one site file into nginx. The destination is system
// owned, so every command goes through the sudo prefix.
type Manager struct {
	Source  string
	Dest    string
	Bin     string
	Service string
	Sudo    string

	run execx.Runner
	log *zap.Logger
}

func NewManager(source, dest, bin, service, sudo string, run execx.Runner, log *zap.Logger) *Manager {
	return &Manager{
		Source:  source,
		Dest:    dest,
		Bin:     bin,
		Service: service,
		Sudo:    sudo,
		run:     run,
		log:     log,
	}
}

func (m *Manager) exec(ctx context.Context, c execx.Command) (execx.Result, error) {
	return m.run.Run(ctx, execx.Sudo(m.Sudo, c))
}

func (m *Manager) Copy(ctx context.Context) error {
	if _, err := m.exec(ctx, execx.Cmd("cp", m.Source, m.Dest)); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", m.Source, m.Dest, err)
	}
	m.log.Info("copied nginx site", zap.String("src", m.Source), zap.String("dest", m.Dest))
	return nil
}

func (m *Manager) TestConfig(ctx context.Context) error {
	res, err := m.exec(ctx, execx.Cmd(m.Bin, "-t"))
	// nginx prints most diagnostics on stderr even on success
	if out := res.Output(); out != "" {
		m.log.Debug("nginx -t output", zap.String("output", out))
	}
	if err != nil {
		return fmt.Errorf("nginx config test: %w", err)
	}
	m.log.Info("nginx configuration test passed")
	return nil
}

func (m *Manager) Reload(ctx context.Context) error {
	if _, err := m.exec(ctx, execx.Cmd("systemctl", "reload", m.Service)); err != nil {
		return fmt.Errorf("reload %s: %w", m.Service, err)
	}
	m.log.Info("reloaded nginx", zap.String("service", m.Service))
	return nil
}

// Publish copies, tests and reloads. It stops at the first failure and
// returns the digest of the published source on success.
func (m *Manager) Publish(ctx context.Context) (string, error) {
	data, err := os.ReadFile(m.Source)
	if err != nil {
		return "", fmt.Errorf("read nginx source %s: %w", m.Source, err)
	}
	if err := m.Copy(ctx); err != nil {
		return "", err
	}
	if err := m.TestConfig(ctx); err != nil {
		return "", err
	}
	if err := m.Reload(ctx); err != nil {
		return "", err
	}
	return hashx.Digest(data), nil
}
