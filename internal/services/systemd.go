package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"envswitch/internal/util/execx"
)

// Sleeper pauses between stopping and starting services.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// RealSleeper returns a Sleeper backed by time.Sleep.
func RealSleeper() Sleeper { return realSleeper{} }

// Manager drives systemd units and the processes holding the app port.
type Manager struct {
	Sudo  string
	Port  int
	Delay time.Duration

	run   execx.Runner
	log   *zap.Logger
	sleep Sleeper
}

func NewManager(sudo string, port int, delay time.Duration, run execx.Runner, sleep Sleeper, log *zap.Logger) *Manager {
	if sleep == nil {
		sleep = RealSleeper()
	}
	return &Manager{Sudo: sudo, Port: port, Delay: delay, run: run, log: log, sleep: sleep}
}

func (m *Manager) systemctl(ctx context.Context, action, service string) error {
	_, err := m.run.Run(ctx, execx.Sudo(m.Sudo, execx.Cmd("systemctl", action, service)))
	if err != nil {
		return fmt.Errorf("systemctl %s %s failed: %w", action, service, err)
	}
	return nil
}

// StopAll stops every service in order. A failed stop means the unit was not
// running and is only logged. It returns the services that were stopped.
func (m *Manager) StopAll(ctx context.Context, services []string) []string {
	var stopped []string
	for _, s := range services {
		if err := m.systemctl(ctx, "stop", s); err != nil {
			m.log.Info("service was not running", zap.String("service", s), zap.Error(err))
			continue
		}
		m.log.Info("stopped service", zap.String("service", s))
		stopped = append(stopped, s)
	}
	return stopped
}

func (m *Manager) Start(ctx context.Context, service string) error {
	if err := m.systemctl(ctx, "start", service); err != nil {
		return err
	}
	m.log.Info("started service", zap.String("service", service))
	return nil
}

// PortPIDs lists processes bound to the app port. lsof exits non-zero when
// nothing matches, so its error is not a failure.
func (m *Manager) PortPIDs(ctx context.Context) []int {
	res, _ := m.run.Run(ctx, execx.Cmd("lsof", "-i", ":"+strconv.Itoa(m.Port), "-t"))
	var pids []int
	seen := map[int]bool{}
	for _, f := range strings.Fields(res.Stdout) {
		pid, err := strconv.Atoi(f)
		if err != nil || pid <= 0 || seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}
	return pids
}

// FreePort kills whatever still holds the app port.
func (m *Manager) FreePort(ctx context.Context) ([]int, error) {
	pids := m.PortPIDs(ctx)
	if len(pids) == 0 {
		m.log.Info("no lingering processes on port", zap.Int("port", m.Port))
		return nil, nil
	}

	var (
		killed []int
		errs   error
	)
	for _, pid := range pids {
		_, err := m.run.Run(ctx, execx.Sudo(m.Sudo, execx.Cmd("kill", "-9", strconv.Itoa(pid))))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("kill %d: %w", pid, err))
			continue
		}
		m.log.Info("killed lingering process", zap.Int("port", m.Port), zap.Int("pid", pid))
		killed = append(killed, pid)
	}
	return killed, errs
}

// Settle waits for the port to be released.
func (m *Manager) Settle() {
	if m.Delay <= 0 {
		return
	}
	m.log.Debug("waiting for services to settle", zap.Duration("delay", m.Delay))
	m.sleep.Sleep(m.Delay)
}
