package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"envswitch/internal/util/execx/execxtest"
)

type fakeSleeper struct{ slept []time.Duration }

func (f *fakeSleeper) Sleep(d time.Duration) { f.slept = append(f.slept, d) }

func TestStopAllLogsNotRunning(t *testing.T) {
	rec := execxtest.New().Fail("sudo systemctl stop strapi-prod", 5, "")
	m := NewManager("sudo", 1337, 0, rec, nil, zaptest.NewLogger(t))

	stopped := m.StopAll(context.Background(), []string{"strapi-dev", "strapi-prod", "rolleiflex-frontend"})

	assert.Equal(t, []string{"strapi-dev", "rolleiflex-frontend"}, stopped)
	assert.Equal(t, []string{
		"sudo systemctl stop strapi-dev",
		"sudo systemctl stop strapi-prod",
		"sudo systemctl stop rolleiflex-frontend",
	}, rec.Lines())
}

func TestFreePort(t *testing.T) {
	rec := execxtest.New().
		Stdout("lsof -i :1337 -t", "101\n202\n101\n").
		Fail("sudo kill -9 202", 1, "")
	m := NewManager("sudo", 1337, 0, rec, nil, zaptest.NewLogger(t))

	killed, err := m.FreePort(context.Background())
	require.Error(t, err)
	assert.Equal(t, []int{101}, killed)
	assert.Equal(t, []string{"lsof -i :1337 -t", "sudo kill -9 101", "sudo kill -9 202"}, rec.Lines())
}

func TestFreePortNothingListening(t *testing.T) {
	rec := execxtest.New().Fail("lsof -i :1337 -t", 1, "")
	m := NewManager("sudo", 1337, 0, rec, nil, zaptest.NewLogger(t))

	killed, err := m.FreePort(context.Background())
	require.NoError(t, err)
	assert.Empty(t, killed)
	assert.Len(t, rec.Lines(), 1)
}

func TestSettle(t *testing.T) {
	s := &fakeSleeper{}
	NewManager("", 1337, 2*time.Second, execxtest.New(), s, zaptest.NewLogger(t)).Settle()
	assert.Equal(t, []time.Duration{2 * time.Second}, s.slept)

	s = &fakeSleeper{}
	NewManager("", 1337, 0, execxtest.New(), s, zaptest.NewLogger(t)).Settle()
	assert.Empty(t, s.slept)
}

func TestStart(t *testing.T) {
	rec := execxtest.New().Fail("sudo systemctl start strapi-prod", 1, "")
	m := NewManager("sudo", 1337, 0, rec, nil, zaptest.NewLogger(t))

	require.NoError(t, m.Start(context.Background(), "strapi-dev"))
	require.Error(t, m.Start(context.Background(), "strapi-prod"))
}

func TestBuilderRunsWhenMissing(t *testing.T) {
	app := t.TempDir()
	rec := execxtest.New()
	b := NewBuilder(app, filepath.Join(app, "build"), []string{"npm", "run", "build"}, 2048, rec, zaptest.NewLogger(t))

	built, err := b.Ensure(context.Background())
	require.NoError(t, err)
	assert.True(t, built)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "npm run build", execxtest.Line(calls[0]))
	assert.Equal(t, app, calls[0].Dir)
	assert.Equal(t, []string{"NODE_OPTIONS=--max-old-space-size=2048"}, calls[0].Env)
}

func TestBuilderSkipsWhenPresent(t *testing.T) {
	app := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(app, "build"), 0755))
	rec := execxtest.New()
	b := NewBuilder(app, filepath.Join(app, "build"), []string{"npm", "run", "build"}, 2048, rec, zaptest.NewLogger(t))

	built, err := b.Ensure(context.Background())
	require.NoError(t, err)
	assert.False(t, built)
	assert.Empty(t, rec.Lines())
}

func TestBuilderFailure(t *testing.T) {
	app := t.TempDir()
	rec := execxtest.New().Fail("npm run build", 1, "heap out of memory")
	b := NewBuilder(app, filepath.Join(app, "build"), []string{"npm", "run", "build"}, 0, rec, zaptest.NewLogger(t))

	_, err := b.Ensure(context.Background())
	require.Error(t, err)
	assert.Nil(t, rec.Calls()[0].Env)
}
