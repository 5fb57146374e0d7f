package nginx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"envswitch/internal/util/execx/execxtest"
	"envswitch/internal/util/hashx"
)

func newManager(t *testing.T, rec *execxtest.Recorder) (*Manager, []byte) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "site.conf")
	body := []byte("server { listen 80; }\n")
	require.NoError(t, os.WriteFile(src, body, 0644))
	return NewManager(src, "/etc/nginx/sites-enabled/site", "nginx", "nginx", "sudo", rec, zaptest.NewLogger(t)), body
}

func TestPublish(t *testing.T) {
	rec := execxtest.New()
	m, body := newManager(t, rec)

	digest, err := m.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hashx.Digest(body), digest)

	assert.Equal(t, []string{
		"sudo cp " + m.Source + " /etc/nginx/sites-enabled/site",
		"sudo nginx -t",
		"sudo systemctl reload nginx",
	}, rec.Lines())
}

func TestPublishStopsOnFailedTest(t *testing.T) {
	rec := execxtest.New().Fail("sudo nginx -t", 1, "emerg: unexpected }")
	m, _ := newManager(t, rec)

	_, err := m.Publish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nginx config test")
	assert.Equal(t, 0, rec.Count("sudo systemctl reload nginx"))
}

func TestPublishStopsOnFailedCopy(t *testing.T) {
	rec := execxtest.New()
	m, _ := newManager(t, rec)
	rec.Fail("sudo cp "+m.Source+" /etc/nginx/sites-enabled/site", 1, "")

	_, err := m.Publish(context.Background())
	require.Error(t, err)
	assert.Len(t, rec.Lines(), 1)
}

func TestPublishReloadFailure(t *testing.T) {
	rec := execxtest.New().Fail("sudo systemctl reload nginx", 1, "")
	m, _ := newManager(t, rec)

	_, err := m.Publish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload nginx")
}

func TestPublishMissingSource(t *testing.T) {
	rec := execxtest.New()
	m := NewManager(filepath.Join(t.TempDir(), "missing.conf"), "/tmp/x", "nginx", "nginx", "sudo", rec, zaptest.NewLogger(t))

	_, err := m.Publish(context.Background())
	require.Error(t, err)
	assert.Empty(t, rec.Lines())
}

func TestWithoutSudo(t *testing.T) {
	rec := execxtest.New()
	m, _ := newManager(t, rec)
	m.Sudo = ""

	require.NoError(t, m.TestConfig(context.Background()))
	assert.Equal(t, []string{"nginx -t"}, rec.Lines())
}
