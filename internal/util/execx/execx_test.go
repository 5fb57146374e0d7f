package execx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerSuccess(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), Cmd("sh", "-c", "echo out; echo err >&2"))
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunnerExitCode(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), Cmd("sh", "-c", "echo nothing to commit; exit 3"))
	require.Error(t, err)

	var ee *ExitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.Result.ExitCode)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, err.Error(), "nothing to commit")
}

func TestExecRunnerDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	c := Command{Name: "sh", Args: []string{"-c", "pwd; echo $SWITCH_TEST"}, Dir: dir, Env: []string{"SWITCH_TEST=yes"}}
	res, err := ExecRunner{}.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "yes")
}

func TestExecRunnerTimeout(t *testing.T) {
	res, err := ExecRunner{Timeout: 50 * time.Millisecond}.Run(context.Background(), Cmd("sleep", "5"))
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, err.Error(), "timeout")
}

func TestSudo(t *testing.T) {
	c := Sudo("sudo", Cmd("systemctl", "stop", "strapi-dev"))
	assert.Equal(t, "sudo", c.Name)
	assert.Equal(t, []string{"systemctl", "stop", "strapi-dev"}, c.Args)

	plain := Sudo("", Cmd("nginx", "-t"))
	assert.Equal(t, "nginx", plain.Name)
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "npm", Args: []string{"run", "build"}, Env: []string{"NODE_OPTIONS=--max-old-space-size=2048"}}
	assert.Equal(t, "NODE_OPTIONS=--max-old-space-size=2048 npm run build", c.String())
}
