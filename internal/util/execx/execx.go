package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stdout and stderr joined, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the current process environment.
	Env []string
}

func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) String() string {
	parts := append([]string{}, c.Env...)
	parts = append(parts, c.Name)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Runner executes external commands. Everything that touches the system
// beyond plain files goes through a Runner so tests can record the calls.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// ExecRunner runs commands with os/exec. Timeout 0 means no timeout.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	err := cmd.Run()

	res := Result{
		Stdout: outb.String(),
		Stderr: errb.String(),
	}

	// Timeout?
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, fmt.Errorf("command timeout after %s: %s", r.Timeout, c)
	}

	if err == nil {
		return res, nil
	}

	// Non-zero exit
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
		return res, &ExitError{Command: c, Result: res}
	}

	return res, fmt.Errorf("command error: %s: %w", c, err)
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command Command
	Result  Result
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command failed (exit %d): %s", e.Result.ExitCode, e.Command)
	if out := e.Result.Output(); out != "" {
		msg += ": " + out
	}
	return msg
}

// Sudo prefixes c with the given privilege command. An empty prefix returns
// c unchanged.
func Sudo(prefix string, c Command) Command {
	if prefix == "" {
		return c
	}
	return Command{
		Name: prefix,
		Args: append([]string{c.Name}, c.Args...),
		Dir:  c.Dir,
		Env:  c.Env,
	}
}
