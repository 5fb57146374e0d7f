// Package execxtest provides a recording execx.Runner for tests.
package execxtest

import (
	"context"
	"strings"
	"sync"

	"envswitch/internal/util/execx"
)

type response struct {
	line string
	res  execx.Result
	err  error
}

// Recorder records every command it is asked to run and answers with canned
// results. Unmatched commands succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	calls     []execx.Command
	responses []response
}

func New() *Recorder {
	return &Recorder{}
}

// Line renders a command as "name arg1 arg2", without Dir or Env.
func Line(c execx.Command) string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// On registers a result for the command whose Line equals line.
func (r *Recorder) On(line string, res execx.Result, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{line: line, res: res, err: err})
	return r
}

// Stdout makes line succeed with the given stdout.
func (r *Recorder) Stdout(line, stdout string) *Recorder {
	return r.On(line, execx.Result{Stdout: stdout}, nil)
}

// Fail makes line exit with code and print stdout.
func (r *Recorder) Fail(line string, code int, stdout string) *Recorder {
	res := execx.Result{Stdout: stdout, ExitCode: code}
	name, args, _ := strings.Cut(line, " ")
	cmd := execx.Command{Name: name}
	if args != "" {
		cmd.Args = strings.Fields(args)
	}
	return r.On(line, res, &execx.ExitError{Command: cmd, Result: res})
}

func (r *Recorder) Run(_ context.Context, c execx.Command) (execx.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	line := Line(c)
	for _, resp := range r.responses {
		if resp.line == line {
			return resp.res, resp.err
		}
	}
	return execx.Result{}, nil
}

func (r *Recorder) Calls() []execx.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]execx.Command(nil), r.calls...)
}

func (r *Recorder) Lines() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, Line(c))
	}
	return out
}

// Count returns how many recorded commands have the given line.
func (r *Recorder) Count(line string) int {
	n := 0
	for _, l := range r.Lines() {
		if l == line {
			n++
		}
	}
	return n
}
