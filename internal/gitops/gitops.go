// Package gitops records a mode switch in the deployment's git repository.
// All commands target the repository directory via "git -C <dir>".
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"envswitch/internal/profile"
	"envswitch/internal/util/execx"
)

// ErrNothingToCommit is returned when the switch left the tracked files
// unchanged. Callers treat it as success.
var ErrNothingToCommit = errors.New("nothing to commit")

type Repository struct {
	dir    string
	remote string
	branch string
	// files are relative to dir.
	files []string
	// untrack is removed from the index when it is gone from disk.
	untrack string

	run execx.Runner
	log *zap.Logger
}

func NewRepository(dir, remote, branch string, files []string, untrack string, run execx.Runner, log *zap.Logger) *Repository {
	return &Repository{
		dir:     dir,
		remote:  remote,
		branch:  branch,
		files:   files,
		untrack: untrack,
		run:     run,
		log:     log,
	}
}

func (r *Repository) git(ctx context.Context, args ...string) (execx.Result, error) {
	return r.run.Run(ctx, execx.Cmd("git", append([]string{"-C", r.dir}, args...)...))
}

func (r *Repository) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.dir, p)
}

// CommitMessage is the message used for a switch to mode m.
func CommitMessage(m profile.Mode) string {
	return fmt.Sprintf("Switch to %s mode", m)
}

// CommitAndPush stages the tracked files, commits and pushes. Files missing
// from disk are skipped rather than failing the add.
func (r *Repository) CommitAndPush(ctx context.Context, m profile.Mode) error {
	var stage []string
	for _, f := range r.files {
		if _, err := os.Stat(r.abs(f)); err != nil {
			r.log.Warn("not staging missing file", zap.String("file", f))
			continue
		}
		stage = append(stage, f)
	}
	if len(stage) > 0 {
		if _, err := r.git(ctx, append([]string{"add", "--"}, stage...)...); err != nil {
			return fmt.Errorf("git add: %w", err)
		}
	}

	if r.untrack != "" {
		if _, err := os.Stat(r.abs(r.untrack)); errors.Is(err, os.ErrNotExist) {
			rel := r.untrack
			if filepath.IsAbs(rel) {
				if p, err := filepath.Rel(r.dir, rel); err == nil {
					rel = p
				}
			}
			if _, err := r.git(ctx, "rm", "-f", "--cached", "--ignore-unmatch", "--", rel); err != nil {
				return fmt.Errorf("git rm %s: %w", rel, err)
			}
		}
	}

	msg := CommitMessage(m)
	res, err := r.git(ctx, "commit", "-m", msg)
	if err != nil {
		if strings.Contains(res.Output(), "nothing to commit") || strings.Contains(err.Error(), "nothing to commit") {
			return ErrNothingToCommit
		}
		return fmt.Errorf("git commit: %w", err)
	}

	if _, err := r.git(ctx, "push", r.remote, r.branch); err != nil {
		return fmt.Errorf("git push %s %s: %w", r.remote, r.branch, err)
	}
	r.log.Info("committed and pushed", zap.String("message", msg), zap.String("remote", r.remote), zap.String("branch", r.branch))
	return nil
}
