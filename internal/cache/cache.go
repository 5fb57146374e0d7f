package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"envswitch/internal/util/execx"
)

// Plan returns the dirs that Clear would remove, in order.
func Plan(dirs, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[filepath.Clean(e)] = true
	}
	var out []string
	for _, d := range dirs {
		if skip[filepath.Clean(d)] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Clear removes every dir not excluded with "rm -rf". A failure on one dir
// does not stop the others; all failures come back combined.
func Clear(ctx context.Context, run execx.Runner, log *zap.Logger, dirs, exclude []string) ([]string, error) {
	var (
		cleared []string
		errs    error
	)
	plan := Plan(dirs, exclude)
	for _, d := range dirs {
		if !contains(plan, d) {
			log.Info("preserving excluded directory", zap.String("dir", d))
		}
	}
	for _, d := range plan {
		if _, err := run.Run(ctx, execx.Cmd("rm", "-rf", d)); err != nil {
			log.Error("clearing cache directory failed", zap.String("dir", d), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("clear %s: %w", d, err))
			continue
		}
		log.Info("cleared cache directory", zap.String("dir", d))
		cleared = append(cleared, d)
	}
	return cleared, errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
