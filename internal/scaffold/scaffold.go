package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"envswitch/internal/config"
	"envswitch/internal/util/atomic"
)

// Ensure writes each file's default content when the file is missing or
// empty. A non-empty file is never touched. It returns the paths written.
func Ensure(log *zap.Logger, files []config.ScaffoldFile) ([]string, error) {
	var written []string
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return written, fmt.Errorf("mkdir %s: %w", dir, err)
			}
			log.Info("created directory", zap.String("dir", dir))
		}

		fi, err := os.Stat(f.Path)
		switch {
		case err == nil && fi.Size() > 0:
			log.Debug("file already present", zap.String("file", f.Path))
			continue
		case err != nil && !os.IsNotExist(err):
			return written, fmt.Errorf("stat %s: %w", f.Path, err)
		}

		if err := atomic.ReplaceFile(f.Path, []byte(f.Content), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.Path, err)
		}
		log.Info("created file", zap.String("file", f.Path))
		written = append(written, f.Path)
	}
	return written, nil
}
