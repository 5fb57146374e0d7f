// Package envfile rewrites dotenv files in place, keeping every line that is
// not owned by the active profile exactly as it was.
package envfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-envparse"

	"envswitch/internal/profile"
	"envswitch/internal/util/atomic"
)

// lineKey returns the key of a KEY=VALUE line, or "" for comments, blanks and
// anything without '='.
func lineKey(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return ""
	}
	k, _, ok := strings.Cut(trimmed, "=")
	if !ok {
		return ""
	}
	k = strings.TrimSpace(k)
	if rest, ok := strings.CutPrefix(k, "export "); ok {
		k = strings.TrimSpace(rest)
	}
	return k
}

// Update applies vars to content. The first occurrence of each profile key is
// replaced in place, later occurrences are dropped, and keys that never
// appeared are appended in profile order.
func Update(content []byte, vars profile.Vars) []byte {
	want := make(map[string]string, len(vars))
	for _, kv := range vars {
		want[kv.Key] = kv.Value
	}
	written := make(map[string]bool, len(vars))

	var out bytes.Buffer
	lines := strings.SplitAfter(string(content), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		k := lineKey(line)
		v, owned := want[k]
		if k == "" || !owned {
			out.WriteString(line)
			continue
		}
		if written[k] {
			continue
		}
		written[k] = true
		eol := "\n"
		if !strings.HasSuffix(line, "\n") {
			eol = ""
		} else if strings.HasSuffix(line, "\r\n") {
			eol = "\r\n"
		}
		fmt.Fprintf(&out, "%s=%s%s", k, v, eol)
	}

	for _, kv := range vars {
		if written[kv.Key] {
			continue
		}
		if out.Len() > 0 && !bytes.HasSuffix(out.Bytes(), []byte("\n")) {
			out.WriteByte('\n')
		}
		fmt.Fprintf(&out, "%s=%s\n", kv.Key, kv.Value)
		written[kv.Key] = true
	}
	return out.Bytes()
}

// Parse reads content the way the application runtime will.
func Parse(content []byte) (map[string]string, error) {
	return envparse.Parse(bytes.NewReader(content))
}

// owned returns only the lines of content whose key is one of vars.
func owned(content []byte, vars profile.Vars) []byte {
	keys := make(map[string]bool, len(vars))
	for _, kv := range vars {
		keys[kv.Key] = true
	}
	var out bytes.Buffer
	for _, line := range strings.SplitAfter(string(content), "\n") {
		if keys[lineKey(line)] {
			out.WriteString(strings.TrimRight(line, "\r\n"))
			out.WriteByte('\n')
		}
	}
	return out.Bytes()
}

// UpdateFile rewrites path with vars. The file must already exist. Lines the
// profile does not own are not validated: the application's own dotenv
// loader is more lenient than envparse (it accepts keys like MY-KEY).
// It returns the new content and whether it differs from the old one.
func UpdateFile(path string, vars profile.Vars) ([]byte, bool, error) {
	old, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read env file %s: %w", path, err)
	}

	next := Update(old, vars)

	got, err := Parse(owned(next, vars))
	if err != nil {
		return nil, false, fmt.Errorf("parse updated env file %s: %w", path, err)
	}
	for _, kv := range vars {
		if got[kv.Key] != kv.Value {
			return nil, false, fmt.Errorf("env file %s: %s reads back as %q, want %q", path, kv.Key, got[kv.Key], kv.Value)
		}
	}

	if bytes.Equal(old, next) {
		return next, false, nil
	}
	if err := atomic.ReplaceFile(path, next, 0600); err != nil {
		return nil, false, fmt.Errorf("write env file %s: %w", path, err)
	}
	return next, true, nil
}
