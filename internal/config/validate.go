package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"envswitch/internal/profile"
)

func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.App.Root) == "" {
		errs = append(errs, "app.root is required (e.g. /opt/strapi)")
	} else if !filepath.IsAbs(c.App.Root) {
		errs = append(errs, fmt.Sprintf("app.root=%q must be absolute", c.App.Root))
	}

	switch c.Server.Strategy {
	case ServerTemplate, ServerSubstitute:
	default:
		errs = append(errs, fmt.Sprintf("server.strategy=%q unsupported (template|substitute)", c.Server.Strategy))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port=%d out of range", c.Server.Port))
	}

	if strings.TrimSpace(c.Nginx.Source) == "" {
		errs = append(errs, "nginx.source is required")
	}
	if strings.TrimSpace(c.Nginx.Dest) == "" {
		errs = append(errs, "nginx.dest is required")
	}

	if c.Git.Enabled && len(c.Git.Files) == 0 {
		errs = append(errs, "git.files must list at least one file when git is enabled")
	}

	for i, f := range c.Scaffold {
		if strings.TrimSpace(f.Path) == "" {
			errs = append(errs, fmt.Sprintf("scaffold[%d].path is required", i))
		}
		if f.Content == "" {
			errs = append(errs, fmt.Sprintf("scaffold[%d].content is empty", i))
		}
	}

	if c.Services.Port < 1 || c.Services.Port > 65535 {
		errs = append(errs, fmt.Sprintf("services.port=%d out of range", c.Services.Port))
	}
	if c.Services.SettleDelay < 0 {
		errs = append(errs, "services.settle_delay must not be negative")
	}
	if c.Build.MaxOldSpaceMB < 0 {
		errs = append(errs, "build.max_old_space_mb must not be negative")
	}
	if c.Exec.Timeout < 0 {
		errs = append(errs, "exec.timeout must not be negative")
	}

	for m, p := range c.Profiles {
		if _, err := profile.ParseMode(string(m)); err != nil {
			errs = append(errs, fmt.Sprintf("profiles.%s: unknown mode", m))
			continue
		}
		if p == nil {
			errs = append(errs, fmt.Sprintf("profiles.%s is empty", m))
			continue
		}
		if p.URL() == "" {
			errs = append(errs, fmt.Sprintf("profiles.%s.env.URL is required", m))
		}
		if c.Middlewares.Enabled && len(p.CORSOrigins) == 0 {
			errs = append(errs, fmt.Sprintf("profiles.%s.cors_origins is required when middlewares are enabled", m))
		}
		if len(p.Start) == 0 {
			errs = append(errs, fmt.Sprintf("profiles.%s.start must name at least one service", m))
		}
	}
	for _, m := range profile.Modes() {
		if _, ok := c.Profiles[m]; !ok {
			errs = append(errs, fmt.Sprintf("profiles.%s is required", m))
		}
	}

	for name, s := range c.Steps {
		switch s.OnError {
		case "", OnErrorAbort, OnErrorContinue:
		default:
			errs = append(errs, fmt.Sprintf("steps.%s.on_error=%q unsupported (abort|continue)", name, s.OnError))
		}
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format=%q unsupported (console|json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
