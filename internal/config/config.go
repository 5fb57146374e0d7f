package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"envswitch/internal/profile"
)

type Config struct {
	App         AppConfig                         `yaml:"app"`
	Server      ServerConfig                      `yaml:"server"`
	Middlewares MiddlewaresConfig                 `yaml:"middlewares"`
	BuildConfig BuildConfigConfig                 `yaml:"build_config"`
	Nginx       NginxConfig                       `yaml:"nginx"`
	Git         GitConfig                         `yaml:"git"`
	Caches      CachesConfig                      `yaml:"caches"`
	Scaffold    []ScaffoldFile                    `yaml:"scaffold"`
	Services    ServicesConfig                    `yaml:"services"`
	Build       BuildConfig                       `yaml:"build"`
	Profiles    map[profile.Mode]*profile.Profile `yaml:"profiles"`
	Steps       map[string]StepConfig             `yaml:"steps"`
	Exec        ExecConfig                        `yaml:"exec"`
	LockFile    string                            `yaml:"lock_file"`
	Storage     StorageConfig                     `yaml:"storage"`
	Log         LogConfig                         `yaml:"log"`
}

// AppConfig locates the deployed application. Relative paths anywhere in
// the config are resolved against Root.
type AppConfig struct {
	Root            string `yaml:"root"`
	EnvFile         string `yaml:"env_file"`
	ServerFile      string `yaml:"server_file"`
	MiddlewaresFile string `yaml:"middlewares_file"`
	BuildDir        string `yaml:"build_dir"`
}

type ServerConfig struct {
	Strategy        string `yaml:"strategy"` // "template" or "substitute"
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	AdminPath       string `yaml:"admin_path"`
	BootstrapScript string `yaml:"bootstrap_script"`
}

type MiddlewaresConfig struct {
	Enabled        bool     `yaml:"enabled"`
	SecurityPolicy bool     `yaml:"security_policy"`
	ErrorHandler   string   `yaml:"error_handler"`
	Headers        []string `yaml:"headers"`
	Methods        []string `yaml:"methods"`
}

type BuildConfigConfig struct {
	Remove bool   `yaml:"remove"`
	File   string `yaml:"file"`
}

type NginxConfig struct {
	Source  string `yaml:"source"`
	Dest    string `yaml:"dest"`
	Bin     string `yaml:"bin"`
	Service string `yaml:"service"`
}

type GitConfig struct {
	Enabled bool     `yaml:"enabled"`
	Dir     string   `yaml:"dir"`
	Remote  string   `yaml:"remote"`
	Branch  string   `yaml:"branch"`
	Files   []string `yaml:"files"`
}

type CachesConfig struct {
	Dirs    []string `yaml:"dirs"`
	Exclude []string `yaml:"exclude"`
}

type ScaffoldFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

type ServicesConfig struct {
	Stop        []string      `yaml:"stop"`
	Port        int           `yaml:"port"`
	FreePort    bool          `yaml:"free_port"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type BuildConfig struct {
	Command       []string `yaml:"command"`
	MaxOldSpaceMB int      `yaml:"max_old_space_mb"`
}

type StepConfig struct {
	OnError string `yaml:"on_error"` // "abort" or "continue"
}

type ExecConfig struct {
	Sudo    string        `yaml:"sudo"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type LogConfig struct {
	Format string `yaml:"format"` // "console" or "json"
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
}

// Load reads a YAML config on top of Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true) // catch typos in YAML
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse yaml %q: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values a config file blanked out.
func (c *Config) applyDefaults() {
	d := Default()

	if c.App.Root == "" {
		c.App.Root = d.App.Root
	}
	if c.App.EnvFile == "" {
		c.App.EnvFile = d.App.EnvFile
	}
	if c.App.ServerFile == "" {
		c.App.ServerFile = d.App.ServerFile
	}
	if c.App.MiddlewaresFile == "" {
		c.App.MiddlewaresFile = d.App.MiddlewaresFile
	}
	if c.App.BuildDir == "" {
		c.App.BuildDir = d.App.BuildDir
	}

	if c.Server.Strategy == "" {
		c.Server.Strategy = ServerTemplate
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.AdminPath == "" {
		c.Server.AdminPath = d.Server.AdminPath
	}

	if c.BuildConfig.File == "" {
		c.BuildConfig.File = d.BuildConfig.File
	}

	if c.Nginx.Bin == "" {
		c.Nginx.Bin = d.Nginx.Bin
	}
	if c.Nginx.Service == "" {
		c.Nginx.Service = d.Nginx.Service
	}

	if c.Git.Remote == "" {
		c.Git.Remote = d.Git.Remote
	}
	if c.Git.Branch == "" {
		c.Git.Branch = d.Git.Branch
	}

	if c.Services.Port == 0 {
		c.Services.Port = d.Services.Port
	}

	if len(c.Build.Command) == 0 {
		c.Build.Command = d.Build.Command
	}

	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = d.Storage.SQLitePath
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Steps == nil {
		c.Steps = map[string]StepConfig{}
	}
}

// Profile returns the profile for m.
func (c *Config) Profile(m profile.Mode) (profile.Profile, error) {
	p, ok := c.Profiles[m]
	if !ok || p == nil {
		return profile.Profile{}, fmt.Errorf("no profile for mode %q", m)
	}
	return *p, nil
}
