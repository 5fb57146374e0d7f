package config

import (
	"path/filepath"
)

type Paths struct {
	Root            string
	EnvFile         string
	ServerFile      string
	MiddlewaresFile string
	BuildConfigFile string
	BuildDir        string

	NginxSource string
	NginxDest   string

	GitDir string

	CacheDirs    []string
	CacheExclude []string

	Scaffold []ScaffoldFile

	LockFile   string
	SQLitePath string
}

func (c *Config) ResolvePaths() Paths {
	root := c.App.Root

	p := Paths{
		Root:            root,
		EnvFile:         absOrJoin(root, c.App.EnvFile),
		ServerFile:      absOrJoin(root, c.App.ServerFile),
		MiddlewaresFile: absOrJoin(root, c.App.MiddlewaresFile),
		BuildConfigFile: absOrJoin(root, c.BuildConfig.File),
		BuildDir:        absOrJoin(root, c.App.BuildDir),

		NginxSource: absOrJoin(root, c.Nginx.Source),
		NginxDest:   absOrJoin(root, c.Nginx.Dest),

		GitDir: absOrJoin(root, c.Git.Dir),

		LockFile:   absOrJoin(root, c.LockFile),
		SQLitePath: absOrJoin(root, c.Storage.SQLitePath),
	}
	if p.GitDir == "" {
		p.GitDir = root
	}

	for _, d := range c.Caches.Dirs {
		p.CacheDirs = append(p.CacheDirs, absOrJoin(root, d))
	}
	for _, d := range c.Caches.Exclude {
		p.CacheExclude = append(p.CacheExclude, absOrJoin(root, d))
	}
	for _, f := range c.Scaffold {
		p.Scaffold = append(p.Scaffold, ScaffoldFile{Path: absOrJoin(root, f.Path), Content: f.Content})
	}
	return p
}

func absOrJoin(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
