package config

import (
	"time"

	"envswitch/internal/profile"
)

const (
	ServerTemplate   = "template"
	ServerSubstitute = "substitute"

	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
)

const serialNumberController = `'use strict';

const { createCoreController } = require('@strapi/strapi').factories;

module.exports = createCoreController('api::serial-number.serial-number');
`

const serialNumberSchema = `{
  "kind": "collectionType",
  "collectionName": "serial_numbers",
  "info": {
    "singularName": "serial-number",
    "pluralName": "serial-numbers",
    "displayName": "Serial Number"
  },
  "options": {
    "draftAndPublish": false
  },
  "attributes": {
    "serial_start": {
      "type": "integer",
      "required": true
    },
    "serial_end": {
      "type": "integer",
      "required": true
    },
    "model_name": {
      "type": "string"
    },
    "year_produced": {
      "type": "string"
    },
    "taking_lens": {
      "type": "string"
    },
    "looking_lens": {
      "type": "string"
    },
    "description": {
      "type": "text"
    }
  }
}
`

// Default is the rolleilookup.com deployment this tool was written for.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Root:            "/opt/strapi",
			EnvFile:         ".env",
			ServerFile:      "config/server.js",
			MiddlewaresFile: "config/middlewares.js",
			BuildDir:        "build",
		},
		Server: ServerConfig{
			Strategy:        ServerTemplate,
			Host:            "0.0.0.0",
			Port:            1337,
			AdminPath:       "/admin",
			BootstrapScript: "../scripts/sync-serial-numbers",
		},
		Middlewares: MiddlewaresConfig{
			Enabled:        true,
			SecurityPolicy: true,
			ErrorHandler:   "global::error-handler",
		},
		BuildConfig: BuildConfigConfig{
			Remove: true,
			File:   "vite.config.js",
		},
		Nginx: NginxConfig{
			Source:  "deploy/rolleilookup.com.conf",
			Dest:    "/etc/nginx/sites-enabled/rolleilookup.com",
			Bin:     "nginx",
			Service: "nginx",
		},
		Git: GitConfig{
			Enabled: true,
			Remote:  "origin",
			Branch:  "main",
			Files: []string{
				"config/server.js",
				"config/middlewares.js",
				"deploy/rolleilookup.com.conf",
			},
		},
		Caches: CachesConfig{
			Dirs:    []string{".cache", "node_modules/.vite", "build"},
			Exclude: []string{"build"},
		},
		Scaffold: []ScaffoldFile{
			{Path: "src/api/serial-number/controllers/serial-number.js", Content: serialNumberController},
			{Path: "src/api/serial-number/content-types/serial-number/schema.json", Content: serialNumberSchema},
		},
		Services: ServicesConfig{
			Stop:        []string{"strapi-dev", "strapi-prod", "rolleiflex-frontend"},
			Port:        1337,
			FreePort:    true,
			SettleDelay: 2 * time.Second,
		},
		Build: BuildConfig{
			Command:       []string{"npm", "run", "build"},
			MaxOldSpaceMB: 2048,
		},
		Profiles: map[profile.Mode]*profile.Profile{
			profile.Dev: {
				Env: profile.Vars{
					{Key: "URL", Value: "http://localhost:1337"},
					{Key: "ADMIN_URL", Value: "http://localhost:1337/admin"},
					{Key: "NODE_ENV", Value: "development"},
				},
				CORSOrigins: []string{"http://localhost:1337", "http://127.0.0.1:1337", "http://localhost:3001"},
				Start:       []string{"strapi-dev"},
			},
			profile.Prod: {
				Env: profile.Vars{
					{Key: "URL", Value: "https://rolleilookup.com"},
					{Key: "ADMIN_URL", Value: "https://rolleilookup.com/admin"},
					{Key: "NODE_ENV", Value: "production"},
				},
				CORSOrigins: []string{"https://rolleilookup.com", "https://rolleilookup.com/admin"},
				CSP: profile.CSP{
					ImgSrc:    []string{"https://*.digitaloceanspaces.com"},
					MediaSrc:  []string{"https://*.digitaloceanspaces.com"},
					ScriptSrc: []string{"https://rolleilookup.com"},
				},
				Start:        []string{"strapi-prod", "rolleiflex-frontend"},
				RequireBuild: true,
			},
		},
		Steps: map[string]StepConfig{},
		Exec: ExecConfig{
			Sudo: "sudo",
		},
		LockFile: ".envswitch.lock",
		Storage: StorageConfig{
			SQLitePath: "/var/lib/envswitch/history.db",
		},
		Log: LogConfig{
			Format: "console",
			Level:  "info",
		},
	}
}
