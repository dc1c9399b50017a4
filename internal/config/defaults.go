package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultConfigPath            = "~/.config/otb/config.toml"
	defaultExportDir             = "~/OpenTourBuilder/exports"
	defaultLogDir                = "~/.local/share/otb/logs"
	defaultMetadataSuffix        = ".meta.json"
	defaultParallelism           = 1
	maxParallelism               = 64
	defaultFilenamePrefix        = "OpenTourBuilder"
	defaultRoutingURL            = "http://127.0.0.1:8002/route"
	defaultRoutingTimeoutSeconds = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectsDir: defaultProjectsDir(),
			ExportDir:   defaultExportDir,
			LogDir:      defaultLogDir,
		},
		Export: Export{
			MetadataSuffix: defaultMetadataSuffix,
			Parallelism:    defaultParallelism,
			FilenamePrefix: defaultFilenamePrefix,
		},
		Routing: Routing{
			URL:            defaultRoutingURL,
			TimeoutSeconds: defaultRoutingTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// RoutingTimeout returns the routing request timeout as a duration.
func (c *Config) RoutingTimeout() time.Duration {
	return time.Duration(c.Routing.TimeoutSeconds) * time.Second
}

func defaultProjectsDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "otb", "projects")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/share/otb/projects"
	}
	return filepath.Join(home, ".local", "share", "otb", "projects")
}
