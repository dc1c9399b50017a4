package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExport()
	c.normalizeRouting()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("OTB_PROJECTS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ProjectsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.ProjectsDir) == "" {
		c.Paths.ProjectsDir = defaultProjectsDir()
	}
	if c.Paths.ProjectsDir, err = expandPath(c.Paths.ProjectsDir); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExport() {
	c.Export.MetadataSuffix = strings.TrimSpace(c.Export.MetadataSuffix)
	if c.Export.MetadataSuffix == "" {
		c.Export.MetadataSuffix = defaultMetadataSuffix
	}
	if c.Export.Parallelism <= 0 {
		c.Export.Parallelism = defaultParallelism
	}
	c.Export.FilenamePrefix = strings.TrimSpace(c.Export.FilenamePrefix)
	if c.Export.FilenamePrefix == "" {
		c.Export.FilenamePrefix = defaultFilenamePrefix
	}
}

func (c *Config) normalizeRouting() {
	if value, ok := os.LookupEnv("OTB_ROUTING_URL"); ok && strings.TrimSpace(value) != "" {
		c.Routing.URL = strings.TrimSpace(value)
	}
	c.Routing.URL = strings.TrimSpace(c.Routing.URL)
	if c.Routing.URL == "" {
		c.Routing.URL = defaultRoutingURL
	}
	if c.Routing.TimeoutSeconds <= 0 {
		c.Routing.TimeoutSeconds = defaultRoutingTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
