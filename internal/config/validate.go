package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateRouting(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ProjectsDir) == "" {
		return errors.New("paths.projects_dir must be set")
	}
	return nil
}

func (c *Config) validateExport() error {
	suffix := c.Export.MetadataSuffix
	if !strings.HasPrefix(suffix, ".") {
		return fmt.Errorf("export.metadata_suffix must start with '.', got %q", suffix)
	}
	if strings.ContainsAny(suffix, `/\`) {
		return fmt.Errorf("export.metadata_suffix must not contain path separators, got %q", suffix)
	}
	if c.Export.Parallelism < 1 || c.Export.Parallelism > maxParallelism {
		return fmt.Errorf("export.parallelism must be between 1 and %d", maxParallelism)
	}
	if strings.ContainsAny(c.Export.FilenamePrefix, `/\`) {
		return errors.New("export.filename_prefix must not contain path separators")
	}
	return nil
}

func (c *Config) validateRouting() error {
	if !c.Routing.Enabled {
		return nil
	}
	parsed, err := url.Parse(c.Routing.URL)
	if err != nil {
		return fmt.Errorf("routing.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("routing.url must use http or https, got %q", c.Routing.URL)
	}
	if c.Routing.TimeoutSeconds <= 0 {
		return errors.New("routing.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
