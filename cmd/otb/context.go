package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"otb/internal/config"
	"otb/internal/logging"
	"otb/internal/project"
	"otb/internal/routing"
	"otb/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	routingOnce sync.Once
	routing     *routing.Engine
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", path, err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrIO, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue returns the process logger. Logger construction failures fall
// back to a no-op logger so they never mask the command's own result.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) projectStore() (*project.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return project.New(cfg.Paths.ProjectsDir, cfg.Export.MetadataSuffix, c.loggerValue()), nil
}

// routingEngine returns the process-wide routing engine. The engine opens its
// transport on the first request and keeps it for the rest of the run.
func (c *commandContext) routingEngine() (*routing.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Routing.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "routing", "", "routing is disabled; set routing.enabled = true", nil)
	}
	c.routingOnce.Do(func() {
		c.routing = routing.NewHTTPEngine(cfg.Routing.URL, cfg.RoutingTimeout(), c.loggerValue())
	})
	return c.routing, nil
}

// releaseLock runs unlock and logs, rather than returns, any failure so the
// command's own error is preserved.
func (c *commandContext) releaseLock(cmd *cobra.Command, unlock func() error) {
	if err := unlock(); err != nil {
		logging.WarnWithContext(cmd.Context(), c.loggerValue(), "project unlock failed", "unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the stale .otb.lock file if no other otb process is running"),
		)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
