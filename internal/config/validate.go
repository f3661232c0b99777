package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHotfolder(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateMetrics()
}

func (c *Config) validatePaths() error {
	if c.Paths.HotfolderDir == "" {
		return errors.New("paths.hotfolder_dir must be set")
	}
	if c.Paths.UnitsDir == "" {
		return errors.New("paths.units_dir must be set")
	}
	if c.Paths.HotfolderDir == c.Paths.UnitsDir {
		return errors.New("paths.units_dir must differ from paths.hotfolder_dir")
	}
	rel, err := filepath.Rel(c.Paths.HotfolderDir, c.Paths.UnitsDir)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New("paths.units_dir must not be inside paths.hotfolder_dir")
	}
	return nil
}

func (c *Config) validateHotfolder() error {
	if c.Hotfolder.QuietPeriodSeconds <= 0 {
		return errors.New("hotfolder.quiet_period_seconds must be positive")
	}
	if utf8.RuneCountInString(c.Hotfolder.Separator) != 1 {
		return fmt.Errorf("hotfolder.separator must be a single character, got %q", c.Hotfolder.Separator)
	}
	if utf8.RuneCountInString(c.Hotfolder.TitlePlaceholder) != 1 {
		return fmt.Errorf("hotfolder.title_placeholder must be a single character, got %q", c.Hotfolder.TitlePlaceholder)
	}
	if c.Hotfolder.Separator == c.Hotfolder.TitlePlaceholder {
		return errors.New("hotfolder.title_placeholder must differ from hotfolder.separator")
	}
	if strings.ContainsAny(c.Hotfolder.Separator, `/\`) {
		return errors.New("hotfolder.separator must not be a path separator")
	}
	if strings.ContainsAny(c.Hotfolder.ClaimMarker, `/\`) || c.Hotfolder.ClaimMarker == "." || c.Hotfolder.ClaimMarker == ".." {
		return fmt.Errorf("hotfolder.claim_marker must be a plain file name, got %q", c.Hotfolder.ClaimMarker)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("catalog.base_url is required. Edit %s (create with 'hotfolder config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		return fmt.Errorf("catalog.base_url must be an http(s) URL, got %q", c.Catalog.BaseURL)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.TemplateID <= 0 {
		return errors.New("workflow.template_id must be set to the id of an imported template (see 'hotfolder template import')")
	}
	if len(c.Workflow.ConferenceTokens) == 0 {
		return errors.New("workflow.conference_tokens must include at least one token")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if _, err := cron.ParseStandard(c.Scheduler.Schedule); err != nil {
		return fmt.Errorf("scheduler.schedule %q: %w", c.Scheduler.Schedule, err)
	}
	return ensurePositiveMap(map[string]int{
		"scheduler.cycle_timeout_seconds": c.Scheduler.CycleTimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
		return fmt.Errorf("metrics.listen must be host:port, got %q: %w", c.Metrics.Listen, err)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
