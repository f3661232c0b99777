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
	c.normalizeHotfolder()
	c.normalizeCatalog()
	c.normalizeWorkflow()
	c.normalizeScheduler()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.HotfolderDir, err = expandPath(strings.TrimSpace(c.Paths.HotfolderDir)); err != nil {
		return fmt.Errorf("paths.hotfolder_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UnitsDir) == "" {
		c.Paths.UnitsDir = defaultUnitsDir
	}
	if c.Paths.UnitsDir, err = expandPath(strings.TrimSpace(c.Paths.UnitsDir)); err != nil {
		return fmt.Errorf("paths.units_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHotfolder() {
	if c.Hotfolder.Separator == "" {
		c.Hotfolder.Separator = defaultSeparator
	}
	if c.Hotfolder.TitlePlaceholder == "" {
		c.Hotfolder.TitlePlaceholder = defaultTitlePlaceholder
	}
	c.Hotfolder.ClaimMarker = strings.TrimSpace(c.Hotfolder.ClaimMarker)
	if c.Hotfolder.ClaimMarker == "" {
		c.Hotfolder.ClaimMarker = defaultClaimMarker
	}
	if c.Hotfolder.JunkNames == nil {
		c.Hotfolder.JunkNames = defaultJunkNames()
	}
	c.Hotfolder.JunkNames = dedupeTrimmed(c.Hotfolder.JunkNames, true)
	if c.Hotfolder.MinFreeMiB < 0 {
		c.Hotfolder.MinFreeMiB = 0
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("HOTFOLDER_CATALOG_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		}
	}
	c.Catalog.Name = strings.TrimSpace(c.Catalog.Name)
	if c.Catalog.Name == "" {
		c.Catalog.Name = defaultCatalogName
	}
	c.Catalog.Profile = strings.TrimSpace(c.Catalog.Profile)
	if c.Catalog.Profile == "" {
		c.Catalog.Profile = defaultCatalogProfile
	}
	c.Catalog.SearchField = strings.TrimSpace(c.Catalog.SearchField)
	if c.Catalog.SearchField == "" {
		c.Catalog.SearchField = defaultCatalogSearchField
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.ServiceUser = strings.TrimSpace(c.Workflow.ServiceUser)
	c.Workflow.ActivationProperty = strings.TrimSpace(c.Workflow.ActivationProperty)
	if c.Workflow.ActivationProperty == "" {
		c.Workflow.ActivationProperty = defaultActivationProperty
	}
	c.Workflow.ScannerProperty = strings.TrimSpace(c.Workflow.ScannerProperty)
	if c.Workflow.ScannerProperty == "" {
		c.Workflow.ScannerProperty = defaultScannerProperty
	}
	c.Workflow.ConferenceField = strings.TrimSpace(c.Workflow.ConferenceField)
	if c.Workflow.ConferenceField == "" {
		c.Workflow.ConferenceField = defaultConferenceField
	}
	if c.Workflow.ConferenceTokens == nil {
		c.Workflow.ConferenceTokens = defaultConferenceTokens()
	}
	c.Workflow.ConferenceTokens = dedupeTrimmed(c.Workflow.ConferenceTokens, false)
	c.Workflow.ImagePathField = strings.TrimSpace(c.Workflow.ImagePathField)
	if c.Workflow.ImagePathField == "" {
		c.Workflow.ImagePathField = defaultImagePathField
	}
	c.Workflow.StepShell = strings.TrimSpace(c.Workflow.StepShell)
	if c.Workflow.StepShell == "" {
		c.Workflow.StepShell = defaultStepShell
	}
	if c.Workflow.StepTimeoutSeconds <= 0 {
		c.Workflow.StepTimeoutSeconds = defaultStepTimeoutSeconds
	}
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.Schedule = strings.TrimSpace(c.Scheduler.Schedule)
	if c.Scheduler.Schedule == "" {
		c.Scheduler.Schedule = defaultSchedule
	}
	if c.Scheduler.StartDelaySeconds < 0 {
		c.Scheduler.StartDelaySeconds = 0
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func dedupeTrimmed(values []string, foldCase bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := trimmed
		if foldCase {
			key = strings.ToLower(trimmed)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
