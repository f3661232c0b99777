package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	HotfolderDir string `toml:"hotfolder_dir"`
	UnitsDir     string `toml:"units_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Hotfolder contains configuration for batch detection and claiming.
type Hotfolder struct {
	QuietPeriodSeconds  int      `toml:"quiet_period_seconds"`
	Separator           string   `toml:"separator"`
	TitlePlaceholder    string   `toml:"title_placeholder"`
	ClaimMarker         string   `toml:"claim_marker"`
	JunkNames           []string `toml:"junk_names"`
	QuarantineMalformed bool     `toml:"quarantine_malformed"`
	MinFreeMiB          int      `toml:"min_free_mib"`
}

// Catalog contains configuration for the bibliographic catalog service.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Name           string `toml:"name"`
	Profile        string `toml:"profile"`
	SearchField    string `toml:"search_field"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains configuration for work unit provisioning.
type Workflow struct {
	TemplateID         int64    `toml:"template_id"`
	ServiceUser        string   `toml:"service_user"`
	ActivationProperty string   `toml:"activation_property"`
	ScannerProperty    string   `toml:"scanner_property"`
	ConferenceField    string   `toml:"conference_field"`
	ConferenceTokens   []string `toml:"conference_tokens"`
	ImagePathField     string   `toml:"image_path_field"`
	StepShell          string   `toml:"step_shell"`
	StepTimeoutSeconds int      `toml:"step_timeout_seconds"`
}

// Scheduler contains configuration for the poll trigger.
type Scheduler struct {
	Schedule            string `toml:"schedule"`
	StartDelaySeconds   int    `toml:"start_delay_seconds"`
	CycleTimeoutSeconds int    `toml:"cycle_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ingested       bool   `toml:"ingested"`
	Quarantine     bool   `toml:"quarantine"`
	Errors         bool   `toml:"errors"`
}

// Metrics contains configuration for the daemon's HTTP observability endpoint.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Config encapsulates all configuration values for the hotfolder daemon.
//
// Configuration sections by subsystem:
//   - Paths: hotfolder root, managed unit storage, state and log directories
//   - Hotfolder: quiet period, name conventions, claim marker, junk filter
//   - Catalog: bibliographic lookup service
//   - Workflow: template cloning and derived properties
//   - Scheduler: poll trigger interval and cycle timeout
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus and health endpoint listen address
type Config struct {
	Paths         Paths         `toml:"paths"`
	Hotfolder     Hotfolder     `toml:"hotfolder"`
	Catalog       Catalog       `toml:"catalog"`
	Workflow      Workflow      `toml:"workflow"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hotfolder.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon owns. The hotfolder
// itself belongs to the scanning station and is never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UnitsDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QuietPeriod returns the minimum idle time before a batch counts as settled.
func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Hotfolder.QuietPeriodSeconds) * time.Second
}

// StartDelay returns how long the scheduler waits before the first cycle.
func (c *Config) StartDelay() time.Duration {
	return time.Duration(c.Scheduler.StartDelaySeconds) * time.Second
}

// CycleTimeout bounds a single poll cycle.
func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.Scheduler.CycleTimeoutSeconds) * time.Second
}

// CatalogTimeout bounds a single catalog request.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

// StepTimeout bounds a single automatic step script. Zero disables the limit.
func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.Workflow.StepTimeoutSeconds) * time.Second
}

// PIDPath returns the file recording the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "hotfolder.pid")
}

// DatabasePath returns the location of the work unit database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "workunits.db")
}

// DaemonLockPath returns the single-instance lock file for the daemon.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "hotfolder.lock")
}

// CycleLockPath returns the lock file serializing poll cycles across processes.
func (c *Config) CycleLockPath() string {
	return filepath.Join(c.Paths.StateDir, "cycle.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
