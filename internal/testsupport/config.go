package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hotfolder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The hotfolder directory is created so cycles can run immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.HotfolderDir = filepath.Join(base, "hot")
	cfgVal.Paths.UnitsDir = filepath.Join(base, "units")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.BaseURL = "http://127.0.0.1:0"
	cfgVal.Workflow.TemplateID = 1
	cfgVal.Workflow.ServiceUser = "hotfolder-test"
	cfgVal.Hotfolder.MinFreeMiB = 0
	cfgVal.Scheduler.StartDelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Paths.HotfolderDir, 0o755); err != nil {
		t.Fatalf("mkdir hotfolder: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCatalogURL points the catalog client at a test server.
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = url
	}
}

// WithTemplateID overrides the template cloned for new units.
func WithTemplateID(id int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.TemplateID = id
	}
}

// WithQuietPeriod overrides the stability quiet period in seconds.
func WithQuietPeriod(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Hotfolder.QuietPeriodSeconds = seconds
	}
}

// WithQuarantineMalformed toggles claiming of malformed folder names.
func WithQuarantineMalformed(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Hotfolder.QuarantineMalformed = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.HotfolderDir)
}
