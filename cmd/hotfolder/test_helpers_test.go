package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hotfolder/internal/config"
	"hotfolder/internal/testsupport"
)

const catalogRecord = `{
  "records": [{
    "logical": {"type": "Monograph", "metadata": [
      {"type": "TitleDocMain", "value": "Proceedings"},
      {"type": "ConferenceIndicator", "value": "Konferenzschrift"}
    ]},
    "physical": {"type": "BoundBook", "metadata": []}
  }]
}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a config file pointing at temp directories and a
// catalog server that only knows 140210016.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "140210016" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogRecord))
	}))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(srv.URL))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
hotfolder_dir = %q
units_dir = %q
state_dir = %q
log_dir = %q

[hotfolder]
min_free_mib = 0

[catalog]
base_url = %q

[workflow]
template_id = %d
service_user = %q

[scheduler]
start_delay_seconds = 0

[logging]
level = "error"
`,
		cfg.Paths.HotfolderDir,
		cfg.Paths.UnitsDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Catalog.BaseURL,
		cfg.Workflow.TemplateID,
		cfg.Workflow.ServiceUser,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeTemplateFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "template.toml")
	if err := os.WriteFile(path, []byte(testsupport.BasicTemplate(`ls ../ > started.txt`)), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
