package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"otb/internal/config"
	"otb/internal/logging"
	"otb/internal/project"
	"otb/internal/testsupport"
	"otb/internal/tour"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *project.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("OTB_PROJECTS_DIR", "")
	t.Setenv("OTB_ROUTING_URL", "")
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      project.New(cfg.Paths.ProjectsDir, cfg.Export.MetadataSuffix, logging.NewNop()),
		configPath: configPath,
		baseDir:    base,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, nil, append([]string{"--config", e.configPath}, args...))
}

func (e *cliTestEnv) runWithInput(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, strings.NewReader(input), append([]string{"--config", e.configPath}, args...))
}

// seedProject creates a project with two assets and one tour referencing
// them, returning the tour id.
func (e *cliTestEnv) seedProject(t *testing.T, name string) string {
	t.Helper()
	if err := e.store.CreateProject(name); err != nil {
		t.Fatalf("create project: %v", err)
	}
	assets, err := e.store.AssetsDir(name)
	if err != nil {
		t.Fatalf("assets dir: %v", err)
	}
	testsupport.WriteAsset(t, assets, "cover.jpg", "cover-bytes")
	testsupport.WriteAsset(t, assets, "cover.jpg"+config.Default().Export.MetadataSuffix, `{"alt":"Cover","attrib":null}`)
	testsupport.WriteAsset(t, assets, "intro.mp3", "intro-audio")

	tr := testsupport.NewTour("Old Town", "cover.jpg")
	testsupport.AddStop(tr, "Square", "intro.mp3", "", "cover.jpg")
	testsupport.AddControl(tr)
	id, err := e.store.CreateTour(name, tr)
	if err != nil {
		t.Fatalf("create tour: %v", err)
	}
	return id
}

func runCLI(t *testing.T, stdin io.Reader, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func readTour(t *testing.T, data string) *tour.Tour {
	t.Helper()
	tr, err := tour.Decode([]byte(strings.TrimSpace(data)))
	if err != nil {
		t.Fatalf("decode tour output: %v\n%s", err, data)
	}
	return tr
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
