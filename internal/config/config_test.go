package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.ProjectName() != DefaultProjectName {
		t.Fatalf("expected default project name %q, got %q", DefaultProjectName, cfg.ProjectName())
	}
	if cfg.Project.Undo.Capacity != DefaultUndoCapacity {
		t.Fatalf("expected undo capacity %d, got %d", DefaultUndoCapacity, cfg.Project.Undo.Capacity)
	}
	if cfg.Project.Persistence.CompressThreshold != DefaultCompressThreshold {
		t.Fatalf("expected 1 MiB threshold, got %d", cfg.Project.Persistence.CompressThreshold)
	}
	if !cfg.IncludeProgress() {
		t.Fatalf("progress should default to enabled")
	}
	if got, want := cfg.CatalogDir(), filepath.Join(projectDir, SlayerDir, "catalog"); got != want {
		t.Fatalf("catalog dir = %s, want %s", got, want)
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	slayerDir := filepath.Join(projectDir, SlayerDir)
	if err := os.MkdirAll(slayerDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
project:
  name: Riverside Clinic
undo:
  capacity: 12
persistence:
  compress_threshold: 2048
  chunk_size: 512
  include_progress: false
  worker_timeout: 5s
logging:
  level: DEBUG
modules:
  initial: design
catalog:
  dir: shared/catalog
`)
	if err := os.WriteFile(filepath.Join(slayerDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.ProjectName() != "Riverside Clinic" {
		t.Fatalf("unexpected project name %q", cfg.ProjectName())
	}
	if cfg.Project.Undo.Capacity != 12 {
		t.Fatalf("unexpected capacity %d", cfg.Project.Undo.Capacity)
	}
	if cfg.Project.Persistence.WorkerTimeout != 5*time.Second {
		t.Fatalf("unexpected worker timeout %s", cfg.Project.Persistence.WorkerTimeout)
	}
	if cfg.IncludeProgress() {
		t.Fatalf("expected include_progress=false to be honoured")
	}
	if cfg.Project.Logging.Level != "debug" {
		t.Fatalf("expected level to be normalized, got %q", cfg.Project.Logging.Level)
	}
	if cfg.Project.Modules.Initial != "design" {
		t.Fatalf("unexpected initial module %q", cfg.Project.Modules.Initial)
	}
	if got, want := cfg.CatalogDir(), filepath.Join(projectDir, "shared", "catalog"); got != want {
		t.Fatalf("catalog dir = %s, want %s", got, want)
	}
	if got := cfg.DefaultProjectPath(); filepath.Base(got) != "riverside-clinic.slayer.json" {
		t.Fatalf("unexpected default project path %s", got)
	}
}

func TestEnvironmentOverridesYaml(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitSlayerDir(projectDir); err != nil {
		t.Fatalf("init slayer dir: %v", err)
	}
	t.Setenv("SLAYER_PROJECT_NAME", "Env Project")
	t.Setenv("SLAYER_UNDO_CAPACITY", "7")
	t.Setenv("SLAYER_WORKER_TIMEOUT", "2s")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.ProjectName() != "Env Project" {
		t.Fatalf("env override ignored, got %q", cfg.ProjectName())
	}
	if cfg.Project.Undo.Capacity != 7 {
		t.Fatalf("env capacity ignored, got %d", cfg.Project.Undo.Capacity)
	}
	if cfg.Project.Persistence.WorkerTimeout != 2*time.Second {
		t.Fatalf("env timeout ignored, got %s", cfg.Project.Persistence.WorkerTimeout)
	}
}

func TestMalformedEnvironmentFails(t *testing.T) {
	t.Setenv("SLAYER_UNDO_CAPACITY", "lots")
	if _, err := NewConfig(t.TempDir()); err == nil {
		t.Fatalf("expected malformed SLAYER_UNDO_CAPACITY to fail")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	projectDir := t.TempDir()
	slayerDir := filepath.Join(projectDir, SlayerDir)
	if err := os.MkdirAll(slayerDir, 0o755); err != nil {
		t.Fatal(err)
	}
	bad := "version: 1\nundo:\n  capacity: -3\n"
	if err := os.WriteFile(filepath.Join(slayerDir, "config.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfig(projectDir); err == nil || !strings.Contains(err.Error(), "undo.capacity") {
		t.Fatalf("expected undo.capacity validation error, got %v", err)
	}
}

func TestSetProjectNamePersists(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitSlayerDir(projectDir); err != nil {
		t.Fatalf("init slayer dir: %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if err := cfg.SetProjectName("  Harbor Terminal "); err != nil {
		t.Fatalf("SetProjectName: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ProjectName() != "Harbor Terminal" {
		t.Fatalf("expected persisted name, got %q", reloaded.ProjectName())
	}
	if err := cfg.SetProjectName("   "); err == nil {
		t.Fatalf("expected empty name to be rejected")
	}
}
