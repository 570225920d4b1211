// internal/config/config.go
//
// This package handles configuration and the .slayer directory structure.
// Every project opened with the suite gets a .slayer/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// SlayerDir is the name of the directory we create in each project
	SlayerDir = ".slayer"

	DefaultProjectName       = "Untitled Project"
	DefaultUndoCapacity      = 50
	DefaultCompressThreshold = 1 << 20
	DefaultChunkSize         = 64 << 10
	DefaultWorkerTimeout     = 30 * time.Second
	DefaultLogLevel          = "info"
)

const defaultProjectConfigYAML = `# slayer suite project configuration
version: 1

project:
  name: Untitled Project

# Number of snapshots kept by undo/redo. Oldest entries are evicted first.
undo:
  capacity: 50

persistence:
  # Payloads larger than this many bytes are gzip-compressed on save.
  compress_threshold: 1048576
  chunk_size: 65536
  include_progress: true
  worker_timeout: 30s

logging:
  level: info

modules:
  # Module activated when the host starts. Leave empty to start idle.
  initial: mapping
`

// ProjectSection names the project written into saved documents.
type ProjectSection struct {
	Name string `yaml:"name"`
}

// UndoSection configures the snapshot history.
type UndoSection struct {
	Capacity int `yaml:"capacity"`
}

// PersistenceSection configures the serialization worker.
type PersistenceSection struct {
	CompressThreshold int           `yaml:"compress_threshold"`
	ChunkSize         int           `yaml:"chunk_size"`
	IncludeProgress   *bool         `yaml:"include_progress,omitempty"`
	WorkerTimeout     time.Duration `yaml:"worker_timeout"`
}

// LoggingSection configures the structured log file.
type LoggingSection struct {
	Level string `yaml:"level"`
}

// ModulesSection captures host preferences for the registered editors.
type ModulesSection struct {
	Initial string `yaml:"initial,omitempty"`
}

// CatalogSection points at the sign-type catalog plugin directory.
type CatalogSection struct {
	Dir string `yaml:"dir,omitempty"`
}

// ProjectConfig models .slayer/config.yaml.
type ProjectConfig struct {
	Version     int                `yaml:"version"`
	Project     ProjectSection     `yaml:"project"`
	Undo        UndoSection        `yaml:"undo"`
	Persistence PersistenceSection `yaml:"persistence"`
	Logging     LoggingSection     `yaml:"logging"`
	Modules     ModulesSection     `yaml:"modules"`
	Catalog     CatalogSection     `yaml:"catalog"`
}

// envOverrides mirrors the SLAYER_* variables that win over the yaml file.
type envOverrides struct {
	ProjectName       string        `env:"SLAYER_PROJECT_NAME"`
	UndoCapacity      int           `env:"SLAYER_UNDO_CAPACITY"`
	LogLevel          string        `env:"SLAYER_LOG_LEVEL"`
	CompressThreshold int           `env:"SLAYER_COMPRESS_THRESHOLD"`
	ChunkSize         int           `env:"SLAYER_CHUNK_SIZE"`
	WorkerTimeout     time.Duration `env:"SLAYER_WORKER_TIMEOUT"`
	InitialModule     string        `env:"SLAYER_INITIAL_MODULE"`
}

// Config holds the runtime configuration for the suite.
type Config struct {
	// ProjectDir is the directory the suite was opened in
	ProjectDir string

	// SlayerProjectDir is ProjectDir/.slayer
	SlayerProjectDir string

	Project ProjectConfig
}

// InitSlayerDir creates the .slayer directory structure in the given project directory.
//
// Structure created:
// .slayer/
// ├── logs/      <- structured log + session journal
// ├── projects/  <- saved project documents
// └── catalog/   <- sign-type catalog plugins (*.yaml, *.go)
func InitSlayerDir(projectDir string) error {
	slayerDir := filepath.Join(projectDir, SlayerDir)
	dirs := []string{
		filepath.Join(slayerDir, "logs"),
		filepath.Join(slayerDir, "projects"),
		filepath.Join(slayerDir, "catalog"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(slayerDir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
// Values are resolved as defaults < config.yaml < SLAYER_* environment.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		SlayerProjectDir: filepath.Join(projectDir, SlayerDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.Project.normalize(cfg.ProjectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.SlayerProjectDir, "logs")
}

// ProjectsDir returns the directory saved project documents live in
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.SlayerProjectDir, "projects")
}

// CatalogDir returns the sign-type catalog plugin directory
func (c *Config) CatalogDir() string {
	if c.Project.Catalog.Dir != "" {
		return c.Project.Catalog.Dir
	}
	return filepath.Join(c.SlayerProjectDir, "catalog")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.SlayerProjectDir, "config.yaml")
}

// ProjectName returns the configured project name.
func (c *Config) ProjectName() string {
	return c.Project.Project.Name
}

// DefaultProjectPath is where the host saves the project when no path is given.
func (c *Config) DefaultProjectPath() string {
	return filepath.Join(c.ProjectsDir(), slugify(c.ProjectName())+".slayer.json")
}

// IncludeProgress reports whether the worker should stream progress notifications.
func (c *Config) IncludeProgress() bool {
	flag := c.Project.Persistence.IncludeProgress
	return flag == nil || *flag
}

// SetProjectName updates the project name and persists it to .slayer/config.yaml.
func (c *Config) SetProjectName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("config: project name is required")
	}
	c.Project.Project.Name = name
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	p := &c.Project
	if name := strings.TrimSpace(overrides.ProjectName); name != "" {
		p.Project.Name = name
	}
	if overrides.UndoCapacity > 0 {
		p.Undo.Capacity = overrides.UndoCapacity
	}
	if level := strings.TrimSpace(overrides.LogLevel); level != "" {
		p.Logging.Level = level
	}
	if overrides.CompressThreshold > 0 {
		p.Persistence.CompressThreshold = overrides.CompressThreshold
	}
	if overrides.ChunkSize > 0 {
		p.Persistence.ChunkSize = overrides.ChunkSize
	}
	if overrides.WorkerTimeout > 0 {
		p.Persistence.WorkerTimeout = overrides.WorkerTimeout
	}
	if initial := strings.TrimSpace(overrides.InitialModule); initial != "" {
		p.Modules.Initial = initial
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Project.Name) == "" {
		pc.Project.Name = DefaultProjectName
	}
	if pc.Undo.Capacity == 0 {
		pc.Undo.Capacity = DefaultUndoCapacity
	}
	if pc.Persistence.CompressThreshold == 0 {
		pc.Persistence.CompressThreshold = DefaultCompressThreshold
	}
	if pc.Persistence.ChunkSize == 0 {
		pc.Persistence.ChunkSize = DefaultChunkSize
	}
	if pc.Persistence.WorkerTimeout == 0 {
		pc.Persistence.WorkerTimeout = DefaultWorkerTimeout
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = DefaultLogLevel
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Project.Name = strings.TrimSpace(pc.Project.Name)
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Modules.Initial = strings.TrimSpace(pc.Modules.Initial)
	pc.Catalog.Dir = resolvePath(base, pc.Catalog.Dir)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}
	if pc.Undo.Capacity < 1 {
		return fmt.Errorf("undo.capacity must be >= 1")
	}
	if pc.Persistence.CompressThreshold < 0 {
		return fmt.Errorf("persistence.compress_threshold must be >= 0")
	}
	if pc.Persistence.ChunkSize < 1 {
		return fmt.Errorf("persistence.chunk_size must be >= 1")
	}
	if pc.Persistence.WorkerTimeout < 0 {
		return fmt.Errorf("persistence.worker_timeout must be >= 0")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "project"
	}
	return slug
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.SlayerProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure slayer dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
