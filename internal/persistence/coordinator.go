package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/logging"
	"github.com/kingrea/slayer-suite/internal/module"
)

// Modules is the registry view the coordinator exports from and imports into.
type Modules interface {
	Entries() []module.Entry
	Lookup(name string) (module.Module, bool)
}

// Failure names a module whose import failed.
type Failure struct {
	Module string `json:"module"`
	Error  string `json:"error"`
}

// ImportResult aggregates a whole-project import.
type ImportResult struct {
	Success []string  `json:"success"`
	Failed  []Failure `json:"failed"`
	Skipped []string  `json:"skipped"`
}

// Coordinator drives whole-project export and import through the registry
// and a background worker.
type Coordinator struct {
	modules Modules
	client  *Client
	logger  logging.Logger
	now     func() time.Time
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// CoordinatorWithLogger injects a logger.
func CoordinatorWithLogger(logger logging.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CoordinatorWithClock overrides the saved timestamp source.
func CoordinatorWithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator wires modules to client. client may be nil when only the
// in-memory Export/Import operations are needed.
func NewCoordinator(modules Modules, client *Client, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		modules: modules,
		client:  client,
		logger:  logging.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ExportProject asks every registered module for its data. A module whose
// export fails is recorded inactive with no data and the error message; the
// others are unaffected.
func (c *Coordinator) ExportProject(projectName string) Document {
	doc := Document{
		Type:        DocumentType,
		Version:     DocumentVersion,
		Saved:       c.now().UTC(),
		ProjectName: projectName,
		Apps:        map[string]AppEntry{},
	}
	for _, entry := range c.modules.Entries() {
		var data module.Data
		err := module.SafeCall(entry.Name+".ExportData", func() error {
			var exportErr error
			data, exportErr = entry.Module.ExportData()
			return exportErr
		})
		if err != nil {
			c.logger.Warnf("export %s failed: %v", entry.Name, err)
			doc.Apps[entry.Name] = AppEntry{Version: entry.Version, Active: false, Data: nil, Error: err.Error()}
			continue
		}
		doc.Apps[entry.Name] = AppEntry{
			Version: entry.Version,
			Active:  entry.State == module.StateActive,
			Data:    domain.CloneMap(data),
		}
	}
	return doc
}

// ImportProject feeds each entry to its module. Entries for unregistered
// modules, and inactive entries without data, are skipped. One module's
// failure does not stop the rest.
func (c *Coordinator) ImportProject(doc Document) ImportResult {
	result := ImportResult{Success: []string{}, Failed: []Failure{}, Skipped: []string{}}
	for _, name := range doc.AppNames() {
		entry := doc.Apps[name]
		mod, ok := c.modules.Lookup(name)
		if !ok || (!entry.Active && entry.Data == nil) {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		data := domain.CloneMap(entry.Data)
		err := module.SafeCall(name+".ImportData", func() error { return mod.ImportData(data) })
		if err != nil {
			c.logger.Warnf("import %s failed: %v", name, err)
			result.Failed = append(result.Failed, Failure{Module: name, Error: err.Error()})
			continue
		}
		result.Success = append(result.Success, name)
	}
	return result
}

// Save exports the project and writes it to path through the worker.
func (c *Coordinator) Save(ctx context.Context, path, projectName string) (Document, error) {
	if c.client == nil {
		return Document{}, fmt.Errorf("persistence: save: %w", ErrWorkerClosed)
	}
	doc := c.ExportProject(projectName)
	data, err := c.client.Serialize(ctx, doc)
	if err != nil {
		return Document{}, fmt.Errorf("persistence: save %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Document{}, fmt.Errorf("persistence: save %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Document{}, fmt.Errorf("persistence: save %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Document{}, fmt.Errorf("persistence: save %s: %w", path, err)
	}
	c.logger.Infof("saved %s (%d bytes, %d modules)", path, len(data), len(doc.Apps))
	return doc, nil
}

// Load reads path through the worker and imports it.
func (c *Coordinator) Load(ctx context.Context, path string) (Document, ImportResult, error) {
	if c.client == nil {
		return Document{}, ImportResult{}, fmt.Errorf("persistence: load: %w", ErrWorkerClosed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, ImportResult{}, fmt.Errorf("persistence: load %s: %w", path, err)
	}
	doc, err := c.client.Deserialize(ctx, data)
	if err != nil {
		return Document{}, ImportResult{}, fmt.Errorf("persistence: load %s: %w", path, err)
	}
	result := c.ImportProject(doc)
	c.logger.Infof("loaded %s: %d imported, %d failed, %d skipped", path, len(result.Success), len(result.Failed), len(result.Skipped))
	return doc, result, nil
}
