// Package suite builds the explicit context object the host passes to every
// component: one registry, one router, one shared store, one undo history
// and one persistence coordinator per open project.
package suite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/slayer-suite/internal/config"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/logbook"
	"github.com/kingrea/slayer-suite/internal/logging"
	"github.com/kingrea/slayer-suite/internal/module"
	"github.com/kingrea/slayer-suite/internal/persistence"
	"github.com/kingrea/slayer-suite/internal/shared"
	"github.com/kingrea/slayer-suite/internal/undo"
)

// Source names the suite itself when it writes to the store.
const Source = "suite"

// Settings are the tunables the suite is built from.
type Settings struct {
	ProjectName       string
	UndoCapacity      int
	CompressThreshold int
	ChunkSize         int
	IncludeProgress   bool
	WorkerTimeout     time.Duration
	// AutoCapture records an undo entry after every sync event and every
	// shared-store change outside the sign-type catalog.
	AutoCapture bool
}

// DefaultSettings mirrors the config defaults.
func DefaultSettings() Settings {
	return Settings{
		ProjectName:       config.DefaultProjectName,
		UndoCapacity:      config.DefaultUndoCapacity,
		CompressThreshold: config.DefaultCompressThreshold,
		ChunkSize:         config.DefaultChunkSize,
		IncludeProgress:   true,
		WorkerTimeout:     config.DefaultWorkerTimeout,
		AutoCapture:       true,
	}
}

// SettingsFromConfig reads the persisted project configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	p := cfg.Project
	s.ProjectName = cfg.ProjectName()
	s.UndoCapacity = p.Undo.Capacity
	s.CompressThreshold = p.Persistence.CompressThreshold
	s.ChunkSize = p.Persistence.ChunkSize
	s.IncludeProgress = cfg.IncludeProgress()
	s.WorkerTimeout = p.Persistence.WorkerTimeout
	return s
}

// Option customizes construction.
type Option func(*options)

type options struct {
	cfg      *config.Config
	logger   logging.Logger
	journal  *logbook.Logbook
	progress func(persistence.Progress)
	now      func() time.Time
}

// WithConfig attaches the project configuration used for default paths.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger injects the structured logger shared by every component.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogbook records user-visible actions in the session journal.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(o *options) { o.journal = lb }
}

// WithProgress receives worker progress during save and load.
func WithProgress(fn func(persistence.Progress)) Option {
	return func(o *options) { o.progress = fn }
}

// WithClock overrides timestamps in events, history and saved documents.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Suite carries the shared runtime dependencies of one open project.
type Suite struct {
	Config   *config.Config
	Logger   logging.Logger
	Logbook  *logbook.Logbook
	Registry *module.Registry
	Router   *eventbridge.Router
	Store    *shared.Store
	Catalog  *shared.Catalog
	History  *undo.Manager[Snapshot]
	Projects *persistence.Coordinator

	client *persistence.Client
	subs   []eventbridge.Subscription

	mu          sync.Mutex
	projectName string
	lastAction  string
	closed      bool
}

// New wires every component together and starts the persistence worker.
// Close must be called to stop it.
func New(settings Settings, opts ...Option) (*Suite, error) {
	o := options{logger: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	registry := module.NewRegistry(module.RegistryWithLogger(o.logger))
	router := eventbridge.NewRouter(registry,
		eventbridge.RouterWithLogger(o.logger),
		eventbridge.RouterWithClock(o.now),
	)
	registry.Attach(router)
	store := shared.NewStore(router)

	clientOpts := []persistence.ClientOption{
		persistence.ClientWithLogger(o.logger),
		persistence.ClientWithTimeout(settings.WorkerTimeout),
		persistence.ClientWithOptions(persistence.Options{
			ChunkSize:       settings.ChunkSize,
			Compress:        true,
			IncludeProgress: settings.IncludeProgress,
		}),
	}
	if o.progress != nil {
		clientOpts = append(clientOpts, persistence.ClientWithProgress(o.progress))
	}

	s := &Suite{
		Config:      o.cfg,
		Logger:      o.logger,
		Logbook:     o.journal,
		Registry:    registry,
		Router:      router,
		Store:       store,
		Catalog:     shared.NewCatalog(store, router),
		projectName: strings.TrimSpace(settings.ProjectName),
	}
	if s.projectName == "" {
		s.projectName = config.DefaultProjectName
	}
	history, err := undo.New(s.Snapshot, s.Restore,
		undo.WithCapacity[Snapshot](settings.UndoCapacity),
		undo.WithLogger[Snapshot](o.logger),
		undo.WithClock[Snapshot](o.now),
	)
	if err != nil {
		return nil, fmt.Errorf("suite: %w", err)
	}
	s.History = history
	s.client = persistence.NewClient(settings.CompressThreshold, clientOpts...)
	s.Projects = persistence.NewCoordinator(registry, s.client,
		persistence.CoordinatorWithLogger(o.logger),
		persistence.CoordinatorWithClock(o.now),
	)
	if settings.AutoCapture {
		s.subs = append(s.subs, router.Subscribe(eventbridge.Wildcard, s.autoCapture))
	}
	return s, nil
}

// FromConfig builds a suite from the persisted project configuration.
func FromConfig(cfg *config.Config, opts ...Option) (*Suite, error) {
	return New(SettingsFromConfig(cfg), append([]Option{WithConfig(cfg)}, opts...)...)
}

// Register adds a module through the registry.
func (s *Suite) Register(ctx context.Context, name string, candidate any) error {
	return s.Registry.Register(ctx, name, candidate)
}

// Start activates initial, when given, and records the opening history entry.
func (s *Suite) Start(ctx context.Context, initial string) error {
	if initial = strings.TrimSpace(initial); initial != "" {
		if _, err := s.SwitchTo(ctx, initial); err != nil {
			return err
		}
	}
	_, err := s.Checkpoint("open")
	return err
}

// SwitchTo activates name and journals the outcome.
func (s *Suite) SwitchTo(ctx context.Context, name string) (bool, error) {
	ok, err := s.Registry.SwitchTo(ctx, name)
	if err != nil {
		s.Logbook.Warn(name, "switch failed: %v", err)
		s.setLastAction("switch to " + name + " failed")
		return ok, err
	}
	s.Logbook.Info(name, "activated")
	s.setLastAction("switched to " + name)
	return ok, nil
}

// Checkpoint records the current state under label.
func (s *Suite) Checkpoint(label string) (bool, error) {
	recorded, err := s.History.Capture(label)
	if err != nil {
		s.Logger.Warnf("checkpoint %q: %v", label, err)
		return false, err
	}
	return recorded, nil
}

// Undo steps back one entry and returns the label of the undone action.
func (s *Suite) Undo() (string, bool) {
	label, ok := s.History.Undo()
	if ok {
		s.Logbook.Info(Source, "undo %s", label)
		s.setLastAction("undo " + label)
	}
	return label, ok
}

// Redo re-applies the next entry and returns its label.
func (s *Suite) Redo() (string, bool) {
	label, ok := s.History.Redo()
	if ok {
		s.Logbook.Info(Source, "redo %s", label)
		s.setLastAction("redo " + label)
	}
	return label, ok
}

// ProjectName returns the name written into saved documents.
func (s *Suite) ProjectName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectName
}

// SetProjectName renames the project, persisting it when a config is attached.
func (s *Suite) SetProjectName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("suite: project name is required")
	}
	if s.Config != nil {
		if err := s.Config.SetProjectName(name); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.projectName = name
	s.mu.Unlock()
	return nil
}

// LastAction describes the most recent user-visible action.
func (s *Suite) LastAction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAction
}

func (s *Suite) setLastAction(action string) {
	s.mu.Lock()
	s.lastAction = action
	s.mu.Unlock()
}

// Export builds the project document in memory.
func (s *Suite) Export() persistence.Document {
	return s.Projects.ExportProject(s.ProjectName())
}

// DefaultPath is where Save writes when no path is given.
func (s *Suite) DefaultPath() string {
	if s.Config != nil {
		return s.Config.DefaultProjectPath()
	}
	return filepath.Join(".", "project.slayer.json")
}

// Save writes the project to path, or to DefaultPath when path is empty.
func (s *Suite) Save(ctx context.Context, path string) (persistence.Document, error) {
	if path == "" {
		path = s.DefaultPath()
	}
	doc, err := s.Projects.Save(ctx, path, s.ProjectName())
	if err != nil {
		s.Logbook.Error(Source, "save %s: %v", path, err)
		s.setLastAction("save failed")
		return persistence.Document{}, err
	}
	for name, entry := range doc.Apps {
		if entry.Error != "" {
			s.Logbook.Warn(name, "export failed: %s", entry.Error)
		}
	}
	s.Logbook.Info(Source, "saved %s", path)
	s.setLastAction("saved " + filepath.Base(path))
	return doc, nil
}

// Load reads path into the registered modules. The undo history restarts
// from the loaded state.
func (s *Suite) Load(ctx context.Context, path string) (persistence.ImportResult, error) {
	if path == "" {
		path = s.DefaultPath()
	}
	doc, result, err := s.Projects.Load(ctx, path)
	if err != nil {
		s.Logbook.Error(Source, "load %s: %v", path, err)
		s.setLastAction("load failed")
		return persistence.ImportResult{}, err
	}
	if name := strings.TrimSpace(doc.ProjectName); name != "" {
		s.mu.Lock()
		s.projectName = name
		s.mu.Unlock()
	}
	for _, failure := range result.Failed {
		s.Logbook.Warn(failure.Module, "import failed: %s", failure.Error)
	}
	s.announceRestore("load")
	s.History.Clear()
	if _, err := s.Checkpoint("load"); err != nil {
		return result, err
	}
	s.Logbook.Info(Source, "loaded %s (%d imported, %d failed, %d skipped)",
		path, len(result.Success), len(result.Failed), len(result.Skipped))
	s.setLastAction("loaded " + filepath.Base(path))
	return result, nil
}

// Ping checks the persistence worker.
func (s *Suite) Ping(ctx context.Context) (time.Duration, error) {
	return s.client.Ping(ctx)
}

// Close drops the suite's subscriptions and stops the worker.
func (s *Suite) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	return s.client.Close()
}

func (s *Suite) autoCapture(event eventbridge.Event) error {
	label := event.Type
	switch {
	case eventbridge.IsSyncEventType(event.Type):
	case event.Type == eventbridge.SharedDataChanged:
		change, ok := shared.ParseChange(event.Payload)
		// Catalog edits are followed by their own sync event.
		if !ok || change.Key == shared.SignTypesKey || change.SourceModule == SourceUndo {
			return nil
		}
		label = event.Type + ":" + change.Key
	default:
		return nil
	}
	if event.Source != "" && event.Source != eventbridge.SourceBridge {
		label += " (" + event.Source + ")"
	}
	_, err := s.Checkpoint(label)
	return err
}
