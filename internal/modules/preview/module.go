package preview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/logging"
	"github.com/kingrea/slayer-suite/internal/module"
)

const (
	moduleID      = "preview"
	moduleVersion = "1.0.0"

	// SourceModule is the editor the sign projection is pulled from.
	SourceModule = "mapping"
)

var (
	ErrSourceUnavailable = errors.New("preview: sign source unavailable")
	ErrReadOnly          = errors.New("preview: no status writer")
)

// Requester asks another module for data. The router implements it.
type Requester interface {
	RequestData(ctx context.Context, from, target string, q module.Query) (any, bool)
}

// Registrar is the registry surface Register needs.
type Registrar interface {
	Register(ctx context.Context, name string, candidate any) error
}

// StatusWriter records production flags on the canonical sign. The mapping
// editor implements it.
type StatusWriter interface {
	SetProduced(id string, produced bool) error
	SetInstalled(id string, installed bool) error
}

// Status is the production state of one sign.
type Status struct {
	Installed bool `json:"installed"`
	Produced  bool `json:"produced"`
}

// Row pairs a sign with its status.
type Row struct {
	Sign domain.SignInstance
	Status
}

// Summary counts signs by status.
type Summary struct {
	Total     int
	Produced  int
	Installed int
}

// Option customizes the module.
type Option func(*PreviewModule)

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *PreviewModule) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStatusWriter lets MarkProduced and MarkInstalled write through to
// the sign owner.
func WithStatusWriter(w StatusWriter) Option {
	return func(m *PreviewModule) { m.writer = w }
}

// PreviewModule is a read-only projection of the mapped signs. Production
// flags belong to the signs; the module only forwards edits to them.
type PreviewModule struct {
	module.Base
	requester Requester
	writer    StatusWriter
	logger    logging.Logger

	mu    sync.Mutex
	signs []domain.SignInstance
}

// Register installs a new preview editor into reg.
func Register(ctx context.Context, reg Registrar, requester Requester, opts ...Option) (*PreviewModule, error) {
	m := New(requester, opts...)
	if err := reg.Register(ctx, moduleID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// New constructs the editor.
func New(requester Requester, opts ...Option) *PreviewModule {
	m := &PreviewModule{
		Base:      module.NewBase(moduleID, moduleVersion),
		requester: requester,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Activate refreshes the projection before marking the module active. A
// missing source is not fatal; the projection stays as it was.
func (m *PreviewModule) Activate(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warnf("preview: %v", err)
	}
	return m.Base.Activate(ctx)
}

// Refresh pulls the full sign list from the source module.
func (m *PreviewModule) Refresh(ctx context.Context) error {
	if m.requester == nil {
		return ErrSourceUnavailable
	}
	result, ok := m.requester.RequestData(ctx, moduleID, SourceModule, module.Query{"kind": "signs"})
	if !ok {
		return ErrSourceUnavailable
	}
	signs, ok := result.([]domain.SignInstance)
	if !ok {
		return fmt.Errorf("preview: %s returned %T", SourceModule, result)
	}
	m.mu.Lock()
	m.signs = signs
	m.mu.Unlock()
	return nil
}

// ExportData implements module.Exporter. The projection is derived from
// the source module, so nothing is persisted.
func (m *PreviewModule) ExportData() (module.Data, error) {
	return module.Data{}, nil
}

// ImportData implements module.Importer. Older documents carried a status
// map here; the flags now travel with the signs and it is ignored.
func (m *PreviewModule) ImportData(module.Data) error {
	return nil
}

// MarkProduced records on the sign whether it has been manufactured.
func (m *PreviewModule) MarkProduced(id string, produced bool) error {
	if m.writer == nil {
		return ErrReadOnly
	}
	return m.writer.SetProduced(id, produced)
}

// MarkInstalled records on the sign whether it is on the wall.
func (m *PreviewModule) MarkInstalled(id string, installed bool) error {
	if m.writer == nil {
		return ErrReadOnly
	}
	return m.writer.SetInstalled(id, installed)
}

// Rows returns the projection sorted by page, then position.
func (m *PreviewModule) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]Row, len(m.signs))
	for i, sign := range m.signs {
		rows[i] = Row{Sign: sign.Clone(), Status: Status{Installed: sign.Installed, Produced: sign.Produced}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Sign.Location, rows[j].Sign.Location
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return rows
}

// Summary counts the projected signs by status.
func (m *PreviewModule) Summary() Summary {
	var s Summary
	for _, row := range m.Rows() {
		s.Total++
		if row.Produced {
			s.Produced++
		}
		if row.Installed {
			s.Installed++
		}
	}
	return s
}

// HandleSyncEvent implements module.SyncEventHandler.
func (m *PreviewModule) HandleSyncEvent(event eventbridge.Event) error {
	payload, _ := event.Payload.(map[string]any)
	id, _ := payload["id"].(string)
	switch event.Type {
	case eventbridge.ProjectRestored:
		return m.Refresh(context.Background())
	case eventbridge.SignDeleted:
		m.mu.Lock()
		m.signs = slices.DeleteFunc(m.signs, func(s domain.SignInstance) bool { return s.ID == id })
		m.mu.Unlock()
	case eventbridge.SignCreated, eventbridge.SignUpdated, eventbridge.SignMessageChanged, eventbridge.SignNotesChanged:
		sign, ok := payload["sign"].(domain.SignInstance)
		if !ok {
			return fmt.Errorf("preview: %s without sign", event.Type)
		}
		m.mu.Lock()
		if idx := slices.IndexFunc(m.signs, func(s domain.SignInstance) bool { return s.ID == sign.ID }); idx >= 0 {
			m.signs[idx] = sign
		} else {
			m.signs = append(m.signs, sign)
		}
		m.mu.Unlock()
	}
	return nil
}
