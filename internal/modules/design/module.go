package design

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/logging"
	"github.com/kingrea/slayer-suite/internal/module"
)

const (
	moduleID      = "design"
	moduleVersion = "1.0.0"

	QueryKind     = "kind"
	KindTemplate  = "template"
	KindTemplates = "templates"

	dataTemplates = "templates"
)

var (
	ErrUnknownTemplate = errors.New("design: unknown template")
	ErrUnknownQuery    = errors.New("design: unsupported query")
)

// Emitter announces template edits. The router implements it.
type Emitter interface {
	EmitSyncEvent(eventType string, payload any, source string) eventbridge.DispatchReport
}

// SignTypes looks up catalog entries. shared.Catalog implements it.
type SignTypes interface {
	Get(code string) (domain.SignTypeDescriptor, bool)
}

// Registrar is the registry surface Register needs.
type Registrar interface {
	Register(ctx context.Context, name string, candidate any) error
}

// Option customizes the module.
type Option func(*DesignModule)

// WithSignTypes enables field diagnostics against the shared catalog.
func WithSignTypes(types SignTypes) Option {
	return func(m *DesignModule) { m.types = types }
}

// WithLogger injects a logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *DesignModule) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// DesignModule owns the design templates.
type DesignModule struct {
	module.Base
	emitter Emitter
	types   SignTypes
	logger  logging.Logger

	mu          sync.Mutex
	templates   map[string]map[string]any
	diagnostics map[string][]domain.FieldMismatch
}

// Register installs a new design editor into reg.
func Register(ctx context.Context, reg Registrar, emitter Emitter, opts ...Option) (*DesignModule, error) {
	m := New(emitter, opts...)
	if err := reg.Register(ctx, moduleID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// New constructs the editor.
func New(emitter Emitter, opts ...Option) *DesignModule {
	m := &DesignModule{
		Base:        module.NewBase(moduleID, moduleVersion),
		emitter:     emitter,
		logger:      logging.Nop(),
		templates:   map[string]map[string]any{},
		diagnostics: map[string][]domain.FieldMismatch{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// ExportData implements module.Exporter.
func (m *DesignModule) ExportData() (module.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	templates := make(map[string]any, len(m.templates))
	for code, rec := range m.templates {
		templates[code] = domain.CloneMap(rec)
	}
	return module.Data{dataTemplates: templates}, nil
}

// ImportData implements module.Importer.
func (m *DesignModule) ImportData(data module.Data) error {
	templates := map[string]map[string]any{}
	switch raw := data[dataTemplates].(type) {
	case nil:
	case map[string]any:
		for code, item := range raw {
			rec, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("design: template %q is %T, want object", code, item)
			}
			templates[code] = domain.CloneMap(rec)
		}
	default:
		return fmt.Errorf("design: templates is %T, want object", raw)
	}
	m.mu.Lock()
	m.templates = templates
	m.diagnostics = map[string][]domain.FieldMismatch{}
	m.mu.Unlock()
	m.refreshAllDiagnostics()
	return nil
}

func (m *DesignModule) refreshAllDiagnostics() {
	for _, code := range m.Codes() {
		m.refreshDiagnostics(code)
	}
}

// Codes lists the sign-type codes that have a template, sorted.
func (m *DesignModule) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.templates))
	for code := range m.templates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Template returns the template for code.
func (m *DesignModule) Template(code string) (domain.DesignTemplate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.templates[code]
	if !ok {
		return domain.DesignTemplate{}, false
	}
	return domain.TemplateFromLegacy(rec), true
}

// PutTemplate stores tmpl for code and announces it.
func (m *DesignModule) PutTemplate(code string, tmpl domain.DesignTemplate) domain.DesignTemplate {
	if tmpl.ID == "" {
		tmpl.ID = domain.NewID()
	}
	tmpl.SignTypeCode = code
	m.mu.Lock()
	_, existed := m.templates[code]
	m.templates[code] = tmpl.ToLegacy()
	m.mu.Unlock()
	m.refreshDiagnostics(code)

	eventType := eventbridge.TemplateCreated
	if existed {
		eventType = eventbridge.TemplateUpdated
	}
	m.emit(eventType, code, &tmpl)
	return tmpl
}

// RemoveTemplate drops the template for code.
func (m *DesignModule) RemoveTemplate(code string) bool {
	if !m.drop(code) {
		return false
	}
	m.emit(eventbridge.TemplateDeleted, code, nil)
	return true
}

func (m *DesignModule) drop(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[code]; !ok {
		return false
	}
	delete(m.templates, code)
	delete(m.diagnostics, code)
	return true
}

// Diagnostics returns the placements of code's template that reference
// fields its sign type does not declare. They are advisory only.
func (m *DesignModule) Diagnostics(code string) []domain.FieldMismatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.FieldMismatch(nil), m.diagnostics[code]...)
}

func (m *DesignModule) refreshDiagnostics(code string) {
	if m.types == nil {
		return
	}
	desc, ok := m.types.Get(code)
	tmpl, has := m.Template(code)
	var found []domain.FieldMismatch
	if ok && has {
		found = domain.CheckTemplateFields(desc, tmpl)
	}
	m.mu.Lock()
	if len(found) == 0 {
		delete(m.diagnostics, code)
	} else {
		m.diagnostics[code] = found
	}
	m.mu.Unlock()
	for _, mismatch := range found {
		m.logger.Debugf("design: %s template %s", code, mismatch)
	}
}

// HandleDataRequest implements module.DataRequestHandler.
func (m *DesignModule) HandleDataRequest(_ context.Context, _ string, q module.Query) (any, error) {
	switch q[QueryKind] {
	case KindTemplate:
		code, _ := q["code"].(string)
		tmpl, ok := m.Template(code)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, code)
		}
		return tmpl, nil
	case KindTemplates:
		return m.Codes(), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownQuery, q[QueryKind])
	}
}

// HandleSyncEvent implements module.SyncEventHandler.
func (m *DesignModule) HandleSyncEvent(event eventbridge.Event) error {
	if event.Type == eventbridge.ProjectRestored {
		// The catalog may have been restored after the templates.
		m.refreshAllDiagnostics()
		return nil
	}
	payload, _ := event.Payload.(map[string]any)
	code, _ := payload["code"].(string)
	if code == "" {
		return nil
	}
	switch event.Type {
	case eventbridge.SignTypeDeleted:
		if m.drop(code) {
			m.logger.Infof("design: dropped template for deleted sign type %s", code)
		}
	case eventbridge.SignTypeUpdated, eventbridge.SignTypeFieldAdded, eventbridge.SignTypeFieldRemoved:
		m.refreshDiagnostics(code)
	}
	return nil
}

func (m *DesignModule) emit(eventType, code string, tmpl *domain.DesignTemplate) {
	if m.emitter == nil {
		return
	}
	payload := map[string]any{"code": code}
	if tmpl != nil {
		payload["template"] = tmpl.Clone()
	}
	m.emitter.EmitSyncEvent(eventType, payload, moduleID)
}
