package mapping

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/module"
)

const (
	moduleID      = "mapping"
	moduleVersion = "1.2.0"

	QueryKind = "kind"
	KindSigns = "signs"
	KindSign  = "sign"

	dataSigns   = "signs"
	payloadID   = "id"
	payloadSign = "sign"

	legacyOverflow = "messageOverflow"
)

var (
	ErrUnknownSign  = errors.New("mapping: unknown sign")
	ErrUnknownQuery = errors.New("mapping: unsupported query")
)

// Emitter announces edits to the other modules. The router implements it.
type Emitter interface {
	EmitSyncEvent(eventType string, payload any, source string) eventbridge.DispatchReport
}

// Registrar is the registry surface Register needs.
type Registrar interface {
	Register(ctx context.Context, name string, candidate any) error
}

// MappingModule keeps sign placements as legacy flat records.
type MappingModule struct {
	module.Base
	emitter Emitter

	mu       sync.Mutex
	records  []map[string]any
	orphaned map[string]struct{}
}

// Register installs a new mapping editor into reg.
func Register(ctx context.Context, reg Registrar, emitter Emitter) (*MappingModule, error) {
	m := New(emitter)
	if err := reg.Register(ctx, moduleID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// New constructs the editor. emitter may be nil in isolation.
func New(emitter Emitter) *MappingModule {
	return &MappingModule{
		Base:     module.NewBase(moduleID, moduleVersion),
		emitter:  emitter,
		orphaned: map[string]struct{}{},
	}
}

// ExportData implements module.Exporter.
func (m *MappingModule) ExportData() (module.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	signs := make([]any, len(m.records))
	for i, rec := range m.records {
		signs[i] = domain.CloneMap(rec)
	}
	return module.Data{dataSigns: signs}, nil
}

// ImportData implements module.Importer. Nil data clears the editor.
func (m *MappingModule) ImportData(data module.Data) error {
	records, err := recordsFrom(data[dataSigns])
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records = records
	m.mu.Unlock()
	return nil
}

func recordsFrom(raw any) ([]map[string]any, error) {
	switch list := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		out := make([]map[string]any, len(list))
		for i, rec := range list {
			out[i] = domain.CloneMap(rec)
		}
		return out, nil
	case []any:
		out := make([]map[string]any, 0, len(list))
		for i, item := range list {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("mapping: sign %d is %T, want object", i, item)
			}
			out = append(out, domain.CloneMap(rec))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("mapping: signs is %T, want list", raw)
	}
}

// Signs returns every sign in placement order.
func (m *MappingModule) Signs() []domain.SignInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SignInstance, len(m.records))
	for i, rec := range m.records {
		out[i] = domain.SignInstanceFromLegacy(rec)
	}
	return out
}

// Sign returns the sign with id.
func (m *MappingModule) Sign(id string) (domain.SignInstance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return domain.SignInstance{}, false
	}
	return domain.SignInstanceFromLegacy(m.records[idx]), true
}

func (m *MappingModule) indexOf(id string) int {
	return slices.IndexFunc(m.records, func(rec map[string]any) bool {
		recID, _ := rec[payloadID].(string)
		return recID == id
	})
}

// AddSign places sign, generating an id when it has none.
func (m *MappingModule) AddSign(sign domain.SignInstance) domain.SignInstance {
	if sign.ID == "" {
		sign.ID = domain.NewID()
	}
	if sign.Location.Page == 0 {
		sign.Location.Page = domain.DefaultPage
	}
	m.mu.Lock()
	m.records = append(m.records, sign.ToLegacy())
	m.mu.Unlock()
	m.emit(eventbridge.SignCreated, sign.ID, &sign, nil)
	return sign
}

// UpdateSign replaces the sign with the same id. Keys of the stored record
// that the canonical form does not carry are kept; removed messages are not.
func (m *MappingModule) UpdateSign(sign domain.SignInstance) error {
	m.mu.Lock()
	idx := m.indexOf(sign.ID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSign, sign.ID)
	}
	merged := m.records[idx]
	for key := range domain.SignInstanceFromLegacy(merged).Messages {
		if _, still := sign.Messages[key]; !still {
			delete(merged, key)
		}
	}
	delete(merged, legacyOverflow)
	for key, value := range sign.ToLegacy() {
		merged[key] = value
	}
	m.mu.Unlock()
	m.emit(eventbridge.SignUpdated, sign.ID, &sign, nil)
	return nil
}

// SetMessage writes text into field. Fields the sign type does not declare
// are allowed.
func (m *MappingModule) SetMessage(id, field, text string) error {
	return m.edit(id, eventbridge.SignMessageChanged, map[string]any{"field": field, "value": text},
		func(s *domain.SignInstance) { s.Messages[field] = text })
}

// SetNotes replaces the sign's notes.
func (m *MappingModule) SetNotes(id, notes string) error {
	return m.edit(id, eventbridge.SignNotesChanged, map[string]any{"value": notes},
		func(s *domain.SignInstance) { s.Notes = notes })
}

// Move relocates the sign.
func (m *MappingModule) Move(id string, loc domain.Location) error {
	return m.edit(id, eventbridge.SignUpdated, nil, func(s *domain.SignInstance) {
		if loc.Page == 0 {
			loc.Page = s.Location.Page
		}
		s.Location = loc
	})
}

// SetProduced records whether the sign has been manufactured.
func (m *MappingModule) SetProduced(id string, produced bool) error {
	return m.edit(id, eventbridge.SignUpdated, map[string]any{"field": "produced", "value": produced},
		func(s *domain.SignInstance) { s.Produced = produced })
}

// SetInstalled records whether the sign is on the wall.
func (m *MappingModule) SetInstalled(id string, installed bool) error {
	return m.edit(id, eventbridge.SignUpdated, map[string]any{"field": "installed", "value": installed},
		func(s *domain.SignInstance) { s.Installed = installed })
}

func (m *MappingModule) edit(id, eventType string, extra map[string]any, fn func(*domain.SignInstance)) error {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSign, id)
	}
	sign := domain.SignInstanceFromLegacy(m.records[idx])
	fn(&sign)
	m.records[idx] = sign.ToLegacy()
	m.mu.Unlock()
	m.emit(eventType, id, &sign, extra)
	return nil
}

// DeleteSign removes the sign with id.
func (m *MappingModule) DeleteSign(id string) bool {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	m.records = slices.Delete(m.records, idx, idx+1)
	m.mu.Unlock()
	m.emit(eventbridge.SignDeleted, id, nil, nil)
	return true
}

// Orphans returns the signs whose type was deleted from the catalog.
func (m *MappingModule) Orphans() []domain.SignInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SignInstance
	for _, rec := range m.records {
		sign := domain.SignInstanceFromLegacy(rec)
		if _, gone := m.orphaned[sign.TypeCode]; gone {
			out = append(out, sign)
		}
	}
	return out
}

// OrphanedCodes lists deleted sign-type codes still referenced, sorted.
func (m *MappingModule) OrphanedCodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.orphaned))
	for code := range m.orphaned {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// HandleDataRequest implements module.DataRequestHandler.
func (m *MappingModule) HandleDataRequest(_ context.Context, _ string, q module.Query) (any, error) {
	switch q[QueryKind] {
	case KindSigns:
		return m.Signs(), nil
	case KindSign:
		id, _ := q[payloadID].(string)
		sign, ok := m.Sign(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSign, id)
		}
		return sign, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownQuery, q[QueryKind])
	}
}

// HandleSyncEvent implements module.SyncEventHandler.
func (m *MappingModule) HandleSyncEvent(event eventbridge.Event) error {
	payload, _ := event.Payload.(map[string]any)
	code, _ := payload["code"].(string)
	if code == "" {
		return nil
	}
	switch event.Type {
	case eventbridge.SignTypeDeleted:
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, rec := range m.records {
			if rec["type"] == code {
				m.orphaned[code] = struct{}{}
				break
			}
		}
	case eventbridge.SignTypeCreated:
		m.mu.Lock()
		delete(m.orphaned, code)
		m.mu.Unlock()
	}
	return nil
}

func (m *MappingModule) emit(eventType, id string, sign *domain.SignInstance, extra map[string]any) {
	if m.emitter == nil {
		return
	}
	payload := map[string]any{payloadID: id}
	if sign != nil {
		payload[payloadSign] = sign.Clone()
	}
	for k, v := range extra {
		payload[k] = v
	}
	m.emitter.EmitSyncEvent(eventType, payload, moduleID)
}
