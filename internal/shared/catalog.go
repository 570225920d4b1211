package shared

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
)

// SignTypesKey is the store key holding the sign-type catalog.
const SignTypesKey = "signTypes"

var (
	ErrDuplicateCode  = errors.New("shared: duplicate sign type code")
	ErrUnknownCode    = errors.New("shared: unknown sign type code")
	ErrDuplicateField = errors.New("shared: duplicate text field")
	ErrUnknownField   = errors.New("shared: unknown text field")
)

// SyncEmitter dispatches sync events. The router implements it.
type SyncEmitter interface {
	EmitSyncEvent(eventType string, payload any, source string) eventbridge.DispatchReport
}

// Catalog is the typed view of the sign-type collection in a Store. It keeps
// codes unique and announces every edit as a signType:* sync event. Edits
// go through Store.Update, so nothing is locked while events are delivered.
type Catalog struct {
	store   *Store
	emitter SyncEmitter
}

// NewCatalog wraps store. emitter may be nil when no module needs notifying.
func NewCatalog(store *Store, emitter SyncEmitter) *Catalog {
	return &Catalog{store: store, emitter: emitter}
}

// List returns copies of every sign type in insertion order.
func (c *Catalog) List() []domain.SignTypeDescriptor {
	v, ok := c.store.Get(SignTypesKey)
	if !ok {
		return nil
	}
	list, _ := v.([]domain.SignTypeDescriptor)
	return list
}

// Get returns the sign type with code.
func (c *Catalog) Get(code string) (domain.SignTypeDescriptor, bool) {
	for _, d := range c.List() {
		if d.Code == code {
			return d, true
		}
	}
	return domain.SignTypeDescriptor{}, false
}

// Put inserts desc or replaces the entry with the same ID. A code already
// used by a different ID is rejected. A missing ID is generated.
func (c *Catalog) Put(desc domain.SignTypeDescriptor, source string) (domain.SignTypeDescriptor, error) {
	if desc.ID == "" {
		desc.ID = domain.NewID()
	}
	eventType := eventbridge.SignTypeCreated
	err := c.update(source, func(list []domain.SignTypeDescriptor) ([]domain.SignTypeDescriptor, error) {
		idx := -1
		for i, d := range list {
			if d.Code == desc.Code && d.ID != desc.ID {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateCode, desc.Code)
			}
			if d.ID == desc.ID {
				idx = i
			}
		}
		if idx >= 0 {
			list[idx] = desc.Clone()
			eventType = eventbridge.SignTypeUpdated
			return list, nil
		}
		return append(list, desc.Clone()), nil
	})
	if err != nil {
		return domain.SignTypeDescriptor{}, err
	}
	c.emit(eventType, map[string]any{"code": desc.Code, "signType": desc}, source)
	return desc, nil
}

// Remove deletes the sign type with code.
func (c *Catalog) Remove(code, source string) bool {
	var removed domain.SignTypeDescriptor
	err := c.update(source, func(list []domain.SignTypeDescriptor) ([]domain.SignTypeDescriptor, error) {
		idx := slices.IndexFunc(list, func(d domain.SignTypeDescriptor) bool { return d.Code == code })
		if idx < 0 {
			return nil, ErrUnknownCode
		}
		removed = list[idx]
		return slices.Delete(list, idx, idx+1), nil
	})
	if err != nil {
		return false
	}
	c.emit(eventbridge.SignTypeDeleted, map[string]any{"code": code, "signType": removed}, source)
	return true
}

// AddField appends field to the sign type with code.
func (c *Catalog) AddField(code string, field domain.TextField, source string) error {
	return c.editFields(code, source, eventbridge.SignTypeFieldAdded, field.Name, func(d *domain.SignTypeDescriptor) error {
		if d.HasField(field.Name) {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, code, field.Name)
		}
		d.TextFields = append(d.TextFields, field)
		return nil
	})
}

// RemoveField drops the named field from the sign type with code.
func (c *Catalog) RemoveField(code, name, source string) error {
	return c.editFields(code, source, eventbridge.SignTypeFieldRemoved, name, func(d *domain.SignTypeDescriptor) error {
		idx := slices.IndexFunc(d.TextFields, func(f domain.TextField) bool { return f.Name == name })
		if idx < 0 {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, code, name)
		}
		d.TextFields = slices.Delete(d.TextFields, idx, idx+1)
		return nil
	})
}

func (c *Catalog) editFields(code, source, eventType, field string, edit func(*domain.SignTypeDescriptor) error) error {
	var updated domain.SignTypeDescriptor
	err := c.update(source, func(list []domain.SignTypeDescriptor) ([]domain.SignTypeDescriptor, error) {
		idx := slices.IndexFunc(list, func(d domain.SignTypeDescriptor) bool { return d.Code == code })
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCode, code)
		}
		if err := edit(&list[idx]); err != nil {
			return nil, err
		}
		updated = list[idx]
		return list, nil
	})
	if err != nil {
		return err
	}
	c.emit(eventType, map[string]any{"code": code, "field": field, "signType": updated}, source)
	return nil
}

// Replace swaps the whole collection, rejecting duplicate codes. No sync
// events are emitted; the store's change broadcast still fires.
func (c *Catalog) Replace(list []domain.SignTypeDescriptor, source string) error {
	seen := make(map[string]struct{}, len(list))
	for _, d := range list {
		if _, dup := seen[d.Code]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateCode, d.Code)
		}
		seen[d.Code] = struct{}{}
	}
	c.store.Set(SignTypesKey, list, source)
	return nil
}

func (c *Catalog) update(source string, fn func([]domain.SignTypeDescriptor) ([]domain.SignTypeDescriptor, error)) error {
	return c.store.Update(SignTypesKey, func(current any, _ bool) (any, error) {
		list, _ := current.([]domain.SignTypeDescriptor)
		return fn(list)
	}, source)
}

func (c *Catalog) emit(eventType string, payload map[string]any, source string) {
	if c.emitter == nil {
		return
	}
	c.emitter.EmitSyncEvent(eventType, payload, source)
}
