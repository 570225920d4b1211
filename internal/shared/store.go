// Package shared holds cross-module state. The Store is the single
// authoritative owner of every value it holds; modules keep copies.
package shared

import (
	"sort"
	"sync"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/module"
)

// Change is the decoded payload of a sharedData:changed event.
type Change struct {
	Key          string
	Value        any
	OldValue     any
	SourceModule string
}

// ParseChange decodes a sharedData:changed payload.
func ParseChange(payload any) (Change, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return Change{}, false
	}
	key, ok := m["key"].(string)
	if !ok {
		return Change{}, false
	}
	source, _ := m["sourceModule"].(string)
	return Change{Key: key, Value: m["value"], OldValue: m["oldValue"], SourceModule: source}, true
}

// Store is a flat keyed store. Every Set broadcasts sharedData:changed, even
// when the new value equals the old one; suppressing no-op writes is the
// caller's job.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	events module.Broadcaster
}

// NewStore returns an empty store publishing through events.
func NewStore(events module.Broadcaster) *Store {
	return &Store{values: map[string]any{}, events: events}
}

// Get returns a deep copy of the value under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return domain.CloneValue(v), true
}

// Set overwrites key and broadcasts the change. Last write wins.
func (s *Store) Set(key string, value any, sourceModule string) {
	stored := domain.CloneValue(value)
	s.mu.Lock()
	old := s.values[key]
	s.values[key] = stored
	s.mu.Unlock()
	s.notify(key, stored, old, sourceModule)
}

// Update replaces key with the result of fn, which receives a copy of the
// current value. No other write can land between the read and the write.
// The change is broadcast after the store is unlocked, so subscribers may
// write back. An error from fn leaves the store untouched.
func (s *Store) Update(key string, fn func(current any, ok bool) (any, error), sourceModule string) error {
	s.mu.Lock()
	old, ok := s.values[key]
	next, err := fn(domain.CloneValue(old), ok)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	stored := domain.CloneValue(next)
	s.values[key] = stored
	s.mu.Unlock()
	s.notify(key, stored, old, sourceModule)
	return nil
}

// Delete removes key, broadcasting a change with a nil value.
func (s *Store) Delete(key string, sourceModule string) bool {
	s.mu.Lock()
	old, ok := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()
	if ok {
		s.notify(key, nil, old, sourceModule)
	}
	return ok
}

// Keys lists stored keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) notify(key string, value, old any, source string) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(eventbridge.SharedDataChanged, map[string]any{
		"key":          key,
		"value":        value,
		"oldValue":     old,
		"sourceModule": source,
	})
}
