// Package undo keeps a capped linear history of host-supplied snapshots.
//
// Duplicate detection encodes each snapshot with CBOR core deterministic
// encoding and compares an xxhash digest plus the canonical bytes. That costs
// O(snapshot size) per capture.
package undo

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/kingrea/slayer-suite/internal/logging"
)

// DefaultCapacity bounds the history when no option overrides it.
const DefaultCapacity = 50

// CaptureFunc produces the current state to record.
type CaptureFunc[S any] func() (S, error)

// RestoreFunc puts the host back into a recorded state.
type RestoreFunc[S any] func(S) error

// Info describes one history entry.
type Info struct {
	Label string
	At    time.Time
}

type entry[S any] struct {
	label     string
	at        time.Time
	snapshot  S
	digest    uint64
	canonical []byte
}

// Option customizes a Manager.
type Option[S any] func(*Manager[S])

// WithCapacity caps the history length.
func WithCapacity[S any](n int) Option[S] {
	return func(m *Manager[S]) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithLogger injects a logger for restore failures.
func WithLogger[S any](logger logging.Logger) Option[S] {
	return func(m *Manager[S]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCloner copies a snapshot before it is handed to restore, so the host
// may mutate what it receives.
func WithCloner[S any](clone func(S) S) Option[S] {
	return func(m *Manager[S]) {
		m.clone = clone
	}
}

// WithClock overrides the entry timestamp source.
func WithClock[S any](now func() time.Time) Option[S] {
	return func(m *Manager[S]) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager is a sliding-window undo/redo history. A boolean guard is held
// while capture or restore callbacks run; any Capture, Undo or Redo made
// from inside one of them is ignored.
type Manager[S any] struct {
	mu       sync.Mutex
	capture  CaptureFunc[S]
	restore  RestoreFunc[S]
	clone    func(S) S
	capacity int
	entries  []entry[S]
	index    int
	busy     bool
	enc      cbor.EncMode
	logger   logging.Logger
	now      func() time.Time
}

// New builds a manager around the host's capture and restore callbacks.
func New[S any](capture CaptureFunc[S], restore RestoreFunc[S], opts ...Option[S]) (*Manager[S], error) {
	if capture == nil || restore == nil {
		return nil, fmt.Errorf("undo: capture and restore callbacks are required")
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("undo: cbor mode: %w", err)
	}
	m := &Manager[S]{
		capture:  capture,
		restore:  restore,
		capacity: DefaultCapacity,
		index:    -1,
		enc:      enc,
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Capture records the current state under label. It reports false without
// error when a callback is already running or when the state equals the
// entry at the current index. Entries after the current index are dropped.
func (m *Manager[S]) Capture(label string) (bool, error) {
	if !m.enter() {
		return false, nil
	}
	snap, err := m.capture()
	if err != nil {
		m.leave()
		return false, fmt.Errorf("undo: capture %q: %w", label, err)
	}
	canonical, err := m.enc.Marshal(snap)
	if err != nil {
		m.leave()
		return false, fmt.Errorf("undo: encode %q: %w", label, err)
	}
	digest := xxhash.Sum64(canonical)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if m.index >= 0 {
		current := m.entries[m.index]
		if current.digest == digest && bytes.Equal(current.canonical, canonical) {
			return false, nil
		}
	}
	m.entries = append(m.entries[:m.index+1], entry[S]{
		label:     label,
		at:        m.now(),
		snapshot:  snap,
		digest:    digest,
		canonical: canonical,
	})
	if len(m.entries) > m.capacity {
		m.entries[0] = entry[S]{}
		m.entries = m.entries[1:]
	}
	m.index = len(m.entries) - 1
	return true, nil
}

// Undo restores the previous entry and returns the label of the action
// being undone. It returns false at the oldest entry, while a callback is
// running, or when restore fails; a failed restore leaves the index where it
// was.
func (m *Manager[S]) Undo() (string, bool) {
	return m.step(-1)
}

// Redo re-applies the next entry and returns its label.
func (m *Manager[S]) Redo() (string, bool) {
	return m.step(+1)
}

func (m *Manager[S]) step(delta int) (string, bool) {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return "", false
	}
	from := m.index
	to := from + delta
	if from < 0 || to < 0 || to >= len(m.entries) {
		m.mu.Unlock()
		return "", false
	}
	label := m.entries[from].label
	if delta > 0 {
		label = m.entries[to].label
	}
	snap := m.entries[to].snapshot
	m.index = to
	m.busy = true
	m.mu.Unlock()

	if m.clone != nil {
		snap = m.clone(snap)
	}
	err := m.restore(snap)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		m.index = from
		m.logger.Warnf("undo: restore %q failed: %v", label, err)
		return "", false
	}
	return label, true
}

func (m *Manager[S]) enter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return false
	}
	m.busy = true
	return true
}

func (m *Manager[S]) leave() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// Busy reports whether a capture or restore callback is running.
func (m *Manager[S]) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// CanUndo reports whether Undo would move.
func (m *Manager[S]) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

// CanRedo reports whether Redo would move.
func (m *Manager[S]) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index >= 0 && m.index < len(m.entries)-1
}

// Len returns the number of entries.
func (m *Manager[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the current position, -1 when empty.
func (m *Manager[S]) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Labels lists entry labels oldest first.
func (m *Manager[S]) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.label
	}
	return out
}

// History describes every entry oldest first.
func (m *Manager[S]) History() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, len(m.entries))
	for i, e := range m.entries {
		out[i] = Info{Label: e.label, At: e.at}
	}
	return out
}

// Current returns the snapshot at the current index.
func (m *Manager[S]) Current() (S, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 {
		var zero S
		return zero, false
	}
	return m.entries[m.index].snapshot, true
}

// Clear drops the whole history.
func (m *Manager[S]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.index = -1
}
