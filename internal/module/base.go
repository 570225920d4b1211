package module

import (
	"context"
	"sync"
)

// Base provides the lifecycle half of the contract for editors that only
// need to track whether they are active. Editors embed it and supply
// ExportData/ImportData themselves.
type Base struct {
	name    string
	version string

	mu          sync.Mutex
	active      bool
	initialized bool
	activations int
}

// NewBase seeds the helper with the module's identity.
func NewBase(name, version string) Base {
	if version == "" {
		version = DefaultVersion
	}
	return Base{name: name, version: version}
}

// Name returns the registry name the module was built for.
func (b *Base) Name() string {
	return b.name
}

// Version implements Versioner.
func (b *Base) Version() string {
	if b.version == "" {
		return DefaultVersion
	}
	return b.version
}

// Initialize implements Initializer.
func (b *Base) Initialize(context.Context) error {
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	return nil
}

// Activate implements Activator.
func (b *Base) Activate(context.Context) error {
	b.mu.Lock()
	b.active = true
	b.activations++
	b.mu.Unlock()
	return nil
}

// Deactivate implements Deactivator.
func (b *Base) Deactivate(context.Context) error {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
	return nil
}

// IsActive reports whether the last lifecycle call was Activate.
func (b *Base) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Activations counts successful Activate calls.
func (b *Base) Activations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activations
}
