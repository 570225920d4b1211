package module

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kingrea/slayer-suite/internal/logging"
)

// Entry is a point-in-time view of one registered module.
type Entry struct {
	Name       string
	Module     Module
	State      State
	Capability Capability
	Version    string
}

type record struct {
	module     Module
	state      State
	capability Capability
	version    string
}

// RegistryOption customizes Registry construction.
type RegistryOption func(*Registry)

// RegistryWithLogger injects the logger used for warnings.
func RegistryWithLogger(logger logging.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RegistryWithBroadcaster sets where lifecycle events are published.
func RegistryWithBroadcaster(b Broadcaster) RegistryOption {
	return func(r *Registry) {
		r.events = b
	}
}

// Registry tracks registered modules and the single active one. Module
// callbacks always run outside mu so they may call back into the registry.
type Registry struct {
	mu      sync.Mutex
	records map[string]*record
	order   []string
	active  string
	logger  logging.Logger
	events  Broadcaster

	// switchMu serializes SwitchTo so two switches cannot interleave their
	// deactivate/activate pairs.
	switchMu sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		records: map[string]*record{},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Attach sets the broadcaster after construction. The router needs the
// registry to exist first, so the two are wired in this order.
func (r *Registry) Attach(b Broadcaster) {
	r.mu.Lock()
	r.events = b
	r.mu.Unlock()
}

// Register checks candidate against the module contract, initializes it and
// records it as initialized. Re-registering a name replaces the old module;
// if that module was active it is deactivated first.
func (r *Registry) Register(ctx context.Context, name string, candidate any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("module: name is required")
	}
	mod, err := conform(name, candidate)
	if err != nil {
		return err
	}
	if err := SafeCall(name+".Initialize", func() error { return mod.Initialize(ctx) }); err != nil {
		return fmt.Errorf("module: initialize %s: %w", name, err)
	}
	rec := &record{
		module:     mod,
		state:      StateInitialized,
		capability: DetectCapability(mod),
		version:    DefaultVersion,
	}
	if v, ok := mod.(Versioner); ok && v.Version() != "" {
		rec.version = v.Version()
	}

	r.mu.Lock()
	previous, replacing := r.records[name]
	wasActive := replacing && r.active == name
	if wasActive {
		r.active = ""
	}
	r.records[name] = rec
	if !replacing {
		r.order = append(r.order, name)
	}
	r.mu.Unlock()

	if replacing {
		r.logger.Warnf("module %s re-registered; replacing previous instance", name)
	}
	if wasActive {
		if err := SafeCall(name+".Deactivate", func() error { return previous.module.Deactivate(ctx) }); err != nil {
			r.logger.Warnf("deactivate replaced module %s: %v", name, err)
		}
		r.broadcast(EventAppDeactivated, map[string]any{"app": name, "reason": "replaced"})
	}
	r.broadcast(EventAppRegistered, map[string]any{"app": name, "capability": rec.capability.String()})
	return nil
}

// MustRegister panics if registration fails. Hosts use it at startup so a
// contract violation aborts with the offending module and method named.
func (r *Registry) MustRegister(ctx context.Context, name string, candidate any) {
	if err := r.Register(ctx, name, candidate); err != nil {
		panic(err)
	}
}

func conform(name string, candidate any) (Module, error) {
	if candidate == nil {
		return nil, &ContractViolationError{Module: name, Method: "Initialize", Missing: []string{"Initialize", "Activate", "Deactivate", "ExportData", "ImportData"}}
	}
	var missing []string
	if _, ok := candidate.(Initializer); !ok {
		missing = append(missing, "Initialize")
	}
	if _, ok := candidate.(Activator); !ok {
		missing = append(missing, "Activate")
	}
	if _, ok := candidate.(Deactivator); !ok {
		missing = append(missing, "Deactivate")
	}
	if _, ok := candidate.(Exporter); !ok {
		missing = append(missing, "ExportData")
	}
	if _, ok := candidate.(Importer); !ok {
		missing = append(missing, "ImportData")
	}
	if len(missing) > 0 {
		return nil, &ContractViolationError{Module: name, Method: missing[0], Missing: missing}
	}
	return candidate.(Module), nil
}

// SwitchTo makes name the active module. The current active module, if any,
// is deactivated first. When the target's Activate fails both modules are
// left inactive and no module is active; the caller decides whether to retry.
// An unknown name yields false and an error wrapping ErrNotFound.
func (r *Registry) SwitchTo(ctx context.Context, name string) (bool, error) {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	r.mu.Lock()
	target, ok := r.records[name]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if r.active == name {
		r.mu.Unlock()
		return true, nil
	}
	prevName := r.active
	var prev *record
	if prevName != "" {
		prev = r.records[prevName]
	}
	r.mu.Unlock()

	if prev != nil {
		if err := SafeCall(prevName+".Deactivate", func() error { return prev.module.Deactivate(ctx) }); err != nil {
			r.logger.Warnf("deactivate %s: %v", prevName, err)
		}
		r.mu.Lock()
		prev.state = StateInactive
		if r.active == prevName {
			r.active = ""
		}
		r.mu.Unlock()
		r.broadcast(EventAppDeactivated, map[string]any{"app": prevName})
	}

	if err := SafeCall(name+".Activate", func() error { return target.module.Activate(ctx) }); err != nil {
		r.mu.Lock()
		target.state = StateInactive
		r.mu.Unlock()
		r.logger.Errorf("activate %s failed: %v", name, err)
		return false, &ActivationError{Module: name, Err: err}
	}

	r.mu.Lock()
	if r.records[name] != target {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %q was unregistered during activation", ErrNotFound, name)
	}
	target.state = StateActive
	r.active = name
	r.mu.Unlock()
	r.logger.Infof("switched active module %q -> %q", prevName, name)
	r.broadcast(EventAppActivated, map[string]any{"app": name, "previous": prevName})
	return true, nil
}

// Unregister removes name, clearing the active pointer if it pointed there.
// The module's Deactivate is not called.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	if _, ok := r.records[name]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.records, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	if r.active == name {
		r.active = ""
	}
	r.mu.Unlock()
	r.broadcast(EventAppUnregistered, map[string]any{"app": name})
	return true
}

// Active returns the active module's name.
func (r *Registry) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != ""
}

// State returns name's lifecycle state, StateUnregistered when unknown.
func (r *Registry) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[name]; ok {
		return rec.state
	}
	return StateUnregistered
}

// Names lists registered modules in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return nil, false
	}
	return rec.module, true
}

// Capability returns the optional-handler capability recorded for name.
func (r *Registry) Capability(name string) (Capability, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return CapabilityNone, false
	}
	return rec.capability, true
}

// Entries snapshots every registered module in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		rec := r.records[name]
		out = append(out, Entry{
			Name:       name,
			Module:     rec.module,
			State:      rec.state,
			Capability: rec.capability,
			Version:    rec.version,
		})
	}
	return out
}

func (r *Registry) broadcast(eventType string, payload any) {
	r.mu.Lock()
	events := r.events
	r.mu.Unlock()
	if events != nil {
		events.Broadcast(eventType, payload)
	}
}
