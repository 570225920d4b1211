package module

import (
	"context"
	"time"
)

// Data is the opaque record a module exports for persistence. A nil Data
// means the module has nothing to save.
type Data = map[string]any

// Query is the free-form body of a module-to-module data request.
type Query = map[string]any

// Initializer prepares a module once, at registration.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Activator is called when the module becomes the active one.
type Activator interface {
	Activate(ctx context.Context) error
}

// Deactivator is called when another module takes over.
type Deactivator interface {
	Deactivate(ctx context.Context) error
}

// Exporter returns the module's persistable state.
type Exporter interface {
	ExportData() (Data, error)
}

// Importer replaces the module's state from a saved record.
type Importer interface {
	ImportData(Data) error
}

// Module is the full contract every registered editor satisfies.
type Module interface {
	Initializer
	Activator
	Deactivator
	Exporter
	Importer
}

// DataRequestHandler answers pull requests from other modules.
type DataRequestHandler interface {
	HandleDataRequest(ctx context.Context, from string, q Query) (any, error)
}

// SyncEventHandler receives every sync event emitted by another module.
type SyncEventHandler interface {
	HandleSyncEvent(Event) error
}

// Versioner lets a module report the format version of its exported data.
type Versioner interface {
	Version() string
}

// DefaultVersion is reported for modules that do not implement Versioner.
const DefaultVersion = "1.0.0"

// Event is an immutable notification. Handlers receive a copy and must clone
// anything they keep beyond the call.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Lifecycle events emitted by the registry.
const (
	EventAppActivated    = "app:activated"
	EventAppDeactivated  = "app:deactivated"
	EventAppRegistered   = "app:registered"
	EventAppUnregistered = "app:unregistered"
)

// Broadcaster publishes plain events. The router implements it.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Capability records which optional handlers a module provides. It is
// computed once at registration so dispatch can switch on it.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityDataRequests
	CapabilitySyncEvents
	CapabilityBoth
)

// DetectCapability inspects candidate for the optional handler interfaces.
func DetectCapability(candidate any) Capability {
	_, requests := candidate.(DataRequestHandler)
	_, sync := candidate.(SyncEventHandler)
	switch {
	case requests && sync:
		return CapabilityBoth
	case requests:
		return CapabilityDataRequests
	case sync:
		return CapabilitySyncEvents
	default:
		return CapabilityNone
	}
}

// HandlesDataRequests reports whether the capability includes data requests.
func (c Capability) HandlesDataRequests() bool {
	return c == CapabilityDataRequests || c == CapabilityBoth
}

// HandlesSyncEvents reports whether the capability includes sync events.
func (c Capability) HandlesSyncEvents() bool {
	return c == CapabilitySyncEvents || c == CapabilityBoth
}

func (c Capability) String() string {
	switch c {
	case CapabilityDataRequests:
		return "data-requests"
	case CapabilitySyncEvents:
		return "sync-events"
	case CapabilityBoth:
		return "data-requests+sync-events"
	default:
		return "none"
	}
}

// State enumerates module lifecycle states.
type State string

const (
	StateUnregistered State = "unregistered"
	StateInitialized  State = "initialized"
	StateActive       State = "active"
	StateInactive     State = "inactive"
)
