package eventbridge

import (
	"time"

	"github.com/kingrea/slayer-suite/internal/module"
)

// SourceBridge marks events published by Broadcast rather than by a module.
const SourceBridge = "bridge"

// Wildcard subscribes to every event type.
const Wildcard = "*"

// Event is the value handed to subscribers and sync handlers.
type Event = module.Event

// Lifecycle and store events.
const (
	AppActivated      = module.EventAppActivated
	AppDeactivated    = module.EventAppDeactivated
	AppRegistered     = module.EventAppRegistered
	AppUnregistered   = module.EventAppUnregistered
	SharedDataChanged = "sharedData:changed"
	DataRequested     = "data:requested"
	// ProjectRestored follows an undo, a redo or a project load: module state
	// was replaced wholesale, without per-edit sync events.
	ProjectRestored = "project:restored"
)

// Sync event taxonomy. The strings are stable across the suite and appear
// in saved journals.
const (
	SignTypeCreated      = "signType:created"
	SignTypeUpdated      = "signType:updated"
	SignTypeDeleted      = "signType:deleted"
	SignTypeFieldAdded   = "signType:fieldAdded"
	SignTypeFieldRemoved = "signType:fieldRemoved"

	SignCreated        = "sign:created"
	SignUpdated        = "sign:updated"
	SignDeleted        = "sign:deleted"
	SignMessageChanged = "sign:messageChanged"
	SignNotesChanged   = "sign:notesChanged"

	TemplateCreated = "template:created"
	TemplateUpdated = "template:updated"
	TemplateDeleted = "template:deleted"

	GraphicsLibraryUpdated = "graphics:libraryUpdated"
	GraphicsAssetAdded     = "graphics:assetAdded"
)

// SyncEventTypes lists the sync taxonomy in a stable order.
func SyncEventTypes() []string {
	return []string{
		SignTypeCreated, SignTypeUpdated, SignTypeDeleted, SignTypeFieldAdded, SignTypeFieldRemoved,
		SignCreated, SignUpdated, SignDeleted, SignMessageChanged, SignNotesChanged,
		TemplateCreated, TemplateUpdated, TemplateDeleted,
		GraphicsLibraryUpdated, GraphicsAssetAdded,
	}
}

// IsSyncEventType reports whether kind belongs to the sync taxonomy.
func IsSyncEventType(kind string) bool {
	for _, t := range SyncEventTypes() {
		if t == kind {
			return true
		}
	}
	return false
}

// Handler consumes broadcast events. A returned error is logged; it never
// reaches the publisher.
type Handler func(Event) error

// SyncHandler consumes a sync event addressed to one module.
type SyncHandler func(Event) error

// HandlerFailure records one handler that failed during a dispatch.
type HandlerFailure struct {
	Module string
	Err    error
}

// DispatchReport summarizes one EmitSyncEvent call.
type DispatchReport struct {
	Event     Event
	Delivered []string
	Failures  []HandlerFailure
}

// DataRequestResult is the payload of a data:requested broadcast.
type DataRequestResult struct {
	From     string        `json:"from"`
	Target   string        `json:"target"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
