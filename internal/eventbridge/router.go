package eventbridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/logging"
	"github.com/kingrea/slayer-suite/internal/module"
)

const (
	defaultWatcherCapacity = 100
	defaultRecentLimit     = 64
)

// Modules is the registry view the router dispatches against.
type Modules interface {
	Names() []string
	Lookup(name string) (module.Module, bool)
	Capability(name string) (module.Capability, bool)
}

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router publishes broadcasts, dispatches sync events to modules and routes
// data requests between them. Handler lists are copied before dispatch, so
// handlers may subscribe or unsubscribe while being called.
type Router struct {
	mu           sync.RWMutex
	subscribers  map[string][]*subscriber
	syncHandlers map[string]map[string][]*syncEntry
	modules      Modules
	recent       []Event
	recentLimit  int
	watcherSize  int
	logger       logging.Logger
	now          func() time.Time
}

// NewRouter constructs a router dispatching sync events to modules.
func NewRouter(modules Modules, opts ...RouterOption) *Router {
	r := &Router{
		subscribers:  map[string][]*subscriber{},
		syncHandlers: map[string]map[string][]*syncEntry{},
		modules:      modules,
		recentLimit:  defaultRecentLimit,
		watcherSize:  defaultWatcherCapacity,
		logger:       logging.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.recent = make([]Event, 0, r.recentLimit)
	return r
}

// RouterWithLogger injects a logger for handler failures.
func RouterWithLogger(logger logging.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RouterWithRecentLimit controls how many recent events Recent retains.
func RouterWithRecentLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.recentLimit = limit
		}
	}
}

// RouterWithWatcherCapacity overrides the buffered channel size per watcher.
func RouterWithWatcherCapacity(capacity int) RouterOption {
	return func(r *Router) {
		if capacity > 0 {
			r.watcherSize = capacity
		}
	}
}

// RouterWithClock overrides the timestamp source.
func RouterWithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// Subscription represents an active subscription.
type Subscription struct {
	cancel func()
}

// Close terminates the subscription. Closing twice is harmless.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriber struct {
	handler Handler
	watcher *watcher
}

type syncEntry struct {
	fn SyncHandler
}

// Subscribe registers h for eventType, or for every event with Wildcard.
// Handlers for one type run in subscription order; wildcard handlers run
// after the exact-type handlers.
func (r *Router) Subscribe(eventType string, h Handler) Subscription {
	if h == nil {
		return Subscription{}
	}
	return r.addSubscriber(normalizeType(eventType), &subscriber{handler: h})
}

func (r *Router) addSubscriber(eventType string, sub *subscriber) Subscription {
	r.mu.Lock()
	r.subscribers[eventType] = append(r.subscribers[eventType], sub)
	r.mu.Unlock()
	var once sync.Once
	return Subscription{cancel: func() {
		once.Do(func() { r.removeSubscriber(eventType, sub) })
	}}
}

func (r *Router) removeSubscriber(eventType string, sub *subscriber) {
	r.mu.Lock()
	subs := r.subscribers[eventType]
	for i, s := range subs {
		if s == sub {
			r.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subscribers[eventType]) == 0 {
		delete(r.subscribers, eventType)
	}
	r.mu.Unlock()
	if sub.watcher != nil {
		sub.watcher.close()
	}
}

// Broadcast delivers eventType to every subscriber synchronously. Each
// subscriber receives its own deep copy of payload.
func (r *Router) Broadcast(eventType string, payload any) {
	r.publish(Event{
		Type:      normalizeType(eventType),
		Payload:   payload,
		Source:    SourceBridge,
		Timestamp: r.now(),
	})
}

func (r *Router) publish(event Event) int {
	r.mu.Lock()
	subs := make([]*subscriber, 0, len(r.subscribers[event.Type])+len(r.subscribers[Wildcard]))
	subs = append(subs, r.subscribers[event.Type]...)
	if event.Type != Wildcard {
		subs = append(subs, r.subscribers[Wildcard]...)
	}
	r.remember(event)
	r.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		copyEvent := event
		copyEvent.Payload = domain.CloneValue(event.Payload)
		if sub.watcher != nil {
			sub.watcher.deliver(copyEvent)
			delivered++
			continue
		}
		err := module.SafeCall("subscriber "+event.Type, func() error { return sub.handler(copyEvent) })
		if err != nil {
			r.logger.Warnf("subscriber for %s failed: %v", event.Type, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Router) remember(event Event) {
	if len(r.recent) >= r.recentLimit {
		copy(r.recent, r.recent[1:])
		r.recent = r.recent[:len(r.recent)-1]
	}
	r.recent = append(r.recent, event)
}

// Recent returns the last events published, oldest first.
func (r *Router) Recent() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.recent...)
}

// RegisterSyncHandler installs fn for sync events of eventType addressed to
// moduleName. The registration survives the module being re-registered.
func (r *Router) RegisterSyncHandler(moduleName, eventType string, fn SyncHandler) Subscription {
	if fn == nil {
		return Subscription{}
	}
	eventType = normalizeType(eventType)
	entry := &syncEntry{fn: fn}
	r.mu.Lock()
	if r.syncHandlers[moduleName] == nil {
		r.syncHandlers[moduleName] = map[string][]*syncEntry{}
	}
	r.syncHandlers[moduleName][eventType] = append(r.syncHandlers[moduleName][eventType], entry)
	r.mu.Unlock()
	var once sync.Once
	return Subscription{cancel: func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			list := r.syncHandlers[moduleName][eventType]
			for i, e := range list {
				if e == entry {
					r.syncHandlers[moduleName][eventType] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}}
}

// EmitSyncEvent dispatches eventType to every registered module except
// source: first to handlers registered for that (module, eventType) pair,
// then to the module's own HandleSyncEvent when it has one. The event is
// then broadcast for plain subscribers.
func (r *Router) EmitSyncEvent(eventType string, payload any, source string) DispatchReport {
	event := Event{
		Type:      normalizeType(eventType),
		Payload:   payload,
		Source:    source,
		Timestamp: r.now(),
	}
	report := DispatchReport{Event: event}
	if !IsSyncEventType(event.Type) {
		r.logger.Debugf("sync event %s is outside the known taxonomy", event.Type)
	}
	var names []string
	if r.modules != nil {
		names = r.modules.Names()
	}
	for _, name := range names {
		if name == source {
			continue
		}
		r.mu.RLock()
		entries := append([]*syncEntry(nil), r.syncHandlers[name][event.Type]...)
		r.mu.RUnlock()

		var generic module.SyncEventHandler
		if capability, ok := r.modules.Capability(name); ok && capability.HandlesSyncEvents() {
			if mod, ok := r.modules.Lookup(name); ok {
				generic, _ = mod.(module.SyncEventHandler)
			}
		}
		if len(entries) == 0 && generic == nil {
			continue
		}
		reached := false
		for _, entry := range entries {
			if r.dispatchSync(name, event, entry.fn, &report) {
				reached = true
			}
		}
		if generic != nil && r.dispatchSync(name, event, generic.HandleSyncEvent, &report) {
			reached = true
		}
		if reached {
			report.Delivered = append(report.Delivered, name)
		}
	}
	r.publish(event)
	return report
}

func (r *Router) dispatchSync(name string, event Event, fn func(Event) error, report *DispatchReport) bool {
	copyEvent := event
	copyEvent.Payload = domain.CloneValue(event.Payload)
	err := module.SafeCall(name+".HandleSyncEvent", func() error { return fn(copyEvent) })
	if err != nil {
		r.logger.Warnf("sync handler %s for %s failed: %v", name, event.Type, err)
		report.Failures = append(report.Failures, HandlerFailure{Module: name, Err: err})
		return false
	}
	return true
}

// RequestData asks target for data on behalf of from. It returns false when
// target is unknown, cannot answer requests, fails, or ctx ends first. The
// handler runs on its own goroutine; when the caller stops waiting the
// handler still runs to completion and its result is discarded.
func (r *Router) RequestData(ctx context.Context, from, target string, q module.Query) (any, bool) {
	if r.modules == nil {
		return nil, false
	}
	capability, ok := r.modules.Capability(target)
	if !ok {
		r.logger.Debugf("data request from %s: %v", from, fmt.Errorf("%w: %q", module.ErrNotFound, target))
		return nil, false
	}
	if !capability.HandlesDataRequests() {
		r.logger.Debugf("data request from %s: %s does not answer requests", from, target)
		return nil, false
	}
	mod, ok := r.modules.Lookup(target)
	if !ok {
		return nil, false
	}
	handler, ok := mod.(module.DataRequestHandler)
	if !ok {
		return nil, false
	}

	type outcome struct {
		value any
		err   error
	}
	started := r.now()
	query := domain.CloneMap(q)
	done := make(chan outcome, 1)
	go func() {
		var value any
		err := module.SafeCall(target+".HandleDataRequest", func() error {
			var herr error
			value, herr = handler.HandleDataRequest(ctx, from, query)
			return herr
		})
		done <- outcome{value: value, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		res = outcome{err: ctx.Err()}
	}
	result := DataRequestResult{From: from, Target: target, Success: res.err == nil, Duration: r.now().Sub(started)}
	if res.err != nil {
		result.Error = res.err.Error()
		r.logger.Warnf("data request %s -> %s failed: %v", from, target, res.err)
		r.Broadcast(DataRequested, result)
		return nil, false
	}
	r.Broadcast(DataRequested, result)
	return res.value, true
}

func normalizeType(eventType string) string {
	return strings.TrimSpace(eventType)
}
