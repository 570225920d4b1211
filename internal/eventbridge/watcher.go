package eventbridge

import (
	"slices"
	"strings"
	"sync"

	"github.com/kingrea/slayer-suite/internal/logging"
)

// Feed is the channel flavour of Subscribe, used by hosts that consume
// events from their own loop. Delivery never blocks the publisher: when the
// buffer is full one event is dropped, preferring to keep lifecycle events.
// The surviving events keep their publish order.
type Feed struct {
	Events <-chan Event
	Subscription
}

// Watch subscribes a buffered channel to eventType (or Wildcard).
func (r *Router) Watch(eventType string) Feed {
	w := newWatcher(r.watcherSize, r.logger)
	sub := r.addSubscriber(normalizeType(eventType), &subscriber{watcher: w})
	return Feed{Events: w.ch, Subscription: sub}
}

type watcher struct {
	ch      chan Event
	logger  logging.Logger
	closed  bool
	closeMu sync.Mutex
}

func newWatcher(capacity int, logger logging.Logger) *watcher {
	if capacity <= 0 {
		capacity = defaultWatcherCapacity
	}
	return &watcher{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (w *watcher) deliver(event Event) {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- event:
		return
	default:
	}
	// Full: drain, discard one event, refill in the original order.
	queue := make([]Event, 0, cap(w.ch)+1)
drain:
	for {
		select {
		case queued := <-w.ch:
			queue = append(queue, queued)
		default:
			break drain
		}
	}
	queue = append(queue, event)
	if len(queue) > cap(w.ch) {
		victim := dropVictim(queue)
		w.logDrop(queue[victim], "queue overflow")
		queue = slices.Delete(queue, victim, victim+1)
	}
	for _, queued := range queue {
		w.ch <- queued
	}
}

func (w *watcher) logDrop(event Event, reason string) {
	if w.logger == nil {
		return
	}
	w.logger.Debugf("eventbridge: dropped %s (%s)", event.Type, reason)
}

func (w *watcher) close() {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.ch)
}

// dropVictim picks the event to discard from an overflowing queue: the
// oldest preferred drop, else the oldest non-lifecycle event, else the
// oldest event.
func dropVictim(queue []Event) int {
	if i := slices.IndexFunc(queue, func(e Event) bool { return isPreferredDrop(e.Type) }); i >= 0 {
		return i
	}
	if i := slices.IndexFunc(queue, func(e Event) bool { return !isCriticalEvent(e.Type) }); i >= 0 {
		return i
	}
	return 0
}

func isCriticalEvent(kind string) bool {
	return strings.HasPrefix(kind, "app:")
}

func isPreferredDrop(kind string) bool {
	return kind == DataRequested || kind == SharedDataChanged
}
