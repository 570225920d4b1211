package eventbridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kingrea/slayer-suite/internal/module"
)

type stubModule struct {
	module.Base
	mu       sync.Mutex
	received []Event
	answer   any
	fail     error
	panicky  bool
	block    chan struct{}
}

func (s *stubModule) ExportData() (module.Data, error) { return nil, nil }
func (s *stubModule) ImportData(module.Data) error     { return nil }

func (s *stubModule) HandleSyncEvent(e Event) error {
	s.mu.Lock()
	s.received = append(s.received, e)
	s.mu.Unlock()
	return s.fail
}

func (s *stubModule) HandleDataRequest(ctx context.Context, from string, q module.Query) (any, error) {
	if s.block != nil {
		<-s.block
	}
	if s.panicky {
		panic("boom")
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return s.answer, nil
}

func (s *stubModule) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.received...)
}

// plainModule satisfies the contract without optional handlers.
type plainModule struct{ module.Base }

func (p *plainModule) ExportData() (module.Data, error) { return nil, nil }
func (p *plainModule) ImportData(module.Data) error     { return nil }

func newHarness(t *testing.T) (*module.Registry, *Router) {
	t.Helper()
	reg := module.NewRegistry()
	router := NewRouter(reg)
	reg.Attach(router)
	return reg, router
}

func TestBroadcastIsolatesFailingSubscriber(t *testing.T) {
	_, router := newHarness(t)
	router.Subscribe("sign:created", func(Event) error { panic("subscriber 1 always throws") })
	router.Subscribe("sign:created", func(Event) error { return errors.New("also fails") })
	var got []Event
	router.Subscribe("sign:created", func(e Event) error {
		got = append(got, e)
		return nil
	})
	router.Broadcast("sign:created", map[string]any{"id": "s1"})
	if len(got) != 1 {
		t.Fatalf("later subscriber should still receive the event, got %d", len(got))
	}
	if got[0].Source != SourceBridge {
		t.Fatalf("expected bridge source marker, got %q", got[0].Source)
	}
	if got[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestBroadcastOrderAndPayloadCopies(t *testing.T) {
	_, router := newHarness(t)
	var order []string
	router.Subscribe("x", func(e Event) error {
		order = append(order, "first")
		e.Payload.(map[string]any)["mutated"] = true
		return nil
	})
	router.Subscribe(Wildcard, func(e Event) error {
		order = append(order, "wildcard")
		return nil
	})
	router.Subscribe("x", func(e Event) error {
		order = append(order, "second")
		if _, ok := e.Payload.(map[string]any)["mutated"]; ok {
			t.Errorf("subscriber saw another subscriber's mutation")
		}
		return nil
	})
	payload := map[string]any{"k": "v"}
	router.Broadcast("x", payload)
	if _, ok := payload["mutated"]; ok {
		t.Fatalf("publisher payload was mutated")
	}
	want := []string{"first", "second", "wildcard"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSubscriptionClose(t *testing.T) {
	_, router := newHarness(t)
	calls := 0
	sub := router.Subscribe("x", func(Event) error { calls++; return nil })
	router.Broadcast("x", nil)
	sub.Close()
	sub.Close()
	router.Broadcast("x", nil)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestEmitSyncEventSkipsSource(t *testing.T) {
	reg, router := newHarness(t)
	a := &stubModule{Base: module.NewBase("a", "")}
	b := &stubModule{Base: module.NewBase("b", "")}
	reg.MustRegister(context.Background(), "a", a)
	reg.MustRegister(context.Background(), "b", b)
	reg.MustRegister(context.Background(), "c", &plainModule{Base: module.NewBase("c", "")})

	var pairCalls []string
	router.RegisterSyncHandler("a", "X", func(Event) error { pairCalls = append(pairCalls, "a"); return nil })
	router.RegisterSyncHandler("b", "X", func(Event) error { pairCalls = append(pairCalls, "b"); return nil })
	router.RegisterSyncHandler("c", "X", func(Event) error { pairCalls = append(pairCalls, "c"); return nil })

	var broadcasts []Event
	router.Subscribe("X", func(e Event) error { broadcasts = append(broadcasts, e); return nil })

	report := router.EmitSyncEvent("X", map[string]any{"v": 1}, "a")
	for _, name := range pairCalls {
		if name == "a" {
			t.Fatalf("source module received its own sync event")
		}
	}
	if len(pairCalls) != 2 {
		t.Fatalf("expected b and c pair handlers, got %v", pairCalls)
	}
	if len(a.events()) != 0 {
		t.Fatalf("source generic handler must not run")
	}
	if len(b.events()) != 1 || b.events()[0].Source != "a" {
		t.Fatalf("b generic handler should receive the event from a")
	}
	if len(report.Delivered) != 2 || report.Delivered[0] != "b" || report.Delivered[1] != "c" {
		t.Fatalf("unexpected delivered list %v", report.Delivered)
	}
	if len(broadcasts) != 1 || broadcasts[0].Source != "a" {
		t.Fatalf("sync event should be re-broadcast once, got %v", broadcasts)
	}
}

func TestEmitSyncEventRecordsFailures(t *testing.T) {
	reg, router := newHarness(t)
	b := &stubModule{Base: module.NewBase("b", ""), fail: errors.New("nope")}
	c := &stubModule{Base: module.NewBase("c", "")}
	reg.MustRegister(context.Background(), "b", b)
	reg.MustRegister(context.Background(), "c", c)
	report := router.EmitSyncEvent(SignCreated, nil, "a")
	if len(report.Failures) != 1 || report.Failures[0].Module != "b" {
		t.Fatalf("expected one failure from b, got %+v", report.Failures)
	}
	if len(c.events()) != 1 {
		t.Fatalf("c should still receive the event")
	}
}

func TestRequestData(t *testing.T) {
	reg, router := newHarness(t)
	target := &stubModule{Base: module.NewBase("mapping", ""), answer: []string{"s1"}}
	reg.MustRegister(context.Background(), "mapping", target)
	reg.MustRegister(context.Background(), "plain", &plainModule{Base: module.NewBase("plain", "")})

	var results []DataRequestResult
	router.Subscribe(DataRequested, func(e Event) error {
		results = append(results, e.Payload.(DataRequestResult))
		return nil
	})

	got, ok := router.RequestData(context.Background(), "preview", "mapping", module.Query{"kind": "signs"})
	if !ok || got.([]string)[0] != "s1" {
		t.Fatalf("unexpected result %v %v", got, ok)
	}
	if _, ok := router.RequestData(context.Background(), "preview", "ghost", nil); ok {
		t.Fatalf("unknown target should yield false")
	}
	if _, ok := router.RequestData(context.Background(), "preview", "plain", nil); ok {
		t.Fatalf("target without handler should yield false")
	}

	target.panicky = true
	if v, ok := router.RequestData(context.Background(), "preview", "mapping", nil); ok || v != nil {
		t.Fatalf("panicking handler should yield nil, false")
	}
	if len(results) != 2 || !results[0].Success || results[1].Success || results[1].Error == "" {
		t.Fatalf("unexpected data:requested broadcasts %+v", results)
	}
}

func TestRequestDataStopsWaitingOnContext(t *testing.T) {
	reg, router := newHarness(t)
	target := &stubModule{Base: module.NewBase("slow", ""), block: make(chan struct{}), answer: "late"}
	reg.MustRegister(context.Background(), "slow", target)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := router.RequestData(ctx, "a", "slow", nil); ok {
		t.Fatalf("expected timeout")
	}
	close(target.block)
}

func TestRecentKeepsLastEvents(t *testing.T) {
	router := NewRouter(nil, RouterWithRecentLimit(2))
	router.Broadcast("a", nil)
	router.Broadcast("b", nil)
	router.Broadcast("c", nil)
	recent := router.Recent()
	if len(recent) != 2 || recent[0].Type != "b" || recent[1].Type != "c" {
		t.Fatalf("unexpected recent events %v", recent)
	}
}

func TestWatchDropsOldestPreferredEventOnOverflow(t *testing.T) {
	router := NewRouter(nil, RouterWithWatcherCapacity(1))
	feed := router.Watch(Wildcard)
	defer feed.Close()
	router.Broadcast(SharedDataChanged, nil)
	router.Broadcast(AppActivated, nil)
	if got := <-feed.Events; got.Type != AppActivated {
		t.Fatalf("expected lifecycle event to replace oldest, got %s", got.Type)
	}
}

func TestWatchDropsIncomingWhenOldestCritical(t *testing.T) {
	router := NewRouter(nil, RouterWithWatcherCapacity(1))
	feed := router.Watch(Wildcard)
	router.Broadcast(AppActivated, nil)
	router.Broadcast(DataRequested, nil)
	if got := <-feed.Events; got.Type != AppActivated {
		t.Fatalf("expected lifecycle event to remain, got %s", got.Type)
	}
	feed.Close()
	if _, open := <-feed.Events; open {
		t.Fatalf("channel should be closed")
	}
}

func TestWatchOverflowKeepsPublishOrder(t *testing.T) {
	router := NewRouter(nil, RouterWithWatcherCapacity(3))
	feed := router.Watch(Wildcard)
	defer feed.Close()
	router.Broadcast(AppActivated, nil)
	router.Broadcast(SignCreated, nil)
	router.Broadcast(AppDeactivated, nil)
	router.Broadcast(SignUpdated, nil)

	want := []string{AppActivated, AppDeactivated, SignUpdated}
	for i, kind := range want {
		if got := <-feed.Events; got.Type != kind {
			t.Fatalf("event %d = %s, want %s", i, got.Type, kind)
		}
	}
	select {
	case extra := <-feed.Events:
		t.Fatalf("unexpected extra event %s", extra.Type)
	default:
	}
}

func TestWatchOverflowOfLifecycleEventsDropsOldest(t *testing.T) {
	router := NewRouter(nil, RouterWithWatcherCapacity(2))
	feed := router.Watch(Wildcard)
	defer feed.Close()
	router.Broadcast(AppRegistered, nil)
	router.Broadcast(AppActivated, nil)
	router.Broadcast(AppDeactivated, nil)
	if got := <-feed.Events; got.Type != AppActivated {
		t.Fatalf("expected oldest lifecycle event dropped, got %s", got.Type)
	}
	if got := <-feed.Events; got.Type != AppDeactivated {
		t.Fatalf("expected newest lifecycle event last, got %s", got.Type)
	}
}
