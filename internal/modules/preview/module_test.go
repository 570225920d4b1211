package preview

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/module"
)

type fakeRequester struct {
	result any
	ok     bool
	calls  []module.Query
}

func (f *fakeRequester) RequestData(_ context.Context, from, target string, q module.Query) (any, bool) {
	if from != moduleID || target != SourceModule {
		return nil, false
	}
	f.calls = append(f.calls, q)
	return f.result, f.ok
}

func sign(id string, page int, x, y float64) domain.SignInstance {
	s := domain.NewSignInstance("EX", domain.Location{X: x, Y: y, Page: page})
	s.ID = id
	return s
}

func TestActivatePullsSignsFromMapping(t *testing.T) {
	req := &fakeRequester{ok: true, result: []domain.SignInstance{sign("b", 2, 0, 0), sign("a", 1, 5, 5)}}
	m := New(req)
	if err := m.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !m.IsActive() {
		t.Fatalf("expected active")
	}
	if diff := cmp.Diff([]module.Query{{"kind": "signs"}}, req.calls); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
	rows := m.Rows()
	if len(rows) != 2 || rows[0].Sign.ID != "a" || rows[1].Sign.ID != "b" {
		t.Fatalf("rows not sorted by page: %+v", rows)
	}
}

func TestActivateSurvivesMissingSource(t *testing.T) {
	m := New(&fakeRequester{ok: false})
	if err := m.Activate(context.Background()); err != nil {
		t.Fatalf("Activate should not fail: %v", err)
	}
	if err := m.Refresh(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if err := New(nil).Refresh(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable without requester, got %v", err)
	}
}

// signOwner stands in for the mapping editor: it stores the flags and
// announces the edit back to the preview.
type signOwner struct {
	preview *PreviewModule
	signs   map[string]domain.SignInstance
}

func (o *signOwner) set(id string, fn func(*domain.SignInstance)) error {
	sign, ok := o.signs[id]
	if !ok {
		return errors.New("unknown sign")
	}
	fn(&sign)
	o.signs[id] = sign
	return o.preview.HandleSyncEvent(eventbridge.Event{Type: eventbridge.SignUpdated, Payload: map[string]any{"id": id, "sign": sign}})
}

func (o *signOwner) SetProduced(id string, produced bool) error {
	return o.set(id, func(s *domain.SignInstance) { s.Produced = produced })
}

func (o *signOwner) SetInstalled(id string, installed bool) error {
	return o.set(id, func(s *domain.SignInstance) { s.Installed = installed })
}

func TestSyncEventsMaintainProjection(t *testing.T) {
	m := New(nil)
	created := sign("s1", 1, 0, 0)
	created.Produced = true
	if err := m.HandleSyncEvent(eventbridge.Event{Type: eventbridge.SignCreated, Payload: map[string]any{"id": "s1", "sign": created}}); err != nil {
		t.Fatalf("created: %v", err)
	}

	updated := created.Clone()
	updated.Messages[domain.FieldMessage1] = "EXIT"
	if err := m.HandleSyncEvent(eventbridge.Event{Type: eventbridge.SignMessageChanged, Payload: map[string]any{"id": "s1", "sign": updated}}); err != nil {
		t.Fatalf("messageChanged: %v", err)
	}
	rows := m.Rows()
	if len(rows) != 1 || rows[0].Sign.Message(domain.FieldMessage1) != "EXIT" || !rows[0].Produced {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if err := m.HandleSyncEvent(eventbridge.Event{Type: eventbridge.SignUpdated, Payload: map[string]any{"id": "s1"}}); err == nil {
		t.Fatalf("expected error for payload without sign")
	}

	_ = m.HandleSyncEvent(eventbridge.Event{Type: eventbridge.SignDeleted, Payload: map[string]any{"id": "s1"}})
	if got := m.Summary(); got != (Summary{}) {
		t.Fatalf("expected empty summary, got %+v", got)
	}
}

func TestProjectRestoredRepullsSigns(t *testing.T) {
	req := &fakeRequester{ok: true, result: []domain.SignInstance{sign("s1", 1, 0, 0)}}
	m := New(req)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	req.result = []domain.SignInstance{sign("s2", 1, 0, 0), sign("s3", 1, 5, 0)}
	if err := m.HandleSyncEvent(eventbridge.Event{Type: eventbridge.ProjectRestored, Payload: map[string]any{"reason": "undo"}}); err != nil {
		t.Fatalf("HandleSyncEvent: %v", err)
	}
	var ids []string
	for _, row := range m.Rows() {
		ids = append(ids, row.Sign.ID)
	}
	if diff := cmp.Diff([]string{"s2", "s3"}, ids); diff != "" {
		t.Fatalf("rows mismatch after restore (-want +got):\n%s", diff)
	}

	req.ok = false
	if err := m.HandleSyncEvent(eventbridge.Event{Type: eventbridge.ProjectRestored}); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestStatusWritesGoToTheSignOwner(t *testing.T) {
	if err := New(nil).MarkProduced("s1", true); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}

	owner := &signOwner{signs: map[string]domain.SignInstance{"s1": sign("s1", 1, 0, 0), "s2": sign("s2", 1, 1, 0)}}
	m := New(&fakeRequester{ok: true, result: []domain.SignInstance{owner.signs["s1"], owner.signs["s2"]}}, WithStatusWriter(owner))
	owner.preview = m
	_ = m.Refresh(context.Background())

	for _, err := range []error{
		m.MarkProduced("s1", true),
		m.MarkInstalled("s1", true),
		m.MarkProduced("s2", true),
	} {
		if err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if !owner.signs["s1"].Produced || !owner.signs["s1"].Installed {
		t.Fatalf("flags not written to the owner: %+v", owner.signs["s1"])
	}
	if diff := cmp.Diff(Summary{Total: 2, Produced: 2, Installed: 1}, m.Summary()); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if err := m.MarkInstalled("ghost", true); err == nil {
		t.Fatalf("expected owner error for unknown sign")
	}

	data, err := m.ExportData()
	if err != nil || len(data) != 0 {
		t.Fatalf("ExportData = %v, %v; want empty", data, err)
	}
	if err := m.ImportData(module.Data{"status": map[string]any{"s1": map[string]any{"produced": false}}}); err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if !m.Rows()[0].Produced {
		t.Fatalf("legacy status must not override the sign")
	}
}
