package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/tv_overlay/internal/drawing"
	"github.com/dgnsrekt/tv_overlay/internal/metrics"
	"github.com/dgnsrekt/tv_overlay/internal/overlay"
	"github.com/dgnsrekt/tv_overlay/internal/relay"
	"github.com/dgnsrekt/tv_overlay/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store, *relay.Broker) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = fs.Close() })
	broker := relay.NewBroker()
	return New(fs, broker, metrics.New(), nil), fs, broker
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var coded *CodedError
	if !errors.As(err, &coded) {
		t.Fatalf("error %v is not a CodedError", err)
	}
	return coded.Code
}

func TestScriptCRUD(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	script := overlay.ChartScript{
		ID:      "scr1",
		Name:    "session markers",
		Symbol:  "EURUSD",
		Visible: true,
		Generators: overlay.Generators{
			overlay.SessionVLines{},
		},
	}
	if err := svc.SaveScript(ctx, "alice", script); err != nil {
		t.Fatalf("SaveScript() failed: %v", err)
	}

	got, err := svc.GetScript(ctx, "alice", "scr1")
	if err != nil {
		t.Fatalf("GetScript() failed: %v", err)
	}
	if got.Name != "session markers" {
		t.Fatalf("GetScript().Name = %q; want %q", got.Name, "session markers")
	}

	list, err := svc.ListScripts(ctx, "alice", "EURUSD")
	if err != nil {
		t.Fatalf("ListScripts() failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListScripts() = %d scripts; want 1", len(list))
	}

	if err := svc.DeleteScript(ctx, "alice", "scr1"); err != nil {
		t.Fatalf("DeleteScript() failed: %v", err)
	}
	_, err = svc.GetScript(ctx, "alice", "scr1")
	if codeOf(t, err) != CodeNotFound {
		t.Fatalf("GetScript(deleted) code = %v; want NOT_FOUND", err)
	}
}

func TestScriptValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.SaveScript(ctx, "../evil", overlay.ChartScript{ID: "scr1", Name: "x"})
	if codeOf(t, err) != CodeValidation {
		t.Fatalf("SaveScript(bad owner) code = %v; want VALIDATION", err)
	}
	err = svc.SaveScript(ctx, "alice", overlay.ChartScript{ID: "scr1"})
	if codeOf(t, err) != CodeValidation {
		t.Fatalf("SaveScript(no name) code = %v; want VALIDATION", err)
	}
}

func TestEvaluateScriptNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.EvaluateScript(context.Background(), "alice", "nope", nil)
	if codeOf(t, err) != CodeNotFound {
		t.Fatalf("EvaluateScript(missing) code = %v; want NOT_FOUND", err)
	}
}

func TestClickCommitPersistsAcrossRestart(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Click(ctx, "prof1", drawing.KindHLine, drawing.PricePoint{Time: 100, Price: 1.25}, "")
	if err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	if res.Drawing == nil || res.Drawing.Kind != drawing.KindHLine {
		t.Fatalf("Click() = %+v; want committed hline", res)
	}
	if res.State != "idle" {
		t.Fatalf("Click() state = %q; want idle", res.State)
	}

	// A fresh service over the same store must see the committed drawing.
	svc2 := New(st, relay.NewBroker(), metrics.New(), nil)
	view, err := svc2.ListDrawings(ctx, "prof1")
	if err != nil {
		t.Fatalf("ListDrawings() failed: %v", err)
	}
	if len(view.Drawings) != 1 || view.Drawings[0].ID != res.Drawing.ID {
		t.Fatalf("restarted service sees %+v; want the committed drawing", view.Drawings)
	}
}

func TestTwoClickFlowStates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Click(ctx, "prof1", drawing.KindTrendLine, drawing.PricePoint{Time: 100, Price: 1}, "")
	if err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	if res.Drawing != nil || res.State != "placing" {
		t.Fatalf("first click = %+v; want placing, no drawing", res)
	}

	res, err = svc.Click(ctx, "prof1", drawing.KindTrendLine, drawing.PricePoint{Time: 200, Price: 2}, "")
	if err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	if res.Drawing == nil || res.State != "idle" {
		t.Fatalf("second click = %+v; want committed drawing, idle", res)
	}

	res, err = svc.Click(ctx, "prof1", drawing.KindRay, drawing.PricePoint{Time: 300, Price: 3}, "")
	if err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	if res.State != "placing" {
		t.Fatalf("state after arming ray = %q; want placing", res.State)
	}
	res, err = svc.CancelPending(ctx, "prof1")
	if err != nil {
		t.Fatalf("CancelPending() failed: %v", err)
	}
	if res.State != "idle" {
		t.Fatalf("state after cancel = %q; want idle", res.State)
	}
}

func TestClickUnknownTool(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Click(context.Background(), "prof1", "spiral", drawing.PricePoint{}, "")
	if codeOf(t, err) != CodeValidation {
		t.Fatalf("Click(unknown tool) code = %v; want VALIDATION", err)
	}
}

func TestBrushLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.BrushStart(ctx, "prof1", drawing.PricePoint{Time: 1, Price: 1})
	if err != nil {
		t.Fatalf("BrushStart() failed: %v", err)
	}
	if res.State != "brushing" {
		t.Fatalf("BrushStart() state = %q; want brushing", res.State)
	}
	if _, err := svc.BrushMove(ctx, "prof1", drawing.PricePoint{Time: 2, Price: 2}); err != nil {
		t.Fatalf("BrushMove() failed: %v", err)
	}

	res, err = svc.BrushEnd(ctx, "prof1")
	if err != nil {
		t.Fatalf("BrushEnd() failed: %v", err)
	}
	if res.Drawing == nil || res.Drawing.Kind != drawing.KindBrush {
		t.Fatalf("BrushEnd() = %+v; want committed brush", res)
	}
	if len(res.Drawing.Points) != 2 {
		t.Fatalf("brush points = %d; want 2", len(res.Drawing.Points))
	}
}

func TestUpdateDeleteClear(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Click(ctx, "prof1", drawing.KindHLine, drawing.PricePoint{Price: 1.5}, "")
	if err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	id := res.Drawing.ID

	color := "#ff0000"
	updated, err := svc.UpdateDrawing(ctx, "prof1", id, drawing.Patch{Color: &color})
	if err != nil {
		t.Fatalf("UpdateDrawing() failed: %v", err)
	}
	if updated.Color != color || updated.Kind != drawing.KindHLine {
		t.Fatalf("UpdateDrawing() = %+v; want recolored hline", updated)
	}

	_, err = svc.UpdateDrawing(ctx, "prof1", "missing", drawing.Patch{Color: &color})
	if codeOf(t, err) != CodeNotFound {
		t.Fatalf("UpdateDrawing(missing) code = %v; want NOT_FOUND", err)
	}

	if err := svc.SelectDrawing(ctx, "prof1", id); err != nil {
		t.Fatalf("SelectDrawing() failed: %v", err)
	}
	if err := svc.DeleteDrawing(ctx, "prof1", id); err != nil {
		t.Fatalf("DeleteDrawing() failed: %v", err)
	}

	view, err := svc.ListDrawings(ctx, "prof1")
	if err != nil {
		t.Fatalf("ListDrawings() failed: %v", err)
	}
	if len(view.Drawings) != 0 || view.Selected != "" {
		t.Fatalf("after delete view = %+v; want empty, no selection", view)
	}

	if _, err := svc.Click(ctx, "prof1", drawing.KindVLine, drawing.PricePoint{Time: 10}, ""); err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	if err := svc.ClearDrawings(ctx, "prof1"); err != nil {
		t.Fatalf("ClearDrawings() failed: %v", err)
	}
	view, err = svc.ListDrawings(ctx, "prof1")
	if err != nil {
		t.Fatalf("ListDrawings() failed: %v", err)
	}
	if len(view.Drawings) != 0 || view.State != "idle" {
		t.Fatalf("after clear view = %+v; want empty idle", view)
	}
}

func TestSetDrawingsVisible(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Click(ctx, "prof1", drawing.KindHLine, drawing.PricePoint{Price: float64(i)}, ""); err != nil {
			t.Fatalf("Click() failed: %v", err)
		}
	}
	if err := svc.SetDrawingsVisible(ctx, "prof1", false); err != nil {
		t.Fatalf("SetDrawingsVisible() failed: %v", err)
	}

	view, err := svc.ListDrawings(ctx, "prof1")
	if err != nil {
		t.Fatalf("ListDrawings() failed: %v", err)
	}
	for _, d := range view.Drawings {
		if d.Visible {
			t.Fatalf("drawing %s still visible after bulk hide", d.ID)
		}
	}
}

func TestDrawingEventsPublished(t *testing.T) {
	svc, _, broker := newTestService(t)
	id, ch := broker.Subscribe()
	defer broker.Unsubscribe(id)

	if _, err := svc.Click(context.Background(), "prof1", drawing.KindHLine, drawing.PricePoint{Price: 1}, ""); err != nil {
		t.Fatalf("Click() failed: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Feed != relay.FeedDrawings || evt.Type != "drawing.committed" {
			t.Fatalf("event = %+v; want drawings/drawing.committed", evt)
		}
	default:
		t.Fatalf("no event published for committed drawing")
	}
}
