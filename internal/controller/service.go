package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_overlay/internal/drawing"
	"github.com/dgnsrekt/tv_overlay/internal/journal"
	"github.com/dgnsrekt/tv_overlay/internal/metrics"
	"github.com/dgnsrekt/tv_overlay/internal/overlay"
	"github.com/dgnsrekt/tv_overlay/internal/relay"
	"github.com/dgnsrekt/tv_overlay/internal/store"
)

// ClickResult reports the outcome of one interaction step: the session state
// after the step and the drawing it committed, if any.
type ClickResult struct {
	State   string           `json:"state"`
	Drawing *drawing.Drawing `json:"drawing,omitempty"`
}

// DrawingsView is the full interactive state of one profile.
type DrawingsView struct {
	State    string            `json:"state"`
	Selected string            `json:"selected,omitempty"`
	Drawings []drawing.Drawing `json:"drawings"`
}

type profileState struct {
	session    *drawing.Session
	collection *drawing.Collection
}

// Service implements the overlay operations behind the HTTP API. Script
// persistence errors surface to the caller; drawing persistence is a
// best-effort mirror of the in-memory collections and failures are only
// logged and counted.
type Service struct {
	store   store.Store
	broker  *relay.Broker
	metrics *metrics.Metrics
	journal *journal.Writer

	mu       sync.Mutex
	profiles map[string]*profileState
}

// New wires a service. journal may be nil to disable audit records.
func New(st store.Store, broker *relay.Broker, m *metrics.Metrics, jw *journal.Writer) *Service {
	return &Service{
		store:    st,
		broker:   broker,
		metrics:  m,
		journal:  jw,
		profiles: make(map[string]*profileState),
	}
}

func requireKey(fieldName, value string) error {
	if !store.ValidKey(value) {
		return newError(CodeValidation, fieldName+" must be a plain token (letters, digits, . _ -)", nil)
	}
	return nil
}

func (s *Service) publish(feed, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event payload marshal failed", "feed", feed, "type", eventType, "error", err)
		return
	}
	s.broker.Publish(relay.Event{Feed: feed, Type: eventType, Payload: string(data)})
}

func (s *Service) record(entry journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(entry); err != nil {
		slog.Debug("journal append failed", "type", entry.Type, "error", err)
	}
}

// SaveScript validates and upserts a script under an owner.
func (s *Service) SaveScript(ctx context.Context, owner string, script overlay.ChartScript) error {
	if err := requireKey("owner", owner); err != nil {
		return err
	}
	if err := requireKey("script id", script.ID); err != nil {
		return err
	}
	if script.Name == "" {
		return newError(CodeValidation, "script name is required", nil)
	}

	if err := s.store.SaveScript(owner, script); err != nil {
		return newError(CodeStoreFailure, "failed to save script", err)
	}

	slog.Info("script saved", "owner", owner, "script_id", script.ID, "symbol", script.Symbol)
	s.publish(relay.FeedScripts, "script.saved", map[string]any{"owner": owner, "script": script})
	s.record(journal.Entry{Type: "script.saved", Owner: owner, Detail: map[string]string{"script_id": script.ID}})
	return nil
}

// GetScript returns one script by owner and id.
func (s *Service) GetScript(ctx context.Context, owner, id string) (overlay.ChartScript, error) {
	if err := requireKey("owner", owner); err != nil {
		return overlay.ChartScript{}, err
	}
	if err := requireKey("script id", id); err != nil {
		return overlay.ChartScript{}, err
	}

	script, err := s.store.GetScript(owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return overlay.ChartScript{}, newError(CodeNotFound, "script not found: "+id, err)
		}
		return overlay.ChartScript{}, newError(CodeStoreFailure, "failed to load script", err)
	}
	return script, nil
}

// ListScripts returns the owner's scripts in scope for an optional symbol.
func (s *Service) ListScripts(ctx context.Context, owner, symbol string) ([]overlay.ChartScript, error) {
	if err := requireKey("owner", owner); err != nil {
		return nil, err
	}

	scripts, err := s.store.ListScripts(owner, symbol)
	if err != nil {
		return nil, newError(CodeStoreFailure, "failed to list scripts", err)
	}
	return scripts, nil
}

// DeleteScript removes a script.
func (s *Service) DeleteScript(ctx context.Context, owner, id string) error {
	if err := requireKey("owner", owner); err != nil {
		return err
	}
	if err := requireKey("script id", id); err != nil {
		return err
	}

	if err := s.store.DeleteScript(owner, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "script not found: "+id, err)
		}
		return newError(CodeStoreFailure, "failed to delete script", err)
	}

	slog.Info("script deleted", "owner", owner, "script_id", id)
	s.publish(relay.FeedScripts, "script.deleted", map[string]string{"owner": owner, "script_id": id})
	s.record(journal.Entry{Type: "script.deleted", Owner: owner, Detail: map[string]string{"script_id": id}})
	return nil
}

// EvaluateScript loads a stored script and evaluates it over the candle series.
func (s *Service) EvaluateScript(ctx context.Context, owner, id string, candles []overlay.Candle) (overlay.EvaluationResult, error) {
	script, err := s.GetScript(ctx, owner, id)
	if err != nil {
		return overlay.EvaluationResult{}, err
	}
	return s.evaluate(script, candles), nil
}

// EvaluateInline evaluates a script sent in the request body without storing it.
func (s *Service) EvaluateInline(ctx context.Context, script overlay.ChartScript, candles []overlay.Candle) (overlay.EvaluationResult, error) {
	if script.ID == "" {
		return overlay.EvaluationResult{}, newError(CodeValidation, "script id is required", nil)
	}
	return s.evaluate(script, candles), nil
}

func (s *Service) evaluate(script overlay.ChartScript, candles []overlay.Candle) overlay.EvaluationResult {
	start := time.Now()
	res := overlay.Evaluate(script, candles)
	s.metrics.EvaluationDur.Observe(time.Since(start).Seconds())
	s.metrics.EvaluationsTotal.Inc()
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindLine)).Add(float64(len(res.Lines)))
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindHLine)).Add(float64(len(res.HLines)))
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindVLine)).Add(float64(len(res.VLines)))
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindBox)).Add(float64(len(res.Boxes)))
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindMarker)).Add(float64(len(res.Markers)))
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindLabel)).Add(float64(len(res.Labels)))
	s.metrics.PrimitivesTotal.WithLabelValues(string(overlay.KindShade)).Add(float64(len(res.Shades)))

	slog.Debug("script evaluated",
		"script_id", script.ID,
		"candles", len(candles),
		"duration", time.Since(start))
	return res
}

// profile returns the cached interactive state for a profile, loading the
// persisted drawing set on first touch. Callers must hold s.mu.
func (s *Service) profile(name string) (*profileState, error) {
	if st, ok := s.profiles[name]; ok {
		return st, nil
	}

	set, err := s.store.LoadDrawings(name)
	if err != nil {
		return nil, newError(CodeStoreFailure, "failed to load drawings", err)
	}
	st := &profileState{
		session:    drawing.NewSession(),
		collection: drawing.FromSavedSet(set),
	}
	s.profiles[name] = st
	return st, nil
}

// persistDrawings mirrors the collection to the store. Failures are logged and
// counted but never surfaced: the in-memory collection stays authoritative.
func (s *Service) persistDrawings(profile string, st *profileState) {
	if err := s.store.SaveDrawings(profile, st.collection.SavedSet()); err != nil {
		s.metrics.StoreSaveFailures.Inc()
		slog.Warn("drawing persistence failed", "profile", profile, "error", err)
	}
}

// ListDrawings returns the interactive state of a profile.
func (s *Service) ListDrawings(ctx context.Context, profile string) (DrawingsView, error) {
	if err := requireKey("profile", profile); err != nil {
		return DrawingsView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return DrawingsView{}, err
	}
	return DrawingsView{
		State:    st.session.State().String(),
		Selected: st.collection.Selected(),
		Drawings: st.collection.List(),
	}, nil
}

// Click feeds one chart click into the profile's session.
func (s *Service) Click(ctx context.Context, profile string, tool drawing.Kind, pt drawing.PricePoint, label string) (ClickResult, error) {
	if err := requireKey("profile", profile); err != nil {
		return ClickResult{}, err
	}
	if !drawing.ValidClickTool(tool) {
		return ClickResult{}, newError(CodeValidation, "unknown tool: "+string(tool), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return ClickResult{}, err
	}

	d := st.session.Click(tool, pt, label)
	if d != nil {
		s.commitDrawing(profile, st, *d)
	}
	return ClickResult{State: st.session.State().String(), Drawing: d}, nil
}

// BrushStart begins a freehand stroke, discarding any pending placement.
func (s *Service) BrushStart(ctx context.Context, profile string, pt drawing.PricePoint) (ClickResult, error) {
	if err := requireKey("profile", profile); err != nil {
		return ClickResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return ClickResult{}, err
	}
	st.session.StartBrush(pt)
	return ClickResult{State: st.session.State().String()}, nil
}

// BrushMove extends the in-progress stroke.
func (s *Service) BrushMove(ctx context.Context, profile string, pt drawing.PricePoint) (ClickResult, error) {
	if err := requireKey("profile", profile); err != nil {
		return ClickResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return ClickResult{}, err
	}
	st.session.MoveBrush(pt)
	return ClickResult{State: st.session.State().String()}, nil
}

// BrushEnd finishes the stroke, committing it when long enough.
func (s *Service) BrushEnd(ctx context.Context, profile string) (ClickResult, error) {
	if err := requireKey("profile", profile); err != nil {
		return ClickResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return ClickResult{}, err
	}

	d := st.session.EndBrush()
	if d != nil {
		s.commitDrawing(profile, st, *d)
	}
	return ClickResult{State: st.session.State().String(), Drawing: d}, nil
}

// CancelPending aborts any pending placement or stroke.
func (s *Service) CancelPending(ctx context.Context, profile string) (ClickResult, error) {
	if err := requireKey("profile", profile); err != nil {
		return ClickResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return ClickResult{}, err
	}
	st.session.CancelPending()
	return ClickResult{State: st.session.State().String()}, nil
}

func (s *Service) commitDrawing(profile string, st *profileState, d drawing.Drawing) {
	st.collection.Add(d)
	s.persistDrawings(profile, st)
	s.metrics.DrawingsCommitted.WithLabelValues(string(d.Kind)).Inc()

	slog.Info("drawing committed", "profile", profile, "drawing_id", d.ID, "kind", d.Kind)
	s.publish(relay.FeedDrawings, "drawing.committed", map[string]any{"profile": profile, "drawing": d})
	s.record(journal.Entry{Type: "drawing.committed", Profile: profile, Detail: map[string]string{"drawing_id": d.ID, "kind": string(d.Kind)}})
}

// UpdateDrawing merges a partial patch into an existing drawing.
func (s *Service) UpdateDrawing(ctx context.Context, profile, id string, patch drawing.Patch) (drawing.Drawing, error) {
	if err := requireKey("profile", profile); err != nil {
		return drawing.Drawing{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return drawing.Drawing{}, err
	}

	d, ok := st.collection.Update(id, patch)
	if !ok {
		return drawing.Drawing{}, newError(CodeNotFound, "drawing not found: "+id, nil)
	}
	s.persistDrawings(profile, st)

	s.publish(relay.FeedDrawings, "drawing.updated", map[string]any{"profile": profile, "drawing": d})
	s.record(journal.Entry{Type: "drawing.updated", Profile: profile, Detail: map[string]string{"drawing_id": id}})
	return d, nil
}

// DeleteDrawing removes one drawing from the profile.
func (s *Service) DeleteDrawing(ctx context.Context, profile, id string) error {
	if err := requireKey("profile", profile); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return err
	}

	if !st.collection.Remove(id) {
		return newError(CodeNotFound, "drawing not found: "+id, nil)
	}
	s.persistDrawings(profile, st)

	slog.Info("drawing deleted", "profile", profile, "drawing_id", id)
	s.publish(relay.FeedDrawings, "drawing.deleted", map[string]string{"profile": profile, "drawing_id": id})
	s.record(journal.Entry{Type: "drawing.deleted", Profile: profile, Detail: map[string]string{"drawing_id": id}})
	return nil
}

// ClearDrawings empties the profile's collection and resets the session.
func (s *Service) ClearDrawings(ctx context.Context, profile string) error {
	if err := requireKey("profile", profile); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return err
	}

	st.collection.ClearAll()
	st.session.CancelPending()
	s.persistDrawings(profile, st)

	slog.Info("drawings cleared", "profile", profile)
	s.publish(relay.FeedDrawings, "drawings.cleared", map[string]string{"profile": profile})
	s.record(journal.Entry{Type: "drawings.cleared", Profile: profile})
	return nil
}

// SetDrawingsVisible bulk-toggles visibility on every drawing in the profile.
func (s *Service) SetDrawingsVisible(ctx context.Context, profile string, visible bool) error {
	if err := requireKey("profile", profile); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return err
	}

	st.collection.SetVisibleAll(visible)
	s.persistDrawings(profile, st)

	s.publish(relay.FeedDrawings, "drawings.visibility", map[string]any{"profile": profile, "visible": visible})
	s.record(journal.Entry{Type: "drawings.visibility", Profile: profile, Detail: map[string]bool{"visible": visible}})
	return nil
}

// SelectDrawing marks one drawing as the active selection.
func (s *Service) SelectDrawing(ctx context.Context, profile, id string) error {
	if err := requireKey("profile", profile); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.profile(profile)
	if err != nil {
		return err
	}

	if !st.collection.Select(id) {
		return newError(CodeNotFound, "drawing not found: "+id, nil)
	}
	return nil
}
