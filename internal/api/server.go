package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tv_overlay/internal/controller"
	"github.com/dgnsrekt/tv_overlay/internal/drawing"
	"github.com/dgnsrekt/tv_overlay/internal/overlay"
	"github.com/dgnsrekt/tv_overlay/internal/relay"
)

type Service interface {
	SaveScript(ctx context.Context, owner string, script overlay.ChartScript) error
	GetScript(ctx context.Context, owner, id string) (overlay.ChartScript, error)
	ListScripts(ctx context.Context, owner, symbol string) ([]overlay.ChartScript, error)
	DeleteScript(ctx context.Context, owner, id string) error
	EvaluateScript(ctx context.Context, owner, id string, candles []overlay.Candle) (overlay.EvaluationResult, error)
	EvaluateInline(ctx context.Context, script overlay.ChartScript, candles []overlay.Candle) (overlay.EvaluationResult, error)

	ListDrawings(ctx context.Context, profile string) (controller.DrawingsView, error)
	Click(ctx context.Context, profile string, tool drawing.Kind, pt drawing.PricePoint, label string) (controller.ClickResult, error)
	BrushStart(ctx context.Context, profile string, pt drawing.PricePoint) (controller.ClickResult, error)
	BrushMove(ctx context.Context, profile string, pt drawing.PricePoint) (controller.ClickResult, error)
	BrushEnd(ctx context.Context, profile string) (controller.ClickResult, error)
	CancelPending(ctx context.Context, profile string) (controller.ClickResult, error)
	UpdateDrawing(ctx context.Context, profile, id string, patch drawing.Patch) (drawing.Drawing, error)
	DeleteDrawing(ctx context.Context, profile, id string) error
	ClearDrawings(ctx context.Context, profile string) error
	SetDrawingsVisible(ctx context.Context, profile string, visible bool) error
	SelectDrawing(ctx context.Context, profile, id string) error
}

// NewServer builds the HTTP handler: the versioned REST API, docs, metrics and
// the two event transports.
func NewServer(svc Service, broker *relay.Broker, metricsHandler http.Handler) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Overlay Service API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Handle("/metrics", metricsHandler)
	router.Get("/api/v1/events", relay.SSEHandler(broker))
	router.Get("/api/v1/ws/events", relay.WSHandler(broker))

	registerScriptHandlers(api, svc)
	registerDrawingHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *controller.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case controller.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case controller.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
