package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_overlay/internal/controller"
	"github.com/dgnsrekt/tv_overlay/internal/drawing"
)

func registerDrawingHandlers(api huma.API, svc Service) {
	type profileInput struct {
		Profile string `path:"profile"`
	}

	type drawingsViewOutput struct {
		Body controller.DrawingsView
	}
	huma.Register(api, huma.Operation{OperationID: "list-drawings", Method: http.MethodGet, Path: "/api/v1/profiles/{profile}/drawings", Summary: "Get a profile's drawings and session state", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *profileInput) (*drawingsViewOutput, error) {
			view, err := svc.ListDrawings(ctx, input.Profile)
			if err != nil {
				return nil, mapErr(err)
			}
			return &drawingsViewOutput{Body: view}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "clear-drawings", Method: http.MethodDelete, Path: "/api/v1/profiles/{profile}/drawings", Summary: "Remove every drawing in the profile", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *profileInput) (*struct{}, error) {
			if err := svc.ClearDrawings(ctx, input.Profile); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})

	type clickResultOutput struct {
		Body controller.ClickResult
	}
	huma.Register(api, huma.Operation{OperationID: "click", Method: http.MethodPost, Path: "/api/v1/profiles/{profile}/drawings/click", Summary: "Feed one chart click to the drawing session", Tags: []string{"Interaction"}},
		func(ctx context.Context, input *struct {
			Profile string `path:"profile"`
			Body    struct {
				Tool  string             `json:"tool" required:"true" doc:"Drawing tool: hline, vline, trendline, ray, arrow, extendedline, channel, rectangle, fib, measure, text, ruler"`
				Point drawing.PricePoint `json:"point" required:"true"`
				Label string             `json:"label,omitempty" doc:"Label text for the text tool. Empty aborts a text placement."`
			}
		}) (*clickResultOutput, error) {
			res, err := svc.Click(ctx, input.Profile, drawing.Kind(input.Body.Tool), input.Body.Point, input.Body.Label)
			if err != nil {
				return nil, mapErr(err)
			}
			return &clickResultOutput{Body: res}, nil
		})

	type brushPointInput struct {
		Profile string `path:"profile"`
		Body    struct {
			Point drawing.PricePoint `json:"point" required:"true"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "brush-start", Method: http.MethodPost, Path: "/api/v1/profiles/{profile}/drawings/brush/start", Summary: "Begin a freehand brush stroke", Tags: []string{"Interaction"}},
		func(ctx context.Context, input *brushPointInput) (*clickResultOutput, error) {
			res, err := svc.BrushStart(ctx, input.Profile, input.Body.Point)
			if err != nil {
				return nil, mapErr(err)
			}
			return &clickResultOutput{Body: res}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "brush-move", Method: http.MethodPost, Path: "/api/v1/profiles/{profile}/drawings/brush/move", Summary: "Extend the in-progress brush stroke", Tags: []string{"Interaction"}},
		func(ctx context.Context, input *brushPointInput) (*clickResultOutput, error) {
			res, err := svc.BrushMove(ctx, input.Profile, input.Body.Point)
			if err != nil {
				return nil, mapErr(err)
			}
			return &clickResultOutput{Body: res}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "brush-end", Method: http.MethodPost, Path: "/api/v1/profiles/{profile}/drawings/brush/end", Summary: "Finish the brush stroke, committing it when long enough", Tags: []string{"Interaction"}},
		func(ctx context.Context, input *profileInput) (*clickResultOutput, error) {
			res, err := svc.BrushEnd(ctx, input.Profile)
			if err != nil {
				return nil, mapErr(err)
			}
			return &clickResultOutput{Body: res}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "cancel-pending", Method: http.MethodPost, Path: "/api/v1/profiles/{profile}/drawings/cancel", Summary: "Abort any pending placement or stroke", Tags: []string{"Interaction"}},
		func(ctx context.Context, input *profileInput) (*clickResultOutput, error) {
			res, err := svc.CancelPending(ctx, input.Profile)
			if err != nil {
				return nil, mapErr(err)
			}
			return &clickResultOutput{Body: res}, nil
		})

	type drawingKeyInput struct {
		Profile   string `path:"profile"`
		DrawingID string `path:"drawing_id"`
	}

	type drawingOutput struct {
		Body struct {
			Profile string          `json:"profile"`
			Drawing drawing.Drawing `json:"drawing"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "update-drawing", Method: http.MethodPatch, Path: "/api/v1/profiles/{profile}/drawings/{drawing_id}", Summary: "Merge a partial update into a drawing", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *struct {
			Profile   string `path:"profile"`
			DrawingID string `path:"drawing_id"`
			Body      drawing.Patch
		}) (*drawingOutput, error) {
			d, err := svc.UpdateDrawing(ctx, input.Profile, input.DrawingID, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &drawingOutput{}
			out.Body.Profile = input.Profile
			out.Body.Drawing = d
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-drawing", Method: http.MethodDelete, Path: "/api/v1/profiles/{profile}/drawings/{drawing_id}", Summary: "Delete one drawing", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *drawingKeyInput) (*struct{}, error) {
			if err := svc.DeleteDrawing(ctx, input.Profile, input.DrawingID); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})

	type profileStatusOutput struct {
		Body struct {
			Profile string `json:"profile"`
			Status  string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-drawings-visibility", Method: http.MethodPut, Path: "/api/v1/profiles/{profile}/drawings/visibility", Summary: "Show or hide every drawing in the profile", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *struct {
			Profile string `path:"profile"`
			Body    struct {
				Visible bool `json:"visible"`
			}
		}) (*profileStatusOutput, error) {
			if err := svc.SetDrawingsVisible(ctx, input.Profile, input.Body.Visible); err != nil {
				return nil, mapErr(err)
			}
			out := &profileStatusOutput{}
			out.Body.Profile = input.Profile
			out.Body.Status = "set"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "select-drawing", Method: http.MethodPut, Path: "/api/v1/profiles/{profile}/drawings/{drawing_id}/select", Summary: "Mark a drawing as the active selection", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *drawingKeyInput) (*profileStatusOutput, error) {
			if err := svc.SelectDrawing(ctx, input.Profile, input.DrawingID); err != nil {
				return nil, mapErr(err)
			}
			out := &profileStatusOutput{}
			out.Body.Profile = input.Profile
			out.Body.Status = "selected"
			return out, nil
		})
}
