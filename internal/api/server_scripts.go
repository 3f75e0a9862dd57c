package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_overlay/internal/overlay"
)

// decodeScript turns a raw JSON script document into a ChartScript, surfacing
// unknown element or generator kinds as a 400.
func decodeScript(doc map[string]any, id string) (overlay.ChartScript, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return overlay.ChartScript{}, huma.Error400BadRequest("invalid script document: " + err.Error())
	}
	var script overlay.ChartScript
	if err := json.Unmarshal(data, &script); err != nil {
		return overlay.ChartScript{}, huma.Error400BadRequest("invalid script document: " + err.Error())
	}
	if id != "" {
		script.ID = id
	}
	return script, nil
}

func registerScriptHandlers(api huma.API, svc Service) {
	type scriptKeyInput struct {
		Owner    string `path:"owner"`
		ScriptID string `path:"script_id"`
	}

	type scriptStatusOutput struct {
		Body struct {
			Owner    string `json:"owner"`
			ScriptID string `json:"script_id"`
			Status   string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "save-script", Method: http.MethodPut, Path: "/api/v1/scripts/{owner}/{script_id}", Summary: "Create or replace a chart script", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *struct {
			Owner    string         `path:"owner"`
			ScriptID string         `path:"script_id"`
			Body     map[string]any `doc:"Script document: name, symbol, visible, elements, generators"`
		}) (*scriptStatusOutput, error) {
			script, err := decodeScript(input.Body, input.ScriptID)
			if err != nil {
				return nil, err
			}
			if err := svc.SaveScript(ctx, input.Owner, script); err != nil {
				return nil, mapErr(err)
			}
			out := &scriptStatusOutput{}
			out.Body.Owner = input.Owner
			out.Body.ScriptID = input.ScriptID
			out.Body.Status = "saved"
			return out, nil
		})

	type scriptOutput struct {
		Body struct {
			Owner  string `json:"owner"`
			Script any    `json:"script"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-script", Method: http.MethodGet, Path: "/api/v1/scripts/{owner}/{script_id}", Summary: "Get a chart script", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *scriptKeyInput) (*scriptOutput, error) {
			script, err := svc.GetScript(ctx, input.Owner, input.ScriptID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &scriptOutput{}
			out.Body.Owner = input.Owner
			out.Body.Script = script
			return out, nil
		})

	type scriptListOutput struct {
		Body struct {
			Owner   string `json:"owner"`
			Scripts any    `json:"scripts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-scripts", Method: http.MethodGet, Path: "/api/v1/scripts/{owner}", Summary: "List an owner's chart scripts", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *struct {
			Owner  string `path:"owner"`
			Symbol string `query:"symbol" doc:"Only scripts in scope for this symbol. Omit to list everything."`
		}) (*scriptListOutput, error) {
			scripts, err := svc.ListScripts(ctx, input.Owner, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &scriptListOutput{}
			out.Body.Owner = input.Owner
			out.Body.Scripts = scripts
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-script", Method: http.MethodDelete, Path: "/api/v1/scripts/{owner}/{script_id}", Summary: "Delete a chart script", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *scriptKeyInput) (*struct{}, error) {
			if err := svc.DeleteScript(ctx, input.Owner, input.ScriptID); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})

	type evaluationOutput struct {
		Body overlay.EvaluationResult
	}
	huma.Register(api, huma.Operation{OperationID: "evaluate-script", Method: http.MethodPost, Path: "/api/v1/scripts/{owner}/{script_id}/evaluate", Summary: "Evaluate a stored script over a candle series", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *struct {
			Owner    string `path:"owner"`
			ScriptID string `path:"script_id"`
			Body     struct {
				Candles []overlay.Candle `json:"candles" required:"true"`
			}
		}) (*evaluationOutput, error) {
			res, err := svc.EvaluateScript(ctx, input.Owner, input.ScriptID, input.Body.Candles)
			if err != nil {
				return nil, mapErr(err)
			}
			return &evaluationOutput{Body: res}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "evaluate-inline", Method: http.MethodPost, Path: "/api/v1/evaluate", Summary: "Evaluate a script document without storing it", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Script  map[string]any   `json:"script" required:"true"`
				Candles []overlay.Candle `json:"candles" required:"true"`
			}
		}) (*evaluationOutput, error) {
			script, err := decodeScript(input.Body.Script, "")
			if err != nil {
				return nil, err
			}
			res, err := svc.EvaluateInline(ctx, script, input.Body.Candles)
			if err != nil {
				return nil, mapErr(err)
			}
			return &evaluationOutput{Body: res}, nil
		})
}
