package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/tv_overlay/internal/controller"
	"github.com/dgnsrekt/tv_overlay/internal/metrics"
	"github.com/dgnsrekt/tv_overlay/internal/relay"
	"github.com/dgnsrekt/tv_overlay/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = fs.Close() })

	broker := relay.NewBroker()
	m := metrics.New()
	svc := controller.New(fs, broker, m, nil)
	ts := httptest.NewServer(NewServer(svc, broker, m.Handler()))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest() failed: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	var decoded map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("response %q is not JSON: %v", data, err)
		}
	}
	return resp.StatusCode, decoded
}

func TestScriptLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	scriptDoc := `{
		"name": "levels",
		"symbol": "EURUSD",
		"visible": true,
		"elements": [{"kind": "hline", "spec": {"id": "h1", "price": 1.1}}],
		"generators": [{"kind": "prev_day_levels", "spec": {}}]
	}`
	code, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/scripts/alice/scr1", scriptDoc)
	if code != http.StatusOK {
		t.Fatalf("save script status = %d; want 200", code)
	}

	code, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/scripts/alice/scr1", "")
	if code != http.StatusOK {
		t.Fatalf("get script status = %d; want 200", code)
	}
	script, ok := body["script"].(map[string]any)
	if !ok || script["name"] != "levels" {
		t.Fatalf("get script body = %v; want saved script", body)
	}

	code, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/scripts/alice/missing", "")
	if code != http.StatusNotFound {
		t.Fatalf("get missing script status = %d; want 404", code)
	}

	code, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/scripts/alice/scr1/evaluate",
		`{"candles": [{"time": 1704067200, "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10}]}`)
	if code != http.StatusOK {
		t.Fatalf("evaluate status = %d; want 200", code)
	}
	if body["script_id"] != "scr1" {
		t.Fatalf("evaluate body = %v; want script_id scr1", body)
	}
	hlines, ok := body["hlines"].([]any)
	if !ok || len(hlines) != 1 {
		t.Fatalf("evaluate hlines = %v; want the static hline", body["hlines"])
	}

	code, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/scripts/alice/scr1", "")
	if code != http.StatusOK && code != http.StatusNoContent {
		t.Fatalf("delete script status = %d; want success", code)
	}
}

func TestSaveScriptRejectsUnknownElementKind(t *testing.T) {
	ts := newTestServer(t)

	code, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/scripts/alice/scr1",
		`{"name": "bad", "elements": [{"kind": "trapezoid", "spec": {}}]}`)
	if code != http.StatusBadRequest {
		t.Fatalf("save script with unknown kind status = %d; want 400", code)
	}
}

func TestDrawingInteractionOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1/profiles/prof1/drawings"

	code, body := doJSON(t, http.MethodPost, base+"/click",
		`{"tool": "trendline", "point": {"time": 100, "price": 1.5}}`)
	if code != http.StatusOK {
		t.Fatalf("first click status = %d; want 200", code)
	}
	if body["state"] != "placing" {
		t.Fatalf("first click state = %v; want placing", body["state"])
	}

	code, body = doJSON(t, http.MethodPost, base+"/click",
		`{"tool": "trendline", "point": {"time": 200, "price": 2.5}}`)
	if code != http.StatusOK {
		t.Fatalf("second click status = %d; want 200", code)
	}
	committed, ok := body["drawing"].(map[string]any)
	if !ok || committed["kind"] != "trendline" {
		t.Fatalf("second click body = %v; want committed trendline", body)
	}
	id, _ := committed["id"].(string)
	if id == "" {
		t.Fatalf("committed drawing has no id: %v", committed)
	}

	code, body = doJSON(t, http.MethodPatch, base+"/"+id, `{"color": "#ff0000"}`)
	if code != http.StatusOK {
		t.Fatalf("patch status = %d; want 200", code)
	}
	patched := body["drawing"].(map[string]any)
	if patched["color"] != "#ff0000" {
		t.Fatalf("patched color = %v; want #ff0000", patched["color"])
	}

	code, _ = doJSON(t, http.MethodPost, base+"/click", `{"tool": "spiral", "point": {"time": 1, "price": 1}}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown tool status = %d; want 400", code)
	}

	code, body = doJSON(t, http.MethodGet, base, "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d; want 200", code)
	}
	drawings, ok := body["drawings"].([]any)
	if !ok || len(drawings) != 1 {
		t.Fatalf("list drawings = %v; want one drawing", body["drawings"])
	}

	code, _ = doJSON(t, http.MethodDelete, base, "")
	if code != http.StatusOK && code != http.StatusNoContent {
		t.Fatalf("clear status = %d; want success", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d; want 200", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics failed: %v", err)
	}
	if !strings.Contains(string(data), "overlay_evaluations_total") {
		t.Fatalf("metrics output missing overlay_evaluations_total")
	}
}

func TestDocsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/docs")
	if err != nil {
		t.Fatalf("GET /docs failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("docs status = %d; want 200", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read docs failed: %v", err)
	}
	if !strings.Contains(string(data), "elements-api") {
		t.Fatalf("docs page missing embedded API viewer")
	}
}
