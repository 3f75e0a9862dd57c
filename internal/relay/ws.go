package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type wireEvent struct {
	Feed    string          `json:"feed"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WSHandler mirrors the SSE feed over a websocket for clients that prefer a
// socket transport. Client frames are drained only to detect disconnects.
func WSHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}

		id, ch := broker.Subscribe()
		slog.Debug("websocket subscriber attached", "subscriber_id", id, "remote", r.RemoteAddr)
		defer func() {
			broker.Unsubscribe(id)
			_ = conn.Close()
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				frame, err := json.Marshal(wireEvent{Feed: evt.Feed, Type: evt.Type, Payload: json.RawMessage(evt.Payload)})
				if err != nil {
					slog.Debug("event marshal failed", "error", err)
					continue
				}
				if err := wsutil.WriteServerText(conn, frame); err != nil {
					return
				}
			}
		}
	}
}
