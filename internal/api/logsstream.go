package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// HandleLogsStream serves GET /api/logs/stream: a websocket feed of
// newly appended RequestLog entries, supplementing the polling
// GET /api/logs. github.com/coder/websocket is listed in the teacher's
// go.mod but never imported by any teacher .go file; SPEC_FULL.md's
// DOMAIN STACK calls for wiring it here.
func (s *Server) HandleLogsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Logger.Warn("logs stream: accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ch, unsubscribe := s.Store.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "client disconnected")
			return
		case entry, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "server closing")
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
