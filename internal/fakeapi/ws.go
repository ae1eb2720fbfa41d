package fakeapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/agendacontatos/agenda.go/pkg/connection/gorillaws"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// serveWS answers every Frame by running it through the same handlers as
// plain HTTP. Frames are handled concurrently, so replies may arrive out of
// order.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeLock sync.Mutex
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame gorillaws.Frame
		if err := s.codec.Unmarshal(data, &frame); err != nil {
			continue
		}
		go func() {
			reply, ok := s.dispatch(frame, func() { conn.Close() })
			if !ok {
				return
			}
			out, err := s.codec.Marshal(reply)
			if err != nil {
				return
			}
			writeLock.Lock()
			defer writeLock.Unlock()
			_ = conn.WriteMessage(websocket.TextMessage, out)
		}()
	}
}

func (s *Server) dispatch(frame gorillaws.Frame, drop func()) (gorillaws.Reply, bool) {
	req, err := http.NewRequest(frame.Method, "http://fakeapi"+Prefix+frame.Path, bytes.NewReader(frame.Body))
	if err != nil {
		return gorillaws.Reply{ID: frame.ID, Status: http.StatusBadRequest}, true
	}
	if frame.Token != "" {
		req.Header.Set("Authorization", "Bearer "+frame.Token)
	}

	dropped := false
	rec := httptest.NewRecorder()
	s.serve(rec, req, func() {
		dropped = true
		drop()
	})
	if dropped {
		return gorillaws.Reply{}, false
	}

	body := rec.Body.Bytes()
	if len(body) > 0 && !json.Valid(body) {
		// a Reply can only carry JSON
		body, _ = json.Marshal(string(body))
	}
	return gorillaws.Reply{ID: frame.ID, Status: rec.Code, Body: body}, true
}
