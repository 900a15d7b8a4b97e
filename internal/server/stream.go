package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 5 * time.Second

var statusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// handleStatusWS pushes the current status snapshot immediately, then on
// every push interval, until the client goes away.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		http.Error(w, "monitor not running", http.StatusServiceUnavailable)
		return
	}
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStatusStream(conn)
}

func (s *Server) serveStatusStream(conn *websocket.Conn) {
	defer conn.Close()

	if err := s.writeSnapshot(conn); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.writeSnapshot(conn); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(s.deps.Status.Snapshot())
}
