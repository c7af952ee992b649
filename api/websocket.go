package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"clob/feed"
	"clob/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by the outer middleware
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// handleWebSocket streams the live feed to one connection. The default
// delivery mode is lossy; ?mode=strict gets every event or a close,
// never a silent gap. Each connection owns a distributor subscription,
// so a slow client only ever hurts itself.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	mode := feed.ModeLossy
	if r.URL.Query().Get("mode") == "strict" {
		mode = feed.ModeStrict
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := s.dist.Subscribe(mode, s.cfg.FeedBuffer)
	go s.readPump(conn, sub)
	go s.writePump(conn, sub)
}

// readPump discards client frames; its job is liveness. A read error
// or close frame tears the subscription down, which ends writePump.
func (s *Server) readPump(conn *websocket.Conn, sub *feed.Subscription) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, sub *feed.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
	}()

	// The snapshot goes first so the client can apply the stream of
	// book deltas to a known base.
	snap := s.eng.Snapshot()
	if err := s.writeJSON(conn, wsSnapshot{Type: "snapshot", Depth: depthOf(snap)}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := s.writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev feed.Event) error {
	for _, t := range ev.Trades {
		if err := s.writeJSON(conn, wsTrade{Type: "trade", Trade: wire.FromTrade(t)}); err != nil {
			return err
		}
	}
	if len(ev.Levels) == 0 {
		return nil
	}

	msg := wsBook{Type: "book", Seq: ev.Seq, Levels: make([]wire.LevelUpdate, 0, len(ev.Levels))}
	for _, c := range ev.Levels {
		msg.Levels = append(msg.Levels, wire.FromLevelChange(c))
	}
	return s.writeJSON(conn, msg)
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
