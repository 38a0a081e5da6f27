package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS upgrades the request and keeps the viewer in the post's room until
// the connection ends. viewer is nil for anonymous visitors, who receive
// updates without being listed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, postID string, viewer *Viewer) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("websocket upgrade failed", "post_id", postID, "error", err)
		return
	}

	p := h.join(postID, viewer)
	go h.writePump(conn, p)
	h.readPump(conn, p)
	h.leave(postID, p)
}

// readPump processes control frames and notices when the connection goes
// away. The channel is receive-only, so data messages are answered with an
// error frame.
func (h *Hub) readPump(conn *websocket.Conn, p *peer) {
	defer p.close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("viewer connection closed", "peer", p.id, "error", err)
			}
			return
		}
		if msg, err := encodeFrame(FrameError, ErrorPayload{Message: "this connection is receive-only"}); err == nil {
			p.enqueue(msg)
		}
	}
}

// writePump is the only goroutine writing to conn.
func (h *Hub) writePump(conn *websocket.Conn, p *peer) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-p.send:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.writeWait))
			return
		}
	}
}
