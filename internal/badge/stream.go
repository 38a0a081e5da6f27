package badge

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Hanging point of the anchor in world space.
var anchorOrigin = Vec3{Y: 4}

// Input is a pointer event sent by the browser. X and Y are normalised
// device coordinates; Aspect is the canvas width over height.
type Input struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Aspect float64 `json:"aspect"`
}

// Input types.
const (
	InputDrag    = "drag"
	InputRelease = "release"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
}

// Handler streams a private badge simulation to each websocket client.
type Handler struct {
	logger *slog.Logger
	step   time.Duration
}

// NewHandler returns a Handler that advances the simulation at 60 Hz.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, step: time.Second / 60}
}

// session pairs a simulation with the lock shared by the reader and the
// stepping loop.
type session struct {
	mu  sync.Mutex
	sim *Sim
}

func (s *session) apply(in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch in.Type {
	case InputDrag:
		x, y := clampNDC(in.X), clampNDC(in.Y)
		s.sim.Drag(DefaultCamera(in.Aspect).PointerTarget(x, y))
	case InputRelease:
		s.sim.Release()
	}
}

// advance steps the simulation and returns the frame to send, or false when
// the badge is asleep and the last frame is still current.
func (s *session) advance(sent bool) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sent && s.sim.Sleeping() {
		return Frame{}, false
	}
	s.sim.Advance(Step)
	return s.sim.Frame(), true
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("badge websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := &session{sim: NewSim(anchorOrigin)}
	done := make(chan struct{})
	go h.read(conn, sess, done)

	ticker := time.NewTicker(h.step)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// sleptSent is true once the frame for the current sleep has gone out.
	sleptSent := false
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			frame, ok := sess.advance(sleptSent)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Debug("badge write failed", "error", err)
				return
			}
			sess.mu.Lock()
			sleptSent = sess.sim.Sleeping()
			sess.mu.Unlock()
		}
	}
}

func (h *Handler) read(conn *websocket.Conn, sess *session, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		// Any client traffic shows the connection is alive.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var in Input
		if err := json.Unmarshal(data, &in); err != nil {
			h.logger.Debug("ignoring malformed badge input", "error", err)
			continue
		}
		sess.apply(in)
	}
}

func clampNDC(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
