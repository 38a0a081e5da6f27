// Package livefeed follows a post's live room over a websocket and hands
// each frame to a callback, reconnecting when the connection drops.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/blogdemo/internal/realtime"
)

const defaultBackoff = 5 * time.Second

// Handler receives decoded live room events.
type Handler interface {
	Presence(viewers []realtime.PresenceEntry)
	Comment(comment realtime.CommentPayload)
}

// Subscriber connects to a live room and processes frames.
type Subscriber struct {
	url     string
	token   string
	handler Handler
	logger  *slog.Logger

	// Backoff is the pause before reconnecting.
	Backoff time.Duration
}

// NewSubscriber creates a new live room subscriber. token may be empty to
// watch anonymously.
func NewSubscriber(liveURL, token string, handler Handler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:     liveURL,
		token:   token,
		handler: handler,
		logger:  logger,
		Backoff: defaultBackoff,
	}
}

// Start connects to the room and processes frames until the context is
// cancelled. It reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("live room connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.Backoff):
					// backoff before reconnecting
				}
			}
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	s.logger.Info("connecting to live room", "url", s.url)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial live room: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("connected to live room")

	var framesReceived int64
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		framesReceived++

		if err := s.dispatch(message); err != nil {
			s.logger.Error("failed to handle frame", "error", err, "frames_received", framesReceived)
		}
	}
}

func (s *Subscriber) dispatch(message []byte) error {
	frame, err := parseFrame(message)
	if err != nil {
		return err
	}

	switch frame.Type {
	case realtime.FramePresence:
		var viewers []realtime.PresenceEntry
		if err := json.Unmarshal(frame.Payload, &viewers); err != nil {
			return fmt.Errorf("unmarshal presence: %w", err)
		}
		s.handler.Presence(viewers)
	case realtime.FrameComment:
		var comment realtime.CommentPayload
		if err := json.Unmarshal(frame.Payload, &comment); err != nil {
			return fmt.Errorf("unmarshal comment: %w", err)
		}
		s.handler.Comment(comment)
	case realtime.FrameError:
		var payload realtime.ErrorPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal error frame: %w", err)
		}
		s.logger.Warn("live room reported an error", "message", payload.Message)
	default:
		s.logger.Debug("ignoring unknown frame", "type", frame.Type)
	}
	return nil
}

func parseFrame(data []byte) (*realtime.Frame, error) {
	var frame realtime.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return &frame, nil
}
