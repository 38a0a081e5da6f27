package livefeed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/blogdemo/internal/realtime"
)

type recorder struct {
	mu       sync.Mutex
	presence [][]realtime.PresenceEntry
	comments []realtime.CommentPayload
}

func (r *recorder) Presence(viewers []realtime.PresenceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, viewers)
}

func (r *recorder) Comment(c realtime.CommentPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, c)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.presence), len(r.comments)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatch(t *testing.T) {
	rec := &recorder{}
	s := NewSubscriber("ws://unused", "", rec, discardLogger())

	require.NoError(t, s.dispatch([]byte(`{"type":"presence","payload":[{"user_id":"u1","name":"Ada"}]}`)))
	require.NoError(t, s.dispatch([]byte(`{"type":"comment","payload":{"id":"c1","body":"hello there friends"}}`)))
	require.NoError(t, s.dispatch([]byte(`{"type":"error","payload":{"message":"receive-only"}}`)))
	require.NoError(t, s.dispatch([]byte(`{"type":"mystery","payload":null}`)))
	require.Error(t, s.dispatch([]byte(`not json`)))
	require.Error(t, s.dispatch([]byte(`{"type":"presence","payload":{"bad":true}}`)))

	require.Len(t, rec.presence, 1)
	assert.Equal(t, "Ada", rec.presence[0][0].Name)
	require.Len(t, rec.comments, 1)
	assert.Equal(t, "hello there friends", rec.comments[0].Body)
}

func TestStartReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connections.Add(1)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence","payload":[]}`))
		conn.Close()
	}))
	defer srv.Close()

	rec := &recorder{}
	s := NewSubscriber("ws"+strings.TrimPrefix(srv.URL, "http"), "tok", rec, discardLogger())
	s.Backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		presence, _ := rec.counts()
		return connections.Load() >= 2 && presence >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
