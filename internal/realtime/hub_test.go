package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ domain.CommentPublisher = (*Hub)(nil)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRoomPresenceDistinctUsersInJoinOrder(t *testing.T) {
	r := newRoom("p1")
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ada1 := newPeer(1, &Viewer{ID: "ada", Name: "Ada"}, t0, 1)
	anon := newPeer(2, nil, t0.Add(time.Second), 1)
	bob := newPeer(3, &Viewer{ID: "bob", Name: "Bob"}, t0.Add(2*time.Second), 1)
	ada2 := newPeer(4, &Viewer{ID: "ada", Name: "Ada"}, t0.Add(3*time.Second), 1)
	for _, p := range []*peer{ada1, anon, bob, ada2} {
		r.join(p)
	}

	assert.Equal(t, []PresenceEntry{
		{UserID: "ada", Name: "Ada", JoinedAt: t0},
		{UserID: "bob", Name: "Bob", JoinedAt: t0.Add(2 * time.Second)},
	}, r.presence())

	// Ada stays listed while her second tab is open, now under its join time.
	assert.False(t, r.leave(ada1))
	assert.Equal(t, []PresenceEntry{
		{UserID: "bob", Name: "Bob", JoinedAt: t0.Add(2 * time.Second)},
		{UserID: "ada", Name: "Ada", JoinedAt: t0.Add(3 * time.Second)},
	}, r.presence())

	assert.False(t, r.leave(bob))
	assert.False(t, r.leave(ada2))
	assert.True(t, r.leave(anon))
	assert.Empty(t, r.presence())
}

func TestPeerEnqueue(t *testing.T) {
	p := newPeer(1, nil, time.Now(), 1)
	assert.True(t, p.enqueue([]byte("a")))
	assert.False(t, p.enqueue([]byte("b")), "buffer full")

	<-p.send
	p.close()
	p.close()
	assert.False(t, p.enqueue([]byte("c")), "closed")
}

func TestSnapshotUnknownPost(t *testing.T) {
	h := NewHub(quietLogger())
	assert.Equal(t, []PresenceEntry{}, h.Snapshot("nope"))
	h.PublishComment(context.Background(), domain.Comment{PostID: "nope"})
}

// liveServer serves the hub with the viewer taken from the "user" query
// parameter.
func liveServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var viewer *Viewer
		if id := r.URL.Query().Get("user"); id != "" {
			viewer = &Viewer{ID: id, Name: strings.ToUpper(id)}
		}
		h.ServeWS(w, r, r.URL.Query().Get("post"), viewer)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil skips frames until one of frameType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) Frame {
	t.Helper()
	for {
		f := readFrame(t, conn)
		if f.Type == frameType {
			return f
		}
	}
}

func presenceNames(t *testing.T, f Frame) []string {
	t.Helper()
	require.Equal(t, FramePresence, f.Type)
	var entries []PresenceEntry
	require.NoError(t, json.Unmarshal(f.Payload, &entries))
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestLiveRoom(t *testing.T) {
	h := NewHub(quietLogger())
	srv := liveServer(t, h)

	ada := dial(t, srv, "post=p1&user=ada")
	assert.Equal(t, []string{"ADA"}, presenceNames(t, readFrame(t, ada)))

	anon := dial(t, srv, "post=p1")
	assert.Equal(t, []string{"ADA"}, presenceNames(t, readFrame(t, anon)))
	assert.Equal(t, []string{"ADA"}, presenceNames(t, readFrame(t, ada)))

	bob := dial(t, srv, "post=p1&user=bob")
	assert.Equal(t, []string{"ADA", "BOB"}, presenceNames(t, readFrame(t, bob)))
	assert.Equal(t, []string{"ADA", "BOB"}, presenceNames(t, readFrame(t, ada)))
	assert.Equal(t, []string{"ADA", "BOB"}, presenceNames(t, readFrame(t, anon)))

	other := dial(t, srv, "post=p2&user=cy")
	assert.Equal(t, []string{"CY"}, presenceNames(t, readFrame(t, other)))
	assert.Equal(t, 2, h.Rooms())

	entries := h.Snapshot("p1")
	require.Len(t, entries, 2)
	assert.Equal(t, "ada", entries[0].UserID)

	h.PublishComment(context.Background(), domain.Comment{ID: "c1", PostID: "p1", AuthorName: "Ada", Body: "hello there friends"})
	for _, conn := range []*websocket.Conn{ada, anon, bob} {
		f := readFrame(t, conn)
		require.Equal(t, FrameComment, f.Type)
		var c CommentPayload
		require.NoError(t, json.Unmarshal(f.Payload, &c))
		assert.Equal(t, "c1", c.ID)
		assert.Equal(t, "hello there friends", c.Body)
	}

	require.NoError(t, bob.Close())
	assert.Equal(t, []string{"ADA"}, presenceNames(t, readUntil(t, ada, FramePresence)))

	require.NoError(t, other.WriteMessage(websocket.TextMessage, []byte("hi")))
	f := readFrame(t, other)
	assert.Equal(t, FrameError, f.Type)
}

func TestEmptyRoomIsDropped(t *testing.T) {
	h := NewHub(quietLogger())
	srv := liveServer(t, h)

	conn := dial(t, srv, "post=p1&user=ada")
	readFrame(t, conn)
	require.Equal(t, 1, h.Rooms())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Rooms() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCloseDisconnectsViewers(t *testing.T) {
	h := NewHub(quietLogger())
	srv := liveServer(t, h)

	conn := dial(t, srv, "post=p1&user=ada")
	readFrame(t, conn)

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
