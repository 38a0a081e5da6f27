package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/blogdemo/internal/realtime"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func dbFlags(t *testing.T) []string {
	dir := t.TempDir()
	return []string{"--db", filepath.Join(dir, "blog.db"), "--blobs", filepath.Join(dir, "blobs.db")}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "blogctl", cmd.Use)

	for _, name := range []string{"migrate", "seed", "user", "publish", "search", "watch"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	create, _, err := cmd.Find([]string{"user", "create"})
	require.NoError(t, err)
	assert.Equal(t, "create", create.Name())
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv("BLOG_SERVER", "http://blog.internal:8080")
	cmd := NewRootCommand()

	server := cmd.PersistentFlags().Lookup("server")
	require.NotNil(t, server)
	assert.Equal(t, "http://blog.internal:8080", server.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, append(dbFlags(t), "--format", "xml", "migrate")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMigrate(t *testing.T) {
	out, err := execute(t, append(dbFlags(t), "migrate")...)
	require.NoError(t, err)
	assert.Equal(t, "sqlite database is up to date\n", out)
}

func TestUserCreate(t *testing.T) {
	flags := dbFlags(t)
	out, err := execute(t, append(flags, "user", "create", "--name", "Ada Lovelace", "--email", "Ada@Example.com", "--password", "correct-horse")...)
	require.NoError(t, err)
	assert.Contains(t, out, "created user Ada Lovelace <ada@example.com>")

	_, err = execute(t, append(flags, "user", "create", "--name", "Ada Again", "--email", "ada@example.com", "--password", "correct-horse")...)
	assert.Error(t, err)

	_, err = execute(t, append(flags, "user", "create", "--name", "Ada")...)
	assert.Error(t, err)
}

const seedYAML = `
users:
  - name: Ada Lovelace
    email: ada@example.com
    password: correct-horse
  - name: Grace Hopper
    email: grace@example.com
    password: correct-horse
posts:
  - author: ada@example.com
    title: Notes on the engine
    content: The engine weaves algebraic patterns like a loom.
    comments:
      - author: Grace@Example.com
        body: Lovely way to put it, thank you.
  - author: grace@example.com
    title: Debugging
    content: We found a moth in relay number seventy.
`

func TestParseSeedFile(t *testing.T) {
	file, err := ParseSeedFile(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, file.Users, 2)
	require.Len(t, file.Posts, 2)
	assert.Equal(t, "Grace@Example.com", file.Posts[0].Comments[0].Author)

	empty, err := ParseSeedFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Posts)

	_, err = ParseSeedFile(strings.NewReader("postz: []\n"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	flags := dbFlags(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	out, err := execute(t, append(flags, "--format", "json", "seed", path)...)
	require.NoError(t, err)
	var result SeedResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, SeedResult{Users: 2, Posts: 2, Comments: 1}, result)

	out, err = execute(t, append(flags, "seed", path)...)
	require.NoError(t, err)
	assert.Equal(t, "created 0 users (2 existing), 2 posts, 1 comments\n", out)
}

func TestSeedUnknownAuthor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	doc := "posts:\n  - author: nobody@example.com\n    title: Orphan post\n    content: Nobody wrote this one at all.\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := execute(t, append(dbFlags(t), "seed", path)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown author")
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "nothing here" {
			json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{
			{"id": "p1", "title": "Go tips", "body": strings.Repeat("gopher ", 20)},
		}})
	}))
	defer srv.Close()

	out, err := execute(t, "--server", srv.URL, "search", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "p1  Go tips")
	assert.Contains(t, out, "...")

	out, err = execute(t, "--server", srv.URL, "search", "nothing", "here")
	require.NoError(t, err)
	assert.Equal(t, "No results found!\n", out)
}

func TestPublish(t *testing.T) {
	var created map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/sign-in":
			json.NewEncoder(w).Encode(map[string]any{"token": "tok", "user": map[string]string{"id": "u1"}})
		case "/api/uploads/url":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "/api/uploads?token=signed"})
		case "/api/uploads":
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"image_id": "img-1"})
		case "/api/posts":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "p1", "title": created["title"]})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	image := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(image, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...), 0o600))
	body := filepath.Join(dir, "post.md")
	require.NoError(t, os.WriteFile(body, []byte("A body long enough to publish."), 0o600))

	out, err := execute(t, "--server", srv.URL, "publish",
		"--email", "ada@example.com", "--password", "correct-horse",
		"--title", "Hello", "--content-file", body, "--image", image)
	require.NoError(t, err)
	assert.Equal(t, "Post published: "+srv.URL+"/blog/p1\n", out)
	assert.Equal(t, "img-1", created["image_id"])
	assert.Equal(t, "A body long enough to publish.", created["content"])

	_, err = execute(t, "--server", srv.URL, "--token", "", "publish", "--title", "Hello", "--content", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--token or both --email and --password")
}

func TestWatchPrinter(t *testing.T) {
	var out bytes.Buffer
	p := &watchPrinter{w: &out}
	p.Presence(nil)
	p.Presence([]realtime.PresenceEntry{{Name: "Ada"}, {Name: "Grace"}})
	p.Comment(realtime.CommentPayload{AuthorName: "Ada", Body: "Hello there, everyone."})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "viewing now: nobody signed in", lines[0])
	assert.Equal(t, "viewing now: Ada, Grace", lines[1])
	assert.Contains(t, lines[2], "Ada: Hello there, everyone.")

	out.Reset()
	p.json = true
	p.Presence([]realtime.PresenceEntry{{UserID: "u1", Name: "Ada"}})
	var frame map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &frame))
	assert.Equal(t, "presence", frame["type"])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", preview("short\n  text", 60))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
