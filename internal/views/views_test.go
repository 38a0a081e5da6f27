package views

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLayoutEscapesAndShowsUser(t *testing.T) {
	user := &domain.User{Name: "<Ada>", Email: "ada@example.com"}
	html := render(t, Layout(Page{Title: "Blog", User: user, Flash: "Post created", Locale: DefaultLocale()}, Message("Hi", "there")))

	assert.Contains(t, html, "<title>Blog | Blog</title>")
	assert.Contains(t, html, "&lt;Ada&gt;")
	assert.NotContains(t, html, "<Ada>")
	assert.Contains(t, html, `action="/auth/logout"`)
	assert.Contains(t, html, "Post created")
	assert.Contains(t, html, `href="/create"`)
}

func TestLayoutAnonymous(t *testing.T) {
	html := render(t, Layout(Page{Locale: DefaultLocale()}, nil))
	assert.Contains(t, html, `href="/auth/login"`)
	assert.NotContains(t, html, `href="/create"`)
	assert.NotContains(t, html, `class="toast"`)
}

func TestHomeGreeting(t *testing.T) {
	assert.Contains(t, render(t, Home(&domain.User{Name: "Ada", Email: "ada@example.com"})), "Welcome back, Ada.")
	assert.Contains(t, render(t, Home(nil)), "Welcome to the blog.")
}

func TestBlogList(t *testing.T) {
	posts := []domain.PostView{
		{Post: domain.Post{ID: "p1", Title: "With image", Body: "body one"}, ImageURL: "/images/i1"},
		{Post: domain.Post{ID: "p2", Title: "Without image", Body: "body two"}},
	}
	html := render(t, BlogList(posts, DefaultLocale()))

	assert.Contains(t, html, `src="/images/i1"`)
	assert.Contains(t, html, `src="`+PlaceholderImage+`"`)
	assert.Contains(t, html, `href="/blog/p2"`)
	assert.Contains(t, html, "2 posts")

	assert.Contains(t, render(t, BlogList(nil, DefaultLocale())), "No posts yet.")
}

func TestPostPage(t *testing.T) {
	created := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	detail := domain.PostDetail{
		PostView: domain.PostView{Post: domain.Post{ID: "p1", Title: "Title", Body: "Body", CreatedAt: created}, AuthorName: "Ada"},
		Comments: []domain.Comment{{ID: "c1", AuthorName: "Bob", Body: "<b>hi</b>", CreatedAt: created}},
	}

	html := render(t, PostPage(PostPageData{Post: detail, Presence: []string{"Ada", "Bob"}, Locale: DefaultLocale()}))
	assert.Contains(t, html, "Posted on: February 3, 2025")
	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, html, "1 comment")
	assert.Contains(t, html, "<li>Ada</li><li>Bob</li>")
	assert.Contains(t, html, "Sign in</a> to comment")
	assert.Contains(t, html, `data-live="/api/posts/p1/live"`)

	form := Form{Values: map[string]string{"body": "short"}, Errors: map[string]string{"body": "must be at least 10 characters"}}
	html = render(t, PostPage(PostPageData{Post: detail, User: &domain.User{ID: "u1"}, Form: form, Locale: DefaultLocale()}))
	assert.Contains(t, html, `action="/blog/p1/comments"`)
	assert.Contains(t, html, "must be at least 10 characters")
	assert.Contains(t, html, `aria-invalid="true"`)
	assert.Contains(t, html, ">short</textarea>")
}

func TestSearchResults(t *testing.T) {
	long := "0123456789012345678901234567890123456789012345678901234567890123456789"
	html := render(t, SearchResults("go", []domain.SearchResult{{ID: "p1", Title: "Go", Body: long}}))
	assert.Contains(t, html, `href="/blog/p1"`)
	assert.Contains(t, html, long[:60]+"...")
	assert.NotContains(t, html, long[:61])

	assert.Contains(t, render(t, SearchResults("zzz", nil)), "No results found!")
	assert.Empty(t, render(t, SearchResults("z", nil)))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 60))
	assert.Equal(t, "héllo...", Preview("héllo wörld", 5))
}

func TestForms(t *testing.T) {
	form := Form{
		Values: map[string]string{"email": "ada@example.com", "password": "secret"},
		Errors: map[string]string{"password": "must be at least 8 characters"},
		Error:  "Invalid email or password.",
	}
	html := render(t, LoginPage(form))
	assert.Contains(t, html, `value="ada@example.com"`)
	assert.NotContains(t, html, "secret")
	assert.Contains(t, html, "must be at least 8 characters")
	assert.Contains(t, html, "Invalid email or password.")

	assert.Contains(t, render(t, RegisterPage(Form{})), `name="name"`)
	create := render(t, CreatePage(Form{}))
	assert.Contains(t, create, `enctype="multipart/form-data"`)
	assert.Contains(t, create, `name="image"`)
}

func TestLocale(t *testing.T) {
	assert.Equal(t, "1,234 comments", DefaultLocale().Count(1234, "comment", "comments"))
	assert.Equal(t, "1.234", NewLocale(language.German).Number(1234))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Accept-Language", "de-AT,de;q=0.9,en;q=0.5")
	loc := LocaleFromRequest(r)
	assert.Equal(t, language.German, loc.Tag)
	assert.Equal(t, "3.2.2025", loc.Date(time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)))

	r.Header.Set("Accept-Language", "")
	assert.Equal(t, language.AmericanEnglish, LocaleFromRequest(r).Tag)
	assert.Equal(t, language.AmericanEnglish, LocaleFromRequest(nil).Tag)
}

func TestStaticHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/badge.js", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "pointerdown")
}
