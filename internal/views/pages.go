package views

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
	"github.com/blackmichael/blogdemo/internal/domain"
)

// PlaceholderImage is shown for posts without an uploaded image.
const PlaceholderImage = "/static/placeholder.svg"

// SearchPreviewLength is how much of a body the search dropdown shows.
const SearchPreviewLength = 60

// Home is the landing page with the hanging badge.
func Home(user *domain.User) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="hero"><div class="intro"><h1>`)
		if user != nil {
			w.text("Welcome back, " + user.DisplayName() + ".")
		} else {
			w.raw(`Welcome to the blog.`)
		}
		w.raw(`</h1>`)
		if user != nil {
			w.raw(`<p>You're signed in. Write a post, browse the blog, or play with the tag.</p><p class="mono">Signed in as `)
			w.text(user.Email)
			w.raw(`</p><div class="actions"><a class="button" href="/create">Create a post</a><a class="button outline" href="/blog">Browse the blog</a></div>`)
		} else {
			w.raw(`<p>Read what we've been writing, or sign in to join the conversation.</p><div class="actions"><a class="button" href="/auth/login">Sign in</a><a class="button outline" href="/blog">Browse the blog</a></div>`)
		}
		w.raw(`</div><canvas id="badge" data-socket="/badge/live" data-name="`)
		if user != nil {
			w.text(user.DisplayName())
		}
		w.raw(`" data-email="`)
		if user != nil {
			w.text(user.Email)
		}
		w.raw(`"></canvas></section><script src="/static/badge.js" defer></script>`)
	})
}

// BlogList renders every post as a card, newest first.
func BlogList(posts []domain.PostView, loc Locale) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="blog"><div class="heading"><h1>Our Blog</h1><p>Insights, thoughts, and trends from our team.</p><p class="muted">`)
		w.text(loc.Count(len(posts), "post", "posts"))
		w.raw(`</p></div>`)
		if len(posts) == 0 {
			w.raw(`<p class="empty">No posts yet.</p></section>`)
			return
		}
		w.raw(`<div class="grid">`)
		for _, p := range posts {
			href := "/blog/" + p.ID
			w.raw(`<article class="card"><img src="`)
			w.url(imageURL(p))
			w.raw(`" alt="`)
			w.text(p.Title)
			w.raw(`"><div class="card-body"><a href="`)
			w.url(href)
			w.raw(`"><h2>`)
			w.text(p.Title)
			w.raw(`</h2></a><p class="clamp">`)
			w.text(p.Body)
			w.raw(`</p></div><a class="button" href="`)
			w.url(href)
			w.raw(`">Read more</a></article>`)
		}
		w.raw(`</div></section>`)
	})
}

// PostPageData is everything the post detail page renders.
type PostPageData struct {
	Post     domain.PostDetail
	User     *domain.User
	Presence []string
	Form     Form
	Locale   Locale
}

// PostPage renders a post, its live presence strip and its comment thread.
func PostPage(data PostPageData) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		p := data.Post
		w.raw(`<article class="post" data-post-id="`)
		w.text(p.ID)
		w.raw(`" data-live="`)
		w.url("/api/posts/" + p.ID + "/live")
		w.raw(`"><a class="button outline" href="/blog">Back to blog</a><img class="hero-image" src="`)
		w.url(imageURL(p.PostView))
		w.raw(`" alt="`)
		w.text(p.Title)
		w.raw(`"><h1>`)
		w.text(p.Title)
		w.raw(`</h1><p class="muted">Posted on: `)
		w.text(data.Locale.Date(p.CreatedAt))
		if p.AuthorName != "" {
			w.raw(` by `)
			w.text(p.AuthorName)
		}
		w.raw(`</p>`)
		w.render(ctx, Presence(data.Presence))
		w.raw(`<hr><p class="body">`)
		w.text(p.Body)
		w.raw(`</p><hr>`)
		w.render(ctx, CommentSection(p.ID, p.Comments, data.User, data.Form, data.Locale))
		w.raw(`</article><script src="/static/live.js" defer></script>`)
	})
}

// Presence renders the names of signed-in viewers.
func Presence(names []string) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<div id="presence" class="presence"><span class="label">Viewing now</span><ul>`)
		for _, name := range names {
			w.raw(`<li>`)
			w.text(name)
			w.raw(`</li>`)
		}
		w.raw(`</ul></div>`)
	})
}

// CommentSection renders the thread and, for signed-in users, the form.
func CommentSection(postID string, comments []domain.Comment, user *domain.User, form Form, loc Locale) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="comments"><h2>Comments <span class="muted" id="comment-count">`)
		w.text(loc.Count(len(comments), "comment", "comments"))
		w.raw(`</span></h2><ol id="comment-list">`)
		for _, c := range comments {
			w.raw(`<li class="comment" data-id="`)
			w.text(c.ID)
			w.raw(`"><p class="author">`)
			w.text(c.AuthorName)
			w.raw(` <time datetime="`)
			w.text(c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
			w.raw(`">`)
			w.text(loc.Date(c.CreatedAt))
			w.raw(`</time></p><p>`)
			w.text(c.Body)
			w.raw(`</p></li>`)
		}
		w.raw(`</ol>`)
		if user == nil {
			w.raw(`<p><a href="/auth/login">Sign in</a> to comment.</p></section>`)
			return
		}
		w.raw(`<form method="post" action="`)
		w.url("/blog/" + postID + "/comments")
		w.raw(`">`)
		form.errorBanner(w)
		w.raw(`<label for="body">Comment Here</label><textarea id="body" name="body" placeholder="share your thoughts"`)
		form.invalidAttr(w, "body")
		w.raw(`>`)
		w.text(form.Value("body"))
		w.raw(`</textarea>`)
		form.fieldError(w, "body")
		w.raw(`<button type="submit">Comment</button></form></section>`)
	})
}

// SearchResults is the dropdown fragment under the search box.
func SearchResults(term string, results []domain.SearchResult) templ.Component {
	return component(func(_ context.Context, w *writer) {
		if utf8.RuneCountInString(strings.TrimSpace(term)) < domain.MinSearchTermLength {
			return
		}
		w.raw(`<div class="search-results">`)
		if len(results) == 0 {
			w.raw(`<p class="empty">No results found!</p></div>`)
			return
		}
		w.raw(`<ul>`)
		for _, r := range results {
			w.raw(`<li><a href="`)
			w.url("/blog/" + r.ID)
			w.raw(`"><strong>`)
			w.text(r.Title)
			w.raw(`</strong><span>`)
			w.text(Preview(r.Body, SearchPreviewLength))
			w.raw(`</span></a></li>`)
		}
		w.raw(`</ul></div>`)
	})
}

// Preview returns the first n characters of s, with "..." when cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func imageURL(p domain.PostView) string {
	if p.ImageURL == "" {
		return PlaceholderImage
	}
	return p.ImageURL
}
