package views

import (
	"context"

	"github.com/a-h/templ"
	"github.com/blackmichael/blogdemo/internal/domain"
)

const htmxSrc = "https://unpkg.com/htmx.org@2.0.4"

// Page carries what every full page needs.
type Page struct {
	Title  string
	User   *domain.User
	Flash  string
	Locale Locale
}

// Layout wraps body in the site chrome: navigation, search box and flash
// notice.
func Layout(page Page, body templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		title := "Blog"
		if page.Title != "" {
			title = page.Title + " | Blog"
		}
		w.raw(`<!doctype html><html lang="`)
		w.text(page.Locale.Tag.String())
		w.raw(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		w.text(title)
		w.raw(`</title><link rel="stylesheet" href="/static/app.css"><script src="` + htmxSrc + `" defer></script></head><body>`)

		w.raw(`<header class="nav"><a class="brand" href="/">Home</a><a href="/blog">Blog</a>`)
		if page.User != nil {
			w.raw(`<a href="/create">Write</a>`)
		}
		w.raw(`<div class="search"><input type="search" name="q" placeholder="Search posts" autocomplete="off" hx-get="/search" hx-trigger="input changed delay:250ms, search" hx-target="#search-results"><div id="search-results"></div></div>`)
		if page.User != nil {
			w.raw(`<span class="who">`)
			w.text(page.User.DisplayName())
			w.raw(`</span><form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>`)
		} else {
			w.raw(`<a href="/auth/login">Sign in</a><a href="/auth/register">Register</a>`)
		}
		w.raw(`</header>`)

		if page.Flash != "" {
			w.raw(`<div class="toast" role="status">`)
			w.text(page.Flash)
			w.raw(`</div>`)
		}

		w.raw(`<main>`)
		w.render(ctx, body)
		w.raw(`</main></body></html>`)
	})
}

// Message renders a heading and a line of text, used for not-found and
// error pages.
func Message(heading, text string) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="message"><h1>`)
		w.text(heading)
		w.raw(`</h1><p>`)
		w.text(text)
		w.raw(`</p><a href="/blog">Back to the blog</a></section>`)
	})
}
