package views

import (
	"context"

	"github.com/a-h/templ"
)

// Form carries submitted values and validation errors back into a
// re-rendered form.
type Form struct {
	Values map[string]string
	Errors map[string]string

	// Error is a message not tied to a single field.
	Error string
}

// Value returns the submitted value of a field.
func (f Form) Value(name string) string {
	return f.Values[name]
}

func (f Form) fieldError(w *writer, name string) {
	msg, ok := f.Errors[name]
	if !ok {
		return
	}
	w.raw(`<p class="field-error" id="`)
	w.text(name)
	w.raw(`-error">`)
	w.text(msg)
	w.raw(`</p>`)
}

func (f Form) invalidAttr(w *writer, name string) {
	if _, ok := f.Errors[name]; ok {
		w.raw(` aria-invalid="true" aria-describedby="`)
		w.text(name)
		w.raw(`-error"`)
	}
}

func (f Form) errorBanner(w *writer) {
	if f.Error == "" {
		return
	}
	w.raw(`<p class="form-error" role="alert">`)
	w.text(f.Error)
	w.raw(`</p>`)
}

type field struct {
	name, label, kind, placeholder string
}

func (f Form) input(w *writer, fd field) {
	w.raw(`<label for="`)
	w.text(fd.name)
	w.raw(`">`)
	w.text(fd.label)
	w.raw(`</label><input id="`)
	w.text(fd.name)
	w.raw(`" name="`)
	w.text(fd.name)
	w.raw(`" type="`)
	w.text(fd.kind)
	w.raw(`" placeholder="`)
	w.text(fd.placeholder)
	w.raw(`"`)
	if fd.kind != "password" {
		w.raw(` value="`)
		w.text(f.Value(fd.name))
		w.raw(`"`)
	}
	f.invalidAttr(w, fd.name)
	w.raw(`>`)
	f.fieldError(w, fd.name)
}

// LoginPage renders the sign-in form.
func LoginPage(form Form) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="auth"><h1>Login</h1><p>Login to get started right away.</p><form method="post" action="/auth/login">`)
		form.errorBanner(w)
		form.input(w, field{"email", "Email", "email", "john@doe.com"})
		form.input(w, field{"password", "Password", "password", "********"})
		w.raw(`<button type="submit">Login</button></form><p>No account yet? <a href="/auth/register">Register</a></p></section>`)
	})
}

// RegisterPage renders the sign-up form.
func RegisterPage(form Form) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="auth"><h1>Sign Up</h1><p>Create an account to get started.</p><form method="post" action="/auth/register">`)
		form.errorBanner(w)
		form.input(w, field{"name", "Full Name", "text", "John Doe"})
		form.input(w, field{"email", "Email", "email", "john@doe.com"})
		form.input(w, field{"password", "Password", "password", "********"})
		w.raw(`<button type="submit">Sign Up</button></form><p>Already registered? <a href="/auth/login">Login</a></p></section>`)
	})
}

// CreatePage renders the new post form with an optional image.
func CreatePage(form Form) templ.Component {
	return component(func(_ context.Context, w *writer) {
		w.raw(`<section class="create"><h1>Create Post</h1><p>Create a new blog article.</p><form method="post" action="/create" enctype="multipart/form-data">`)
		form.errorBanner(w)
		form.input(w, field{"title", "Title", "text", "Super cool title"})
		w.raw(`<label for="content">Content</label><textarea id="content" name="content" placeholder="Super cool blog content"`)
		form.invalidAttr(w, "content")
		w.raw(`>`)
		w.text(form.Value("content"))
		w.raw(`</textarea>`)
		form.fieldError(w, "content")
		w.raw(`<label for="image">Image</label><input id="image" name="image" type="file" accept="image/*"`)
		form.invalidAttr(w, "image")
		w.raw(`>`)
		form.fieldError(w, "image")
		w.raw(`<button type="submit">Create Post</button></form></section>`)
	})
}
