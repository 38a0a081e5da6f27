package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/views"
)

// searchDropdownLimit is how many results the navigation search shows.
const searchDropdownLimit = 5

// multipartOverhead is the room allowed for form fields beside the image.
const multipartOverhead = 1 << 20

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	page := views.Page{
		Title:  title,
		User:   userFrom(r.Context()),
		Flash:  s.popFlash(w, r),
		Locale: views.LocaleFromRequest(r),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.Layout(page, body).Render(r.Context(), w); err != nil {
		s.logger.Error("failed to render page", "title", title, "error", err)
	}
}

// renderFailure shows a page for err. Unexpected errors are logged and
// shown as a generic message.
func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)
	switch status {
	case http.StatusNotFound:
		s.renderPage(w, r, status, "Not found", views.Message("Not found", "We couldn't find what you were looking for."))
	case http.StatusInternalServerError:
		s.logger.Error("page request failed", "path", r.URL.Path, "error", err)
		s.renderPage(w, r, status, "Error", views.Message("Something went wrong", "Please try again in a moment."))
	default:
		s.renderPage(w, r, status, "Error", views.Message("Something went wrong", err.Error()))
	}
}

// redirectToLogin sends anonymous visitors to the login page with a notice.
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	s.setFlash(w, "Please sign in to continue.")
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func formValues(r *http.Request, names ...string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = r.FormValue(name)
	}
	return values
}

// formFor turns a service error into inline form errors.
func formFor(values map[string]string, err error) views.Form {
	form := views.Form{Values: values}
	if verr, ok := domain.AsValidationError(err); ok {
		form.Errors = verr.Fields
		return form
	}
	form.Error = err.Error()
	return form
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "", views.Home(userFrom(r.Context())))
}

func (s *Server) handleBlogList(w http.ResponseWriter, r *http.Request) {
	posts, err := s.blog.GetPosts(r.Context())
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "Blog", views.BlogList(posts, views.LocaleFromRequest(r)))
}

func (s *Server) handlePostPage(w http.ResponseWriter, r *http.Request) {
	s.renderPostPage(w, r, http.StatusOK, views.Form{})
}

func (s *Server) renderPostPage(w http.ResponseWriter, r *http.Request, status int, form views.Form) {
	postID := r.PathValue("postID")
	detail, err := s.blog.GetPostDetail(r.Context(), postID)
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}

	var names []string
	for _, entry := range s.hub.Snapshot(postID) {
		names = append(names, entry.Name)
	}

	s.renderPage(w, r, status, detail.Title, views.PostPage(views.PostPageData{
		Post:     *detail,
		User:     userFrom(r.Context()),
		Presence: names,
		Form:     form,
		Locale:   views.LocaleFromRequest(r),
	}))
}

func (s *Server) handleCommentForm(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		s.redirectToLogin(w, r)
		return
	}

	postID := r.PathValue("postID")
	values := formValues(r, "body")
	_, err := s.blog.CreateComment(r.Context(), user, domain.CommentInput{PostID: postID, Body: values["body"]})
	if err != nil {
		if _, ok := domain.AsValidationError(err); ok {
			s.renderPostPage(w, r, http.StatusUnprocessableEntity, formFor(values, err))
			return
		}
		s.renderFailure(w, r, err)
		return
	}
	http.Redirect(w, r, "/blog/"+url.PathEscape(postID)+"#comments", http.StatusSeeOther)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) == nil {
		s.redirectToLogin(w, r)
		return
	}
	s.renderPage(w, r, http.StatusOK, "Create", views.CreatePage(views.Form{}))
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		s.redirectToLogin(w, r)
		return
	}

	maxUpload := s.blog.Options().MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxUpload+multipartOverhead))
	if err := r.ParseMultipartForm(int64(maxUpload + multipartOverhead)); err != nil {
		var tooLarge *http.MaxBytesError
		form := views.Form{Values: map[string]string{}}
		if errors.As(err, &tooLarge) {
			form.Errors = map[string]string{"image": sizeMessage(maxUpload)}
			s.renderPage(w, r, http.StatusRequestEntityTooLarge, "Create", views.CreatePage(form))
			return
		}
		form.Error = "The form could not be read."
		s.renderPage(w, r, http.StatusBadRequest, "Create", views.CreatePage(form))
		return
	}

	values := formValues(r, "title", "content")
	in := domain.PostInput{
		Title:   strings.TrimSpace(values["title"]),
		Content: strings.TrimSpace(values["content"]),
	}

	// Check the text first so a rejected post does not leave an orphan image.
	if err := domain.Validate(&in); err != nil {
		s.renderPage(w, r, http.StatusUnprocessableEntity, "Create", views.CreatePage(formFor(values, err)))
		return
	}

	imageID, err := s.storeFormImage(r, user, maxUpload)
	if err != nil {
		status, _ := classify(err)
		if status == http.StatusInternalServerError {
			s.renderFailure(w, r, err)
			return
		}
		form := views.Form{Values: values, Errors: map[string]string{"image": imageMessage(err, maxUpload)}}
		s.renderPage(w, r, status, "Create", views.CreatePage(form))
		return
	}
	in.ImageID = imageID

	post, err := s.blog.CreatePost(r.Context(), user, in)
	if err != nil {
		if _, ok := domain.AsValidationError(err); ok {
			s.renderPage(w, r, http.StatusUnprocessableEntity, "Create", views.CreatePage(formFor(values, err)))
			return
		}
		s.renderFailure(w, r, err)
		return
	}

	s.setFlash(w, "Post created.")
	http.Redirect(w, r, "/blog/"+url.PathEscape(post.ID), http.StatusSeeOther)
}

// storeFormImage saves the optional image field and returns its ID, or ""
// when no file was chosen.
func (s *Server) storeFormImage(r *http.Request, user *domain.User, maxUpload int) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errors.Join(domain.ErrInvalidUpload, err)
	}
	defer file.Close()
	if header.Size == 0 {
		return "", nil
	}

	data, err := readLimited(file, maxUpload)
	if err != nil {
		return "", err
	}
	return s.blog.StoreImage(r.Context(), user, domain.Upload{
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
}

func sizeMessage(maxUpload int) string {
	return fmt.Sprintf("must be at most %d KB", maxUpload>>10)
}

func imageMessage(err error, maxUpload int) string {
	switch {
	case errors.Is(err, domain.ErrUploadTooLarge):
		return sizeMessage(maxUpload)
	case errors.Is(err, domain.ErrInvalidUpload):
		return "must be an image"
	default:
		return err.Error()
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusOK, "Login", views.LoginPage(views.Form{}))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	values := formValues(r, "email", "password")
	_, token, err := s.auth.SignIn(r.Context(), domain.SignInInput{Email: values["email"], Password: values["password"]})
	if err != nil {
		status, _ := classify(err)
		if status == http.StatusInternalServerError {
			s.renderFailure(w, r, err)
			return
		}
		delete(values, "password")
		s.renderPage(w, r, status, "Login", views.LoginPage(formFor(values, err)))
		return
	}

	s.setSessionCookie(w, token)
	s.setFlash(w, "Signed in.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusOK, "Register", views.RegisterPage(views.Form{}))
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	values := formValues(r, "name", "email", "password")
	_, token, err := s.auth.SignUp(r.Context(), domain.SignUpInput{
		Name:     values["name"],
		Email:    values["email"],
		Password: values["password"],
	})
	if err != nil {
		status, _ := classify(err)
		if status == http.StatusInternalServerError {
			s.renderFailure(w, r, err)
			return
		}
		form := formFor(values, err)
		if errors.Is(err, domain.ErrEmailTaken) {
			form = views.Form{Values: values, Errors: map[string]string{"email": "is already registered"}}
		}
		delete(form.Values, "password")
		s.renderPage(w, r, status, "Register", views.RegisterPage(form))
		return
	}

	s.setSessionCookie(w, token)
	s.setFlash(w, "Welcome aboard.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), tokenFrom(r.Context())); err != nil {
		s.logger.Error("failed to sign out", "error", err)
	}
	s.clearSessionCookie(w)
	s.setFlash(w, "Signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSearchFragment answers the navigation search box. HTMX requests get
// the bare dropdown; direct visits get a full page.
func (s *Server) handleSearchFragment(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	results, err := s.blog.SearchPosts(r.Context(), term, searchDropdownLimit)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		results = nil
	}

	fragment := views.SearchResults(term, results)
	if !isHTMX(r) {
		s.renderPage(w, r, http.StatusOK, "Search", fragment)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fragment.Render(r.Context(), w); err != nil {
		s.logger.Error("failed to render search results", "error", err)
	}
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, meta, err := s.blog.GetImage(r.Context(), r.PathValue("imageID"))
	if err != nil {
		status, _ := classify(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("failed to load image", "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}
