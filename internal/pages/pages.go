// Package pages serves the server-rendered HTML side of the CMS.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SergeyParamoshkin/blogcms/internal/article"
	"github.com/SergeyParamoshkin/blogcms/internal/auth"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/upload"
)

// DashboardPageSize is the number of articles per dashboard page.
const DashboardPageSize = 3

const flashCookie = "blogcms.flash"

//go:embed templates
var templateFiles embed.FS

var pageNames = []string{
	"login", "register", "dashboard", "article", "form", "search", "error",
}

type crumb struct {
	Label string
	Href  string
}

type flash struct {
	Kind    string
	Message string
}

type pagination struct {
	Current int
	Total   int
	Pages   []int
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

type searchResult struct {
	*model.Article
	IsOwner bool
	Excerpt string
}

// view is the data every template receives. Pages fill what they need.
type view struct {
	Title   string
	User    *model.User
	Flash   *flash
	Crumbs  []crumb
	Query   string
	Message string

	Action string
	Form   map[string]string
	Errors map[string]string

	Article    *model.Article
	Articles   []*model.Article
	Pagination pagination
	Results    []searchResult
}

// Handler renders the HTML pages.
type Handler struct {
	auth      *auth.Service
	limiter   *auth.RateLimiter
	articles  *article.Service
	uploader  *upload.Uploader
	templates map[string]*template.Template
}

// NewHandler parses the embedded templates. A nil uploader disables cover
// uploads from the article forms.
func NewHandler(authSvc *auth.Service, limiter *auth.RateLimiter, articles *article.Service, uploader *upload.Uploader) (*Handler, error) {
	h := &Handler{
		auth:      authSvc,
		limiter:   limiter,
		articles:  articles,
		uploader:  uploader,
		templates: make(map[string]*template.Template, len(pageNames)),
	}

	for _, name := range pageNames {
		t, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		h.templates[name] = t
	}

	return h, nil
}

// Mount registers the pages on r. The auth Session middleware must already
// run on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.Login)
		r.Get("/register", h.Register)
		r.Group(func(r chi.Router) {
			r.Use(h.limiter.Handler)
			r.Post("/login", h.SubmitLogin)
			r.Post("/register", h.SubmitRegister)
		})
		r.Post("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequirePageSession)

		r.Get("/dashboard", h.Dashboard)
		r.Route("/dashboard/articles", func(r chi.Router) {
			r.Get("/new", h.NewArticle)
			r.Post("/new", h.CreateArticle)
			r.Route("/{articleID}", func(r chi.Router) {
				r.Get("/", h.ShowArticle)
				r.Get("/edit", h.EditArticle)
				r.Post("/edit", h.UpdateArticle)
				r.Post("/delete", h.DeleteArticle)
			})
		})
		r.Get("/search", h.Search)
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, v *view) {
	if v.User == nil {
		v.User = auth.UserFromContext(r.Context())
	}
	if v.Flash == nil {
		v.Flash = popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		logging.FromContext(r.Context()).Errorw("render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	h.render(w, r, status, "error", &view{Title: title, Message: message})
}

// redirect stores a flash message for the next page and sends the browser
// to target.
func redirect(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if message != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    url.QueryEscape(kind + ":" + message),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:    flashCookie,
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok {
		return nil
	}

	return &flash{Kind: kind, Message: message}
}

func fieldErrors(verr *model.ValidationError) map[string]string {
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Message
		}
	}

	return out
}
