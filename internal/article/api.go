package article

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/articlerequest"
	"github.com/SergeyParamoshkin/blogcms/internal/articleresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/auth"
	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

// Handler serves the article API. Every route expects an authenticated
// caller on the request context.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Mount registers the article routes on r.
func (h *Handler) Mount(r chi.Router) {
	// RESTy routes for the signed-in user's "articles"
	r.Route("/articles", func(r chi.Router) {
		r.With(Paginate).Get("/", h.ListArticles)
		r.Post("/", h.CreateArticle)

		r.Route("/{articleID}", func(r chi.Router) {
			r.Use(h.ArticleCtx)
			r.Get("/", h.GetOwnedArticle)
			r.Put("/", h.UpdateArticle)
			r.Patch("/", h.UpdateArticle)
			r.Delete("/", h.DeleteOwnedArticle)
		})
	})

	// Any signed-in user may read; only the author may change.
	r.Route("/article/{articleID}", func(r chi.Router) {
		r.Use(h.ArticleCtx)
		r.Get("/", h.GetArticle)
		r.Put("/", h.UpdateArticle)
		r.Delete("/", h.DeleteArticle)
	})

	r.Get("/search", h.SearchArticles)
}

func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	page, err := h.svc.List(r.Context(), user.ID, pageFromContext(r.Context()))
	if err != nil {
		renderError(w, r, err)

		return
	}

	respond(w, r, articleresponse.NewArticlePageResponse(page))
}

// CreateArticle persists the posted Article and returns it
// back to the client as an acknowledgement.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	data := &articlerequest.CreateArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBindError(w, r, err)

		return
	}

	user := auth.UserFromContext(r.Context())
	article, err := h.svc.Create(r.Context(), user.AsAuthor(), data.Input())
	if err != nil {
		renderError(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	respond(w, r, articleresponse.NewArticleResponse(article))
}

// GetArticle returns the Article loaded by ArticleCtx.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	respond(w, r, articleresponse.NewArticleResponse(articleFromContext(r.Context())))
}

// GetOwnedArticle returns the Article only to its author.
func (h *Handler) GetOwnedArticle(w http.ResponseWriter, r *http.Request) {
	article := articleFromContext(r.Context())
	if !article.OwnedBy(auth.UserFromContext(r.Context()).ID) {
		renderError(w, r, model.ErrForbidden)

		return
	}

	respond(w, r, articleresponse.NewArticleResponse(article))
}

// UpdateArticle updates an existing Article in our persistent store.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	article := articleFromContext(r.Context())
	user := auth.UserFromContext(r.Context())
	if !article.OwnedBy(user.ID) {
		renderError(w, r, model.ErrForbidden)

		return
	}

	data := &articlerequest.UpdateArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBindError(w, r, err)

		return
	}

	updated, err := h.svc.Update(r.Context(), article.ID, user.ID, data.Patch())
	if err != nil {
		renderError(w, r, err)

		return
	}

	respond(w, r, articleresponse.NewArticleResponse(updated))
}

// DeleteOwnedArticle removes the Article and acknowledges with a success
// flag.
func (h *Handler) DeleteOwnedArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.delete(r); err != nil {
		renderError(w, r, err)

		return
	}

	respond(w, r, &articleresponse.SuccessResponse{Success: true})
}

// DeleteArticle removes the Article and answers with no content.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.delete(r); err != nil {
		renderError(w, r, err)

		return
	}

	render.NoContent(w, r)
}

func (h *Handler) delete(r *http.Request) error {
	article := articleFromContext(r.Context())

	return h.svc.Delete(r.Context(), article.ID, auth.UserFromContext(r.Context()).ID)
}

// SearchArticles matches the q parameter across every author's articles.
func (h *Handler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		renderError(w, r, err)

		return
	}

	user := auth.UserFromContext(r.Context())
	if err := render.RenderList(w, r, articleresponse.NewSearchListResponse(found, user.ID)); err != nil {
		renderRenderError(w, r, err)
	}
}

func respond(w http.ResponseWriter, r *http.Request, rd render.Renderer) {
	if err := render.Render(w, r, rd); err != nil {
		renderRenderError(w, r, err)
	}
}

func renderRenderError(w http.ResponseWriter, r *http.Request, err error) {
	if err := render.Render(w, r, errresponse.ErrRender(err)); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}

func renderBindError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		renderError(w, r, verr)

		return
	}
	if err := render.Render(w, r, errresponse.ErrInvalidRequest(err)); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}
