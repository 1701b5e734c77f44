package article

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

type ctxKey int8

const (
	ctxKeyArticle ctxKey = iota
	ctxKeyPage
)

// ArticleCtx middleware is used to load an Article object from
// the URL parameters passed through as the request. In case
// the Article could not be found, we stop here and return a 404.
func (h *Handler) ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		article, err := h.svc.Get(r.Context(), chi.URLParam(r, "articleID"))
		if err != nil {
			renderError(w, r, err)

			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyArticle, article)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func articleFromContext(ctx context.Context) *model.Article {
	// ArticleCtx always runs first; a missing value is a routing bug and
	// the Recoverer turns the panic into a 500.
	return ctx.Value(ctxKeyArticle).(*model.Article)
}

// Paginate reads the page and limit query parameters.
func Paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		ctx := context.WithValue(r.Context(), ctxKeyPage, model.NewPage(page, limit))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pageFromContext(ctx context.Context) model.Page {
	if p, ok := ctx.Value(ctxKeyPage).(model.Page); ok {
		return p
	}

	return model.NewPage(1, model.DefaultPageLimit)
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	rd := errresponse.FromError(err)
	if rd == errresponse.ErrNotFound {
		rd = errresponse.ErrArticleNotFound
	}
	if err := render.Render(w, r, rd); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}
