package pages

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/SergeyParamoshkin/blogcms/internal/articlerequest"
	"github.com/SergeyParamoshkin/blogcms/internal/auth"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/upload"
)

const excerptLength = 160

var dashboardCrumb = crumb{Label: "Dashboard", Href: "/dashboard"}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	number, _ := strconv.Atoi(r.URL.Query().Get("page"))
	p := model.NewPage(number, DashboardPageSize)

	page, err := h.articles.List(r.Context(), user.ID, p)
	if err != nil {
		h.internalError(w, r, err)

		return
	}

	h.render(w, r, http.StatusOK, "dashboard", &view{
		Title:      "Dashboard",
		Crumbs:     []crumb{{Label: "Dashboard"}},
		Articles:   page.Articles,
		Pagination: newPagination(p.Number, page.Metadata.TotalPages),
	})
}

func (h *Handler) NewArticle(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, nil, map[string]string{}, nil)
}

func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	form, errs, err := h.readArticleForm(w, r)
	if err != nil {
		h.internalError(w, r, err)

		return
	}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, nil, form, errs)

		return
	}

	user := auth.UserFromContext(r.Context())
	created, err := h.articles.Create(r.Context(), user.AsAuthor(), model.ArticleInput{
		Title:      form["title"],
		Content:    form["content"],
		CoverImage: form["coverImage"],
	})
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			h.renderForm(w, r, http.StatusUnprocessableEntity, nil, form, fieldErrors(verr))

			return
		}
		h.internalError(w, r, err)

		return
	}

	redirect(w, r, "/dashboard/articles/"+created.ID, "success", "Article created successfully!")
}

func (h *Handler) ShowArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArticle(w, r)
	if !ok {
		return
	}

	h.render(w, r, http.StatusOK, "article", &view{
		Title:   a.Title,
		Crumbs:  []crumb{dashboardCrumb, {Label: a.Title}},
		Article: a,
	})
}

func (h *Handler) EditArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArticle(w, r)
	if !ok {
		return
	}

	h.renderForm(w, r, http.StatusOK, a, map[string]string{
		"title":      a.Title,
		"content":    a.Content,
		"coverImage": a.CoverImage,
	}, nil)
}

func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArticle(w, r)
	if !ok {
		return
	}

	form, errs, err := h.readArticleForm(w, r)
	if err != nil {
		h.internalError(w, r, err)

		return
	}

	in := model.ArticleInput{Title: form["title"], Content: form["content"], CoverImage: form["coverImage"]}
	if len(errs) == 0 {
		var verr *model.ValidationError
		if err := articlerequest.ValidateInput(in); errors.As(err, &verr) {
			errs = fieldErrors(verr)
		}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, a, form, errs)

		return
	}

	user := auth.UserFromContext(r.Context())
	patch := model.ArticlePatch{Title: &in.Title, Content: &in.Content, CoverImage: &in.CoverImage}
	if _, err := h.articles.Update(r.Context(), a.ID, user.ID, patch); err != nil {
		h.articleError(w, r, err)

		return
	}

	redirect(w, r, "/dashboard/articles/"+a.ID, "success", "Article updated successfully!")
}

// DeleteArticle removes the article and returns to the dashboard page it
// was deleted from, stepping back a page when that one is now empty.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := h.articles.Delete(r.Context(), chi.URLParam(r, "articleID"), user.ID); err != nil {
		h.articleError(w, r, err)

		return
	}

	number, _ := strconv.Atoi(r.PostFormValue("page"))
	p := model.NewPage(number, DashboardPageSize)
	if p.Number > 1 {
		page, err := h.articles.List(r.Context(), user.ID, p)
		if err != nil {
			h.internalError(w, r, err)

			return
		}
		if len(page.Articles) == 0 {
			p.Number--
		}
	}

	target := "/dashboard"
	if p.Number > 1 {
		target += "?page=" + strconv.Itoa(p.Number)
	}
	redirect(w, r, target, "success", "Article deleted successfully!")
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	found, err := h.articles.Search(r.Context(), query)
	if err != nil {
		h.internalError(w, r, err)

		return
	}

	user := auth.UserFromContext(r.Context())
	results := make([]searchResult, 0, len(found))
	for _, a := range found {
		results = append(results, searchResult{Article: a, IsOwner: a.OwnedBy(user.ID), Excerpt: excerpt(a.Content)})
	}

	h.render(w, r, http.StatusOK, "search", &view{
		Title:   "Search",
		Crumbs:  []crumb{dashboardCrumb, {Label: "Search"}},
		Query:   query,
		Results: results,
	})
}

// ownedArticle loads the routed article for its author, rendering the error
// page otherwise.
func (h *Handler) ownedArticle(w http.ResponseWriter, r *http.Request) (*model.Article, bool) {
	user := auth.UserFromContext(r.Context())
	a, err := h.articles.GetOwned(r.Context(), chi.URLParam(r, "articleID"), user.ID)
	if err != nil {
		h.articleError(w, r, err)

		return nil, false
	}

	return a, true
}

// readArticleForm parses the article form. An attached cover file is
// uploaded first and replaces the cover URL field.
func (h *Handler) readArticleForm(w http.ResponseWriter, r *http.Request) (map[string]string, map[string]string, error) {
	errs := map[string]string{}
	var uploaded *upload.Result

	if h.uploader != nil {
		res, err := h.uploader.FromRequest(w, r, "cover")
		switch {
		case err == nil:
			uploaded = res
		case errors.Is(err, upload.ErrNoFile):
		case errors.Is(err, upload.ErrNotImage):
			errs["cover"] = "Only image files are allowed"
		case errors.Is(err, upload.ErrTooLarge):
			errs["cover"] = fmt.Sprintf("File size must be less than %d MB", h.uploader.MaxBytes()>>20)
		default:
			return nil, nil, err
		}
	} else if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, fmt.Errorf("parse article form: %w", err)
	}

	form := map[string]string{
		"title":      r.FormValue("title"),
		"content":    r.FormValue("content"),
		"coverImage": strings.TrimSpace(r.FormValue("coverImage")),
	}
	if uploaded != nil {
		form["coverImage"] = uploaded.URL
	}

	return form, errs, nil
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, a *model.Article, form, errs map[string]string) {
	v := &view{Form: form, Errors: errs}
	if a == nil {
		v.Title = "New Article"
		v.Action = "/dashboard/articles/new"
		v.Crumbs = []crumb{dashboardCrumb, {Label: "New Article"}}
	} else {
		v.Title = "Edit Article"
		v.Action = "/dashboard/articles/" + a.ID + "/edit"
		v.Crumbs = []crumb{dashboardCrumb, {Label: a.Title, Href: "/dashboard/articles/" + a.ID}, {Label: "Edit"}}
	}

	h.render(w, r, status, "form", v)
}

func (h *Handler) articleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidID):
		h.renderError(w, r, http.StatusBadRequest, "Invalid article", "Invalid article ID format")
	case errors.Is(err, model.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, "Not found", "Article not found")
	case errors.Is(err, model.ErrForbidden):
		h.renderError(w, r, http.StatusForbidden, "Access denied", "You do not have permission to view this article")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Errorw("page request failed", "path", r.URL.Path, "error", err)
	h.renderError(w, r, http.StatusInternalServerError, "Error", "Something went wrong")
}

func newPagination(current int, totalPages int64) pagination {
	total := int(totalPages)
	if total < 1 {
		total = 1
	}

	p := pagination{
		Current: current,
		Total:   total,
		Pages:   make([]int, 0, total),
		HasPrev: current > 1,
		HasNext: current < total,
		Prev:    current - 1,
		Next:    current + 1,
	}
	for i := 1; i <= total; i++ {
		p.Pages = append(p.Pages, i)
	}

	return p
}

func excerpt(content string) string {
	if utf8.RuneCountInString(content) <= excerptLength {
		return content
	}

	return string([]rune(content)[:excerptLength]) + "…"
}
