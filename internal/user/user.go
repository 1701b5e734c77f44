// Package user exposes accounts and the authors listing.
package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/userpayload"
)

// Store persists accounts. Emails are unique and kept lower-case.
type Store interface {
	// Create returns model.ErrConflict when the email is taken.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// ListAuthors returns every user with their article count, most
	// prolific first.
	ListAuthors(ctx context.Context) ([]*model.AuthorSummary, error)
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/author", h.ListAuthors)
}

func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.store.ListAuthors(r.Context())
	if err != nil {
		if err := render.Render(w, r, errresponse.FromError(err)); err != nil {
			logging.FromContext(r.Context()).Errorw(err.Error())
		}

		return
	}

	if err := render.RenderList(w, r, userpayload.NewAuthorListResponse(authors)); err != nil {
		if err := render.Render(w, r, errresponse.ErrRender(err)); err != nil {
			logging.FromContext(r.Context()).Errorw(err.Error())
		}
	}
}
