package userpayload

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

// AuthorPayload is the author embedded in article payloads.
type AuthorPayload struct {
	model.Author
}

func NewAuthorPayload(author model.Author) *AuthorPayload {
	return &AuthorPayload{Author: author}
}

func (u *AuthorPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// UserPayload is the public view of an account.
type UserPayload struct {
	*model.User
}

func NewUserPayloadResponse(user *model.User) *UserPayload {
	return &UserPayload{User: user}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// AuthorSummaryPayload is a row of the authors listing.
type AuthorSummaryPayload struct {
	*model.AuthorSummary
}

func (u *AuthorSummaryPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewAuthorListResponse(authors []*model.AuthorSummary) []render.Renderer {
	list := []render.Renderer{}
	for _, a := range authors {
		list = append(list, &AuthorSummaryPayload{AuthorSummary: a})
	}

	return list
}
