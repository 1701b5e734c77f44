// Package articlerequest holds the request payloads of the article API and
// the rules shared by the API and the HTML forms.
package articlerequest

import (
	"net/http"
	"strings"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/validation"
)

var messages = validation.Messages{
	"title":      "Title must be at least 3 characters",
	"content":    "Content must be at least 10 characters",
	"coverImage": "Please enter a valid URL",
}

// CreateArticleRequest is the request payload of a new article.
type CreateArticleRequest struct {
	Title      string `json:"title" validate:"min=3"`
	Content    string `json:"content" validate:"min=10"`
	CoverImage string `json:"coverImage" validate:"omitempty,url"`
}

// Bind trims the cover URL and validates the payload once it has been
// decoded.
func (a *CreateArticleRequest) Bind(r *http.Request) error {
	a.CoverImage = strings.TrimSpace(a.CoverImage)

	return Check(a)
}

// Input converts the payload to the store input.
func (a *CreateArticleRequest) Input() model.ArticleInput {
	return model.ArticleInput{
		Title:      a.Title,
		Content:    a.Content,
		CoverImage: strings.TrimSpace(a.CoverImage),
	}
}

// UpdateArticleRequest is the request payload of a partial update. Absent
// fields are left untouched; an empty coverImage removes the cover.
type UpdateArticleRequest struct {
	Title      *string `json:"title" validate:"omitnil,min=3"`
	Content    *string `json:"content" validate:"omitnil,min=10"`
	CoverImage *string `json:"coverImage" validate:"omitempty,url"`
}

// Bind trims the cover URL before validating. A blank cover skips the URL
// rule since it clears the cover.
func (a *UpdateArticleRequest) Bind(r *http.Request) error {
	if a.CoverImage != nil {
		cover := strings.TrimSpace(*a.CoverImage)
		a.CoverImage = &cover
	}

	rules := *a
	if rules.CoverImage != nil && *rules.CoverImage == "" {
		rules.CoverImage = nil
	}

	return Check(&rules)
}

// Patch converts the payload to the store patch.
func (a *UpdateArticleRequest) Patch() model.ArticlePatch {
	p := model.ArticlePatch{Title: a.Title, Content: a.Content}
	if a.CoverImage != nil {
		cover := strings.TrimSpace(*a.CoverImage)
		p.CoverImage = &cover
	}

	return p
}

// ValidateInput applies the create rules to form input.
func ValidateInput(in model.ArticleInput) error {
	return Check(&CreateArticleRequest{Title: in.Title, Content: in.Content, CoverImage: strings.TrimSpace(in.CoverImage)})
}

// Check runs the struct rules on payload and reports failures as a
// *model.ValidationError.
func Check(payload interface{}) error {
	return validation.Struct(payload, messages)
}
