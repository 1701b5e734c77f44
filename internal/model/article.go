package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Article data model. Author is always populated from the user record when
// an article leaves a store.
type Article struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CoverImage string     `json:"coverImage,omitempty"`
	Author     Author     `json:"author"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Author is the public part of a user attached to an article.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorSummary is a row of the authors listing.
type AuthorSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ArticleCount int64  `json:"articleCount"`
}

// ArticleInput carries the fields of a new article.
type ArticleInput struct {
	Title      string
	Content    string
	CoverImage string
}

// ArticlePatch carries the fields of a partial update. Nil fields are left
// untouched.
type ArticlePatch struct {
	Title      *string
	Content    *string
	CoverImage *string
}

// Apply returns a copy of a with the patch applied.
func (p ArticlePatch) Apply(a Article) Article {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.CoverImage != nil {
		a.CoverImage = *p.CoverImage
	}

	return a
}

// OwnedBy reports whether userID is the article's author.
func (a *Article) OwnedBy(userID string) bool {
	return userID != "" && a.Author.ID == userID
}

// Matches reports whether the case-insensitive needle occurs in the title,
// the content or the author name.
func (a *Article) Matches(needle string) bool {
	needle = strings.ToLower(needle)

	return strings.Contains(strings.ToLower(a.Title), needle) ||
		strings.Contains(strings.ToLower(a.Content), needle) ||
		strings.Contains(strings.ToLower(a.Author.Name), needle)
}

// NewID returns a fresh document id in hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a 24 character hex document id.
func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)

	return err == nil
}
