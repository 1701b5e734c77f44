package article

import (
	"context"
	"time"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

// Store persists articles. Implementations return articles with the author
// resolved from the user record and skip articles whose author is gone.
type Store interface {
	// Insert stores a, which already carries its id and timestamps.
	Insert(ctx context.Context, a *model.Article) error
	Get(ctx context.Context, id string) (*model.Article, error)
	// ListByAuthor returns one page of authorID's articles, newest first,
	// and the total number of articles the author has.
	ListByAuthor(ctx context.Context, authorID string, p model.Page) ([]*model.Article, int64, error)
	// Update applies patch to the article only if authorID wrote it and
	// returns model.ErrNotFound otherwise.
	Update(ctx context.Context, id, authorID string, patch model.ArticlePatch, at time.Time) (*model.Article, error)
	// Delete removes the article only if authorID wrote it.
	Delete(ctx context.Context, id, authorID string) error
	// Search returns up to limit articles whose title, content or author
	// name contains query, ignoring case. query is matched literally.
	Search(ctx context.Context, query string, limit int) ([]*model.Article, error)
}
