package article

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/blogcms/internal/articlerequest"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

const SearchLimit = 100

// Service implements the article operations on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns one page of userID's articles.
func (s *Service) List(ctx context.Context, userID string, p model.Page) (*model.ArticlePage, error) {
	articles, total, err := s.store.ListByAuthor(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if articles == nil {
		articles = []*model.Article{}
	}

	return &model.ArticlePage{Articles: articles, Metadata: model.NewMetadata(p, total)}, nil
}

// Get returns any article.
func (s *Service) Get(ctx context.Context, id string) (*model.Article, error) {
	if !model.ValidID(id) {
		return nil, model.ErrInvalidID
	}

	return s.store.Get(ctx, id)
}

// GetOwned returns the article only to its author.
func (s *Service) GetOwned(ctx context.Context, id, userID string) (*model.Article, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.OwnedBy(userID) {
		return nil, model.ErrForbidden
	}

	return a, nil
}

// Create validates in and stores a new article written by author.
func (s *Service) Create(ctx context.Context, author model.Author, in model.ArticleInput) (*model.Article, error) {
	if err := articlerequest.ValidateInput(in); err != nil {
		return nil, err
	}

	a := &model.Article{
		ID:         model.NewID(),
		Title:      in.Title,
		Content:    in.Content,
		CoverImage: strings.TrimSpace(in.CoverImage),
		Author:     author,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}

	return a, nil
}

// Update applies patch when userID wrote the article. updatedAt is set even
// when the patch carries no fields.
func (s *Service) Update(ctx context.Context, id, userID string, patch model.ArticlePatch) (*model.Article, error) {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return nil, err
	}

	return s.store.Update(ctx, id, userID, patch, s.now().UTC())
}

// Delete removes the article when userID wrote it.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return err
	}

	return s.store.Delete(ctx, id, userID)
}

// Search looks query up across every author. A blank query matches nothing
// and never reaches the store.
func (s *Service) Search(ctx context.Context, query string) ([]*model.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.Article{}, nil
	}

	found, err := s.store.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	if found == nil {
		found = []*model.Article{}
	}

	return found, nil
}
