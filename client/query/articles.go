package query

import (
	"context"
	"strconv"

	"github.com/SergeyParamoshkin/blogcms/client"
)

// API is the part of *client.Client the article queries use.
type API interface {
	ListArticles(ctx context.Context, page, limit int) (*client.ArticlePage, error)
	GetArticle(ctx context.Context, id string) (*client.Article, error)
	CreateArticle(ctx context.Context, in client.ArticleInput) (*client.Article, error)
	UpdateArticle(ctx context.Context, id string, patch client.ArticlePatch) (*client.Article, error)
	DeleteArticle(ctx context.Context, id string) error
	SearchArticles(ctx context.Context, q string) ([]client.SearchResult, error)
}

var (
	articlesPrefix = Key{"articles"}
	searchPrefix   = Key{"search"}
)

func ArticlesKey(page int) Key {
	return Key{"articles", strconv.Itoa(page)}
}

func ArticleKey(id string) Key {
	return Key{"article", id}
}

func SearchKey(q string) Key {
	return Key{"search", q}
}

// Articles reads articles through the cache and applies mutations
// optimistically, rolling the cache back when the server rejects them.
type Articles struct {
	api   API
	cache *Client
	limit int
}

// NewArticles returns article queries with pages of limit items; zero
// uses the server default.
func NewArticles(api API, cache *Client, limit int) *Articles {
	return &Articles{api: api, cache: cache, limit: limit}
}

func (a *Articles) List(ctx context.Context, page int) (*client.ArticlePage, error) {
	if page < 1 {
		page = 1
	}

	return Fetch(ctx, a.cache, ArticlesKey(page), func(ctx context.Context) (*client.ArticlePage, error) {
		return a.api.ListArticles(ctx, page, a.limit)
	})
}

func (a *Articles) Get(ctx context.Context, id string) (*client.Article, error) {
	return Fetch(ctx, a.cache, ArticleKey(id), func(ctx context.Context) (*client.Article, error) {
		return a.api.GetArticle(ctx, id)
	})
}

// Search returns no results for an empty query without asking the server.
func (a *Articles) Search(ctx context.Context, q string) ([]client.SearchResult, error) {
	if q == "" {
		return []client.SearchResult{}, nil
	}

	return Fetch(ctx, a.cache, SearchKey(q), func(ctx context.Context) ([]client.SearchResult, error) {
		return a.api.SearchArticles(ctx, q)
	})
}

func (a *Articles) Create(ctx context.Context, in client.ArticleInput) (*client.Article, error) {
	created, err := Mutate(ctx, a.cache, func(ctx context.Context) (*client.Article, error) {
		return a.api.CreateArticle(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	a.cache.SetQueryData(ArticleKey(created.ID), created)
	a.cache.InvalidateQueries(articlesPrefix)
	a.cache.InvalidateQueries(searchPrefix)

	return created, nil
}

// Update shows the patched article in the cache before the server answers.
func (a *Articles) Update(ctx context.Context, id string, patch client.ArticlePatch) (*client.Article, error) {
	prev := a.cache.snapshot(ArticleKey(id))
	if cur, ok := GetQueryData[*client.Article](a.cache, ArticleKey(id)); ok {
		a.cache.SetQueryData(ArticleKey(id), applyPatch(cur, patch))
	}

	updated, err := Mutate(ctx, a.cache, func(ctx context.Context) (*client.Article, error) {
		return a.api.UpdateArticle(ctx, id, patch)
	})
	if err != nil {
		a.cache.RemoveQueries(ArticleKey(id))
		a.cache.restore(prev)

		return nil, err
	}

	a.cache.SetQueryData(ArticleKey(id), updated)
	a.cache.InvalidateQueries(articlesPrefix)
	a.cache.InvalidateQueries(searchPrefix)

	return updated, nil
}

// Delete removes the article from every cached page before the server
// answers.
func (a *Articles) Delete(ctx context.Context, id string) error {
	prev := a.cache.snapshot(articlesPrefix)
	for _, e := range prev {
		page, ok := e.data.(*client.ArticlePage)
		if !ok {
			continue
		}
		a.cache.SetQueryData(e.key, withoutArticle(page, id))
	}

	_, err := Mutate(ctx, a.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.api.DeleteArticle(ctx, id)
	})
	if err != nil {
		a.cache.restore(prev)

		return err
	}

	a.cache.RemoveQueries(ArticleKey(id))
	a.cache.InvalidateQueries(articlesPrefix)
	a.cache.InvalidateQueries(searchPrefix)

	return nil
}

// PageAfterDelete returns the page to show once an article was deleted from
// current: the previous page when current is left empty.
func (a *Articles) PageAfterDelete(current int) int {
	if current <= 1 {
		return 1
	}

	page, ok := GetQueryData[*client.ArticlePage](a.cache, ArticlesKey(current))
	if ok && len(page.Articles) == 0 {
		return current - 1
	}

	return current
}

func applyPatch(cur *client.Article, patch client.ArticlePatch) *client.Article {
	next := *cur
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Content != nil {
		next.Content = *patch.Content
	}
	if patch.CoverImage != nil {
		next.CoverImage = *patch.CoverImage
	}

	return &next
}

func withoutArticle(page *client.ArticlePage, id string) *client.ArticlePage {
	next := *page
	next.Articles = make([]client.Article, 0, len(page.Articles))
	for _, art := range page.Articles {
		if art.ID != id {
			next.Articles = append(next.Articles, art)
		}
	}
	if removed := int64(len(page.Articles) - len(next.Articles)); removed > 0 && next.Metadata.Total >= removed {
		next.Metadata.Total -= removed
	}

	return &next
}
