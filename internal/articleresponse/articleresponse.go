package articleresponse

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/userpayload"
)

// ArticleResponse is the response payload for the Article data model.
//
// In the ArticleResponse object, first a Render() is called on itself,
// then the next field, and so on, all the way down the tree.
type ArticleResponse struct {
	*model.Article

	Author *userpayload.AuthorPayload `json:"author"`
}

func NewArticleResponse(article *model.Article) *ArticleResponse {
	return &ArticleResponse{
		Article: article,
		Author:  userpayload.NewAuthorPayload(article.Author),
	}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ArticlePageResponse is one page of the signed-in user's articles.
type ArticlePageResponse struct {
	Articles []*ArticleResponse `json:"articles"`
	Metadata model.Metadata     `json:"metadata"`
}

func NewArticlePageResponse(page *model.ArticlePage) *ArticlePageResponse {
	resp := &ArticlePageResponse{
		Articles: make([]*ArticleResponse, 0, len(page.Articles)),
		Metadata: page.Metadata,
	}
	for _, a := range page.Articles {
		resp.Articles = append(resp.Articles, NewArticleResponse(a))
	}

	return resp
}

func (rd *ArticlePageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// SearchItem is a search hit flagged with whether the caller wrote it.
type SearchItem struct {
	*ArticleResponse

	IsOwner bool `json:"isOwner"`
}

func (rd *SearchItem) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewSearchListResponse(articles []*model.Article, userID string) []render.Renderer {
	list := []render.Renderer{}
	for _, article := range articles {
		list = append(list, &SearchItem{
			ArticleResponse: NewArticleResponse(article),
			IsOwner:         article.OwnedBy(userID),
		})
	}

	return list
}

// SuccessResponse acknowledges a mutation without a body of its own.
type SuccessResponse struct {
	Success bool `json:"success"`
}

func (rd *SuccessResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
