package client

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/memstore"
	"github.com/SergeyParamoshkin/blogcms/internal/server"
	"github.com/SergeyParamoshkin/blogcms/internal/upload"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout: 10 * time.Second,
		CORSOrigins:    []string{"*"},
		Auth: config.AuthConfig{
			Secret:            "0123456789abcdef0123456789abcdef",
			SessionTTL:        time.Hour,
			SessionUpdateAge:  time.Minute,
			CookieName:        "blogcms.session_token",
			MinPasswordLength: 6,
			MaxPasswordLength: 128,
			PasswordCost:      bcrypt.MinCost,
			RateLimit:         100,
			RateBurst:         100,
		},
		Upload: config.UploadConfig{MaxBytes: 1 << 20, BaseURL: "http://localhost/uploads"},
	}
	db := memstore.New()
	dir := t.TempDir()
	images, err := upload.NewLocalStore(dir, cfg.Upload.BaseURL)
	require.NoError(t, err)

	r, err := server.NewRouter(server.Options{
		Config:     cfg,
		Users:      db.Users(),
		Articles:   db.Articles(),
		Sessions:   db.Sessions(),
		Images:     images,
		UploadsDir: dir,
		Health:     []server.Pinger{db},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	return c
}

func TestClientArticleFlow(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	pong, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", pong)

	info, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, info)

	signedUp, err := c.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, signedUp.Token)
	assert.Equal(t, "alice@example.com", signedUp.User.Email)

	info, err = c.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, signedUp.User.ID, info.Session.UserID)

	created, err := c.CreateArticle(ctx, ArticleInput{Title: "From the client", Content: "Sent over the wire"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.Author.Name)
	assert.Nil(t, created.UpdatedAt)

	updated, err := c.UpdateArticle(ctx, created.ID, ArticlePatch{Title: String("Renamed by the client")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed by the client", updated.Title)
	assert.Equal(t, created.Content, updated.Content)
	assert.NotNil(t, updated.UpdatedAt)

	got, err := c.GetArticle(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Title, got.Title)

	page, err := c.ListArticles(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Metadata.Total)
	assert.Equal(t, 5, page.Metadata.Limit)

	found, err := c.SearchArticles(ctx, "renamed")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].IsOwner)

	none, err := c.SearchArticles(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	authors, err := c.Authors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, int64(1), authors[0].ArticleCount)

	require.NoError(t, c.DeleteArticle(ctx, created.ID))
	_, err = c.GetArticle(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	require.NoError(t, c.SignOut(ctx))
	_, err = c.ListArticles(ctx, 0, 0)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func TestClientValidationError(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = c.CreateArticle(ctx, ArticleInput{Title: "no", Content: "Long enough content", CoverImage: "not-a-url"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.StatusText)
	assert.Equal(t, "title", apiErr.Field)
	assert.Len(t, apiErr.Errors, 2)
	assert.Contains(t, apiErr.Error(), "Title must be at least 3 characters")

	_, err = c.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestClientBearerToken(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	res, err := newTestClient(t, srv).SignUp(ctx, "Bob", "bob@example.com", "secret123")
	require.NoError(t, err)

	c := &Client{Addr: srv.URL, Token: res.Token}
	info, err := c.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Bob", info.User.Name)
}

func TestClientUpload(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()
	_, err := c.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))

	res, err := c.Upload(ctx, "cover.png", &img)
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MimeType)
	assert.True(t, strings.HasPrefix(res.URL, "http://localhost/uploads/"))

	_, err = c.Upload(ctx, "notes.txt", strings.NewReader("plain text"))
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	require.NoError(t, c.DeleteUpload(ctx, res.URL))
	assert.Equal(t, http.StatusBadRequest, StatusOf(c.DeleteUpload(ctx, res.URL)))
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "api error 502: Bad Gateway", (&APIError{Status: 502}).Error())
	assert.Equal(t, "api error 401: Unauthorized", (&APIError{Status: 401, StatusText: "Unauthorized"}).Error())
	assert.Equal(t, 0, StatusOf(context.Canceled))
}
