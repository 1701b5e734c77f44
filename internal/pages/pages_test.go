package pages

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SergeyParamoshkin/blogcms/internal/article"
	"github.com/SergeyParamoshkin/blogcms/internal/auth"
	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/memstore"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/upload"
)

type fixture struct {
	db       *memstore.DB
	auth     *auth.Service
	articles *article.Service
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memstore.New()
	authSvc := auth.NewService(db.Users(), db.Sessions(), config.AuthConfig{
		Secret:            "0123456789abcdef0123456789abcdef",
		SessionTTL:        7 * 24 * time.Hour,
		SessionUpdateAge:  24 * time.Hour,
		CookieName:        "blogcms.session_token",
		MinPasswordLength: 6,
		MaxPasswordLength: 128,
		PasswordCost:      bcrypt.MinCost,
	})
	articles := article.NewService(db.Articles())

	store, err := upload.NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	h, err := NewHandler(authSvc, auth.NewRateLimiter(100, 100), articles, upload.NewUploader(store, 1<<20))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(authSvc.Session)
	h.Mount(r)

	return &fixture{db: db, auth: authSvc, articles: articles, router: r}
}

// signUp creates an account and returns its session cookie.
func (f *fixture) signUp(t *testing.T, name, email string) (*model.User, *http.Cookie) {
	t.Helper()

	id, err := f.auth.SignUp(context.Background(), auth.SignUpRequest{Name: name, Email: email, Password: "secret123"}, auth.ClientMeta{})
	require.NoError(t, err)

	return id.User, f.auth.Cookie(id)
}

func (f *fixture) create(t *testing.T, u *model.User, title string) *model.Article {
	t.Helper()

	a, err := f.articles.Create(context.Background(), u.AsAuthor(), model.ArticleInput{Title: title, Content: "Long enough content for " + title})
	require.NoError(t, err)

	return a
}

func (f *fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

func postMultipart(t *testing.T, target string, values map[string]string, cover []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if cover != nil {
		fw, err := mw.CreateFormFile("cover", "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(cover)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func TestAnonymousVisitorsAreRedirected(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{"/dashboard", "/dashboard/articles/new", "/search?q=go"} {
		w := f.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusFound, w.Code, target)
		assert.Equal(t, auth.LoginPath, w.Header().Get("Location"), target)
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/auth/login"`)
}

func TestRegisterFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(postForm("/auth/register", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "password": {"secret123"}, "repeatPassword": {"secret124"},
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")
	assert.Contains(t, w.Body.String(), `value="alice@example.com"`)

	w = f.do(postForm("/auth/register", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "password": {"secret123"}, "repeatPassword": {"secret123"},
	}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	session := cookieNamed(w, "blogcms.session_token")
	require.NotNil(t, session)
	flashed := cookieNamed(w, flashCookie)
	require.NotNil(t, flashed)

	w = f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), session, flashed)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Account created successfully!")
	assert.Contains(t, body, "Create your first article")
	assert.Contains(t, body, "Alice")

	w = f.do(postForm("/auth/register", url.Values{
		"name": {"Alice"}, "email": {"ALICE@example.com"}, "password": {"secret123"}, "repeatPassword": {"secret123"},
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "User already exists")
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "Alice", "alice@example.com")

	w := f.do(postForm("/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-password"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	w = f.do(postForm("/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"secret123"}}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	session := cookieNamed(w, "blogcms.session_token")
	require.NotNil(t, session)

	w = f.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), session)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, auth.LoginPath, w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), session)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestCreateArticlePage(t *testing.T) {
	f := newFixture(t)
	alice, session := f.signUp(t, "Alice", "alice@example.com")

	w := f.do(postMultipart(t, "/dashboard/articles/new", map[string]string{"title": "Go", "content": "short"}, nil), session)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Title must be at least 3 characters")
	assert.Contains(t, w.Body.String(), "Content must be at least 10 characters")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1, 1))))

	w = f.do(postMultipart(t, "/dashboard/articles/new", map[string]string{
		"title": "Hello pages", "content": "Rendered on the server side.",
	}, img.Bytes()), session)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	page, err := f.articles.List(context.Background(), alice.ID, model.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	created := page.Articles[0]
	assert.Equal(t, "/dashboard/articles/"+created.ID, w.Header().Get("Location"))
	assert.True(t, strings.HasPrefix(created.CoverImage, "http://localhost/uploads/"), created.CoverImage)

	w = f.do(httptest.NewRequest(http.MethodGet, "/dashboard/articles/"+created.ID, nil), session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello pages")
}

func TestEditArticlePage(t *testing.T) {
	f := newFixture(t)
	alice, session := f.signUp(t, "Alice", "alice@example.com")
	a := f.create(t, alice, "First title")

	w := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/articles/"+a.ID+"/edit", nil), session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="First title"`)

	w = f.do(postMultipart(t, "/dashboard/articles/"+a.ID+"/edit", map[string]string{
		"title": "Second title", "content": a.Content, "coverImage": "not-a-url",
	}, nil), session)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a valid URL")

	w = f.do(postMultipart(t, "/dashboard/articles/"+a.ID+"/edit", map[string]string{
		"title": "Second title", "content": a.Content, "coverImage": "https://example.com/c.png",
	}, nil), session)
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err := f.articles.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second title", got.Title)
	assert.Equal(t, "https://example.com/c.png", got.CoverImage)
	assert.NotNil(t, got.UpdatedAt)
}

func TestArticlePagesForbidOthers(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.signUp(t, "Alice", "alice@example.com")
	_, bobSession := f.signUp(t, "Bob", "bob@example.com")
	a := f.create(t, alice, "Alice only")

	for _, target := range []string{"/dashboard/articles/" + a.ID, "/dashboard/articles/" + a.ID + "/edit"} {
		w := f.do(httptest.NewRequest(http.MethodGet, target, nil), bobSession)
		assert.Equal(t, http.StatusForbidden, w.Code, target)
		assert.Contains(t, w.Body.String(), "You do not have permission", target)
	}

	w := f.do(postForm("/dashboard/articles/"+a.ID+"/delete", nil), bobSession)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/dashboard/articles/not-an-id", nil), bobSession)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(httptest.NewRequest(http.MethodGet, "/dashboard/articles/"+model.NewID(), nil), bobSession)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardPaginationAndDelete(t *testing.T) {
	f := newFixture(t)
	alice, session := f.signUp(t, "Alice", "alice@example.com")
	for _, title := range []string{"One article", "Two article", "Three article", "Four article"} {
		f.create(t, alice, title)
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/dashboard?page=2", nil), session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/dashboard?page=1"`)
	assert.Contains(t, w.Body.String(), "<strong>2</strong>")

	page, err := f.articles.List(context.Background(), alice.ID, model.NewPage(2, DashboardPageSize))
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)

	w = f.do(postForm("/dashboard/articles/"+page.Articles[0].ID+"/delete", url.Values{"page": {"2"}}), session)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	left, err := f.articles.List(context.Background(), alice.ID, model.NewPage(1, DashboardPageSize))
	require.NoError(t, err)
	assert.Equal(t, int64(3), left.Metadata.Total)
}

func TestSearchPage(t *testing.T) {
	f := newFixture(t)
	alice, session := f.signUp(t, "Alice", "alice@example.com")
	bob, _ := f.signUp(t, "Bob", "bob@example.com")
	f.create(t, alice, "Gophers at work")
	f.create(t, bob, "Gophers at rest")

	w := f.do(httptest.NewRequest(http.MethodGet, "/search?q=gophers", nil), session)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "2 result(s)")
	assert.Equal(t, 1, strings.Count(body, "Your article"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/search?q=+", nil), session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "result(s)")
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 3)
	assert.Equal(t, []int{1, 2, 3}, p.Pages)
	assert.True(t, p.HasPrev)
	assert.True(t, p.HasNext)

	p = newPagination(1, 0)
	assert.Equal(t, 1, p.Total)
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
}
