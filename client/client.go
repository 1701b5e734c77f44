// Package client is a thin typed client of the blog CMS JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	http.Client
	Addr string
	// Token is sent as a bearer token when set. Sign-in and sign-up also
	// store the session cookie in the jar.
	Token string
}

// New returns a client of the server at addr with its own cookie jar.
func New(addr string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Client: http.Client{Jar: jar, Timeout: defaultTimeout},
		Addr:   strings.TrimSuffix(addr, "/"),
	}, nil
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status     int          `json:"-"`
	StatusText string       `json:"status"`
	Message    string       `json:"message"`
	Field      string       `json:"field"`
	Errors     []FieldError `json:"errors"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.StatusText
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}

	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

// StatusOf returns the HTTP status of an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}

	return 0
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
}

type SessionInfo struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Article struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CoverImage string     `json:"coverImage,omitempty"`
	Author     Author     `json:"author"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

type ArticleInput struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CoverImage string `json:"coverImage,omitempty"`
}

// ArticlePatch is a partial update; nil fields are left untouched.
type ArticlePatch struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	CoverImage *string `json:"coverImage,omitempty"`
}

type Metadata struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

type ArticlePage struct {
	Articles []Article `json:"articles"`
	Metadata Metadata  `json:"metadata"`
}

type SearchResult struct {
	Article
	IsOwner bool `json:"isOwner"`
}

type AuthorSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ArticleCount int64  `json:"articleCount"`
}

type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// String returns a pointer to s, for ArticlePatch fields.
func String(s string) *string {
	return &s
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Addr+"/healthz", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), &APIError{Status: resp.StatusCode}
	}

	return string(body), nil
}

func (c *Client) SignUp(ctx context.Context, name, email, password string) (*AuthResult, error) {
	res := &AuthResult{}
	err := c.do(ctx, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
		"name": name, "email": email, "password": password,
	}, res)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	res := &AuthResult{}
	err := c.do(ctx, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": email, "password": password,
	}, res)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/sign-out", nil, nil)
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	var res *SessionInfo
	if err := c.do(ctx, http.MethodGet, "/api/auth/get-session", nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

// ListArticles returns a page of the caller's articles. Zero values use the
// server defaults.
func (c *Client) ListArticles(ctx context.Context, page, limit int) (*ArticlePage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/articles"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	res := &ArticlePage{}
	if err := c.do(ctx, http.MethodGet, path, nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

// GetArticle returns any article by id.
func (c *Client) GetArticle(ctx context.Context, id string) (*Article, error) {
	res := &Article{}
	if err := c.do(ctx, http.MethodGet, "/api/article/"+url.PathEscape(id), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateArticle(ctx context.Context, in ArticleInput) (*Article, error) {
	res := &Article{}
	if err := c.do(ctx, http.MethodPost, "/api/articles", in, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) UpdateArticle(ctx context.Context, id string, patch ArticlePatch) (*Article, error) {
	res := &Article{}
	if err := c.do(ctx, http.MethodPatch, "/api/articles/"+url.PathEscape(id), patch, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/articles/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SearchArticles(ctx context.Context, query string) ([]SearchResult, error) {
	res := []SearchResult{}
	if err := c.do(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(query), nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) Authors(ctx context.Context) ([]AuthorSummary, error) {
	res := []AuthorSummary{}
	if err := c.do(ctx, http.MethodGet, "/api/author", nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

// Upload sends an image as the multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Addr+"/api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res := &UploadResult{}
	if err := c.send(req, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) DeleteUpload(ctx context.Context, imageURL string) error {
	return c.do(ctx, http.MethodDelete, "/api/upload?url="+url.QueryEscape(imageURL), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Addr+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{}
		if len(body) > 0 {
			_ = json.Unmarshal(body, apiErr)
		}
		apiErr.Status = resp.StatusCode

		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}

	return nil
}
