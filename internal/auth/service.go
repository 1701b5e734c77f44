// Package auth implements email and password accounts with server-side
// sessions carried in a signed cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/session"
	"github.com/SergeyParamoshkin/blogcms/internal/user"
)

var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", model.ErrUnauthorized)

// ClientMeta describes where a sign-in came from.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Service signs users up and in and resolves session cookies.
type Service struct {
	users    user.Store
	sessions session.Store
	codec    *TokenCodec
	cfg      config.AuthConfig
	cost     int
	now      func() time.Time
}

func NewService(users user.Store, sessions session.Store, cfg config.AuthConfig) *Service {
	cost := cfg.PasswordCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Service{
		users:    users,
		sessions: sessions,
		codec:    NewTokenCodec(cfg.Secret),
		cfg:      cfg,
		cost:     cost,
		now:      time.Now,
	}
}

// SignUp creates the account and opens its first session.
func (s *Service) SignUp(ctx context.Context, in SignUpRequest, meta ClientMeta) (*Identity, error) {
	if err := in.validate(s.cfg.MinPasswordLength, s.cfg.MaxPasswordLength); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &model.User{
		ID:           model.NewID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        user.NormalizeEmail(in.Email),
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.open(ctx, u, meta)
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, in SignInRequest, meta ClientMeta) (*Identity, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("find user: %w", err)
	}

	if !checkPassword(u.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.open(ctx, u, meta)
}

// SignOut deletes the session behind a cookie value. Unknown or invalid
// values are ignored.
func (s *Service) SignOut(ctx context.Context, signed string) error {
	sid, _, err := s.codec.Parse(signed)
	if err != nil {
		return nil
	}

	return s.sessions.Delete(ctx, sid)
}

// Authenticate resolves a cookie value to its caller. Sessions last used
// more than the update age ago are extended and re-signed.
func (s *Service) Authenticate(ctx context.Context, signed string) (*Identity, error) {
	sid, uid, err := s.codec.Parse(signed)
	if err != nil {
		return nil, model.ErrUnauthorized
	}

	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrUnauthorized
		}

		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != uid {
		return nil, model.ErrUnauthorized
	}

	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrUnauthorized
		}

		return nil, fmt.Errorf("load user: %w", err)
	}

	id := &Identity{User: u, Session: sess, Token: signed}

	now := s.now().UTC()
	if now.Sub(sess.UpdatedAt) < s.cfg.SessionUpdateAge {
		return id, nil
	}

	expires := now.Add(s.cfg.SessionTTL)
	if err := s.sessions.Touch(ctx, sid, expires, now); err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	sess.ExpiresAt = expires
	sess.UpdatedAt = now

	if id.Token, err = s.codec.Sign(sid, uid, expires); err != nil {
		return nil, err
	}
	id.Refreshed = true

	return id, nil
}

// Cookie returns the session cookie for id.
func (s *Service) Cookie(id *Identity) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id.Token,
		Path:     "/",
		Expires:  id.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that removes the session cookie.
func (s *Service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest returns the session cookie value, falling back to a
// bearer token.
func (s *Service) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	return ""
}

func (s *Service) open(ctx context.Context, u *model.User, meta ClientMeta) (*Identity, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &model.Session{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	signed, err := s.codec.Sign(token, u.ID, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &Identity{User: u, Session: sess, Token: signed, Refreshed: true}, nil
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
