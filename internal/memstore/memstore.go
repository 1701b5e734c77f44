// Package memstore keeps users, articles and sessions in process memory.
// It backs local development and the handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/user"
)

// DB is the shared state of the in-memory stores.
type DB struct {
	mu       sync.RWMutex
	users    []*model.User
	articles []*articleRecord
	sessions map[string]*model.Session
	now      func() time.Time
}

// articleRecord references the author by id like a stored document would.
type articleRecord struct {
	model.Article
	authorID string
}

func New() *DB {
	return &DB{sessions: map[string]*model.Session{}, now: time.Now}
}

func (db *DB) Articles() *ArticleStore { return &ArticleStore{db: db} }
func (db *DB) Users() *UserStore       { return &UserStore{db: db} }
func (db *DB) Sessions() *SessionStore { return &SessionStore{db: db} }

// Ping always succeeds.
func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) userByID(id string) *model.User {
	for _, u := range db.users {
		if u.ID == id {
			return u
		}
	}

	return nil
}

// resolve returns a copy of rec with the current author name, or nil when
// the author no longer exists.
func (db *DB) resolve(rec *articleRecord) *model.Article {
	u := db.userByID(rec.authorID)
	if u == nil {
		return nil
	}
	a := rec.Article
	a.Author = u.AsAuthor()

	return &a
}

type ArticleStore struct {
	db *DB
}

func (s *ArticleStore) Insert(_ context.Context, a *model.Article) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, rec := range s.db.articles {
		if rec.ID == a.ID {
			return model.ErrConflict
		}
	}
	s.db.articles = append(s.db.articles, &articleRecord{Article: *a, authorID: a.Author.ID})

	return nil
}

func (s *ArticleStore) Get(_ context.Context, id string) (*model.Article, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, rec := range s.db.articles {
		if rec.ID == id {
			if a := s.db.resolve(rec); a != nil {
				return a, nil
			}
		}
	}

	return nil, model.ErrNotFound
}

func (s *ArticleStore) ListByAuthor(_ context.Context, authorID string, p model.Page) ([]*model.Article, int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var own []*model.Article
	for _, rec := range s.db.articles {
		if rec.authorID != authorID {
			continue
		}
		if a := s.db.resolve(rec); a != nil {
			own = append(own, a)
		}
	}
	newestFirst(own)

	total := int64(len(own))
	start := p.Skip()
	if start > len(own) {
		start = len(own)
	}
	end := start + p.Limit
	if end > len(own) {
		end = len(own)
	}

	return own[start:end], total, nil
}

func (s *ArticleStore) Update(_ context.Context, id, authorID string, patch model.ArticlePatch, at time.Time) (*model.Article, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, rec := range s.db.articles {
		if rec.ID != id || rec.authorID != authorID {
			continue
		}
		rec.Article = patch.Apply(rec.Article)
		rec.UpdatedAt = &at
		if a := s.db.resolve(rec); a != nil {
			return a, nil
		}
	}

	return nil, model.ErrNotFound
}

func (s *ArticleStore) Delete(_ context.Context, id, authorID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for i, rec := range s.db.articles {
		if rec.ID == id && rec.authorID == authorID {
			s.db.articles = append(s.db.articles[:i], s.db.articles[i+1:]...)

			return nil
		}
	}

	return model.ErrNotFound
}

func (s *ArticleStore) Search(_ context.Context, query string, limit int) ([]*model.Article, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	found := []*model.Article{}
	for _, rec := range s.db.articles {
		if a := s.db.resolve(rec); a != nil && a.Matches(query) {
			found = append(found, a)
		}
	}
	newestFirst(found)
	if len(found) > limit {
		found = found[:limit]
	}

	return found, nil
}

func newestFirst(list []*model.Article) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

type UserStore struct {
	db *DB
}

func (s *UserStore) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	email := user.NormalizeEmail(u.Email)
	for _, existing := range s.db.users {
		if existing.Email == email {
			return model.ErrConflict
		}
	}
	stored := *u
	stored.Email = email
	s.db.users = append(s.db.users, &stored)

	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if u := s.db.userByID(id); u != nil {
		cp := *u

		return &cp, nil
	}

	return nil, model.ErrNotFound
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	email = user.NormalizeEmail(email)
	for _, u := range s.db.users {
		if u.Email == email {
			cp := *u

			return &cp, nil
		}
	}

	return nil, model.ErrNotFound
}

func (s *UserStore) ListAuthors(_ context.Context) ([]*model.AuthorSummary, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	counts := map[string]int64{}
	for _, rec := range s.db.articles {
		counts[rec.authorID]++
	}

	out := make([]*model.AuthorSummary, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, &model.AuthorSummary{ID: u.ID, Name: u.Name, ArticleCount: counts[u.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ArticleCount != out[j].ArticleCount {
			return out[i].ArticleCount > out[j].ArticleCount
		}

		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out, nil
}

type SessionStore struct {
	db *DB
}

func (s *SessionStore) Create(_ context.Context, sess *model.Session) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sessions[sess.Token]; ok {
		return model.ErrConflict
	}
	cp := *sess
	s.db.sessions[sess.Token] = &cp

	return nil
}

func (s *SessionStore) Get(_ context.Context, token string) (*model.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sess, ok := s.db.sessions[token]
	if !ok {
		return nil, model.ErrNotFound
	}
	if sess.Expired(s.db.now()) {
		delete(s.db.sessions, token)

		return nil, model.ErrNotFound
	}
	cp := *sess

	return &cp, nil
}

func (s *SessionStore) Touch(_ context.Context, token string, expiresAt, updatedAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sess, ok := s.db.sessions[token]
	if !ok {
		return model.ErrNotFound
	}
	sess.ExpiresAt = expiresAt
	sess.UpdatedAt = updatedAt

	return nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	delete(s.db.sessions, token)

	return nil
}
