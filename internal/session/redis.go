package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

const keyPrefix = "session:"

// NewRedisClient builds a client from cfg. A URL takes precedence over the
// address fields.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}

		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}), nil
}

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// sessionRecord carries the token, which model.Session hides from JSON.
type sessionRecord struct {
	model.Session
	Token string `json:"token"`
}

func (s *RedisStore) Create(ctx context.Context, sess *model.Session) error {
	return s.put(ctx, sess)
}

func (s *RedisStore) Get(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}

		return nil, fmt.Errorf("get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	rec.Session.Token = rec.Token

	if rec.Session.Expired(s.now()) {
		return nil, model.ErrNotFound
	}

	return &rec.Session, nil
}

func (s *RedisStore) Touch(ctx context.Context, token string, expiresAt, updatedAt time.Time) error {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	sess.ExpiresAt = expiresAt
	sess.UpdatedAt = updatedAt

	return s.put(ctx, sess)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) put(ctx context.Context, sess *model.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("store session: already expired")
	}

	data, err := json.Marshal(sessionRecord{Session: *sess, Token: sess.Token})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+sess.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	return nil
}
