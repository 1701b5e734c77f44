// Package mongodb implements the stores on a MongoDB database.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

const (
	articleCollection = "article"
	userCollection    = "user"
	sessionCollection = "session"
)

// Connect opens the pooled client described by cfg and checks it answers.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetSocketTimeout(cfg.SocketTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// DB bundles the stores of one database.
type DB struct {
	db *mongo.Database
}

func New(db *mongo.Database) *DB {
	return &DB{db: db}
}

func (d *DB) Articles() *ArticleStore { return &ArticleStore{coll: d.db.Collection(articleCollection)} }
func (d *DB) Users() *UserStore       { return &UserStore{coll: d.db.Collection(userCollection)} }
func (d *DB) Sessions() *SessionStore {
	return &SessionStore{coll: d.db.Collection(sessionCollection), now: time.Now}
}

// Ping checks the primary answers.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes the stores rely on. It is idempotent.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		articleCollection: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		userCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sessionCollection: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}

	for _, name := range []string{articleCollection, userCollection, sessionCollection} {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, indexes[name]); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}

	return nil
}

// translate maps driver errors to model errors.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, model.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
