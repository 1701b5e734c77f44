package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/user"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt *time.Time         `bson:"updatedAt,omitempty"`
}

func (d *userDoc) model() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type UserStore struct {
	coll *mongo.Collection
}

func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return model.ErrInvalidID
	}

	_, err = s.coll.InsertOne(ctx, userDoc{
		ID:        id,
		Name:      u.Name,
		Email:     user.NormalizeEmail(u.Email),
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})

	return translate("insert user", err)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrNotFound
	}

	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: user.NormalizeEmail(email)}})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate("find user", err)
	}

	return doc.model(), nil
}

type authorRow struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	ArticleCount int64              `bson:"articleCount"`
}

func (s *UserStore) ListAuthors(ctx context.Context) ([]*model.AuthorSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: articleCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "author"},
			{Key: "as", Value: "articles"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "name", Value: 1},
			{Key: "articleCount", Value: bson.D{{Key: "$size", Value: "$articles"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "articleCount", Value: -1}, {Key: "name", Value: 1}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("aggregate authors", err)
	}
	defer cur.Close(ctx)

	out := []*model.AuthorSummary{}
	for cur.Next(ctx) {
		var row authorRow
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode author: %w", err)
		}
		out = append(out, &model.AuthorSummary{ID: row.ID.Hex(), Name: row.Name, ArticleCount: row.ArticleCount})
	}
	if err := cur.Err(); err != nil {
		return nil, translate("read authors", err)
	}

	return out, nil
}
