package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

type articleDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	CoverImage string             `bson:"coverImage,omitempty"`
	Author     primitive.ObjectID `bson:"author"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  *time.Time         `bson:"updatedAt,omitempty"`
}

// articleView is an article with its author joined in.
type articleView struct {
	ID         primitive.ObjectID `bson:"_id"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	CoverImage string             `bson:"coverImage,omitempty"`
	Author     userDoc            `bson:"author"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  *time.Time         `bson:"updatedAt,omitempty"`
}

func (v *articleView) model() *model.Article {
	a := &model.Article{
		ID:         v.ID.Hex(),
		Title:      v.Title,
		Content:    v.Content,
		CoverImage: v.CoverImage,
		Author:     model.Author{ID: v.Author.ID.Hex(), Name: v.Author.Name},
		CreatedAt:  v.CreatedAt,
	}
	if v.UpdatedAt != nil {
		t := *v.UpdatedAt
		a.UpdatedAt = &t
	}

	return a
}

// joinAuthor replaces the author id with the user document and drops
// articles whose author is gone.
var joinAuthor = mongo.Pipeline{
	{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: userCollection},
		{Key: "localField", Value: "author"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "author"},
	}}},
	{{Key: "$unwind", Value: "$author"}},
}

var newestFirst = bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}}

type ArticleStore struct {
	coll *mongo.Collection
}

func (s *ArticleStore) Insert(ctx context.Context, a *model.Article) error {
	id, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return model.ErrInvalidID
	}
	author, err := primitive.ObjectIDFromHex(a.Author.ID)
	if err != nil {
		return model.ErrInvalidID
	}

	doc := articleDoc{
		ID:         id,
		Title:      a.Title,
		Content:    a.Content,
		CoverImage: a.CoverImage,
		Author:     author,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	_, err = s.coll.InsertOne(ctx, doc)

	return translate("insert article", err)
}

func (s *ArticleStore) Get(ctx context.Context, id string) (*model.Article, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrInvalidID
	}

	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}}}, joinAuthor...)
	found, err := s.aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, model.ErrNotFound
	}

	return found[0], nil
}

func (s *ArticleStore) ListByAuthor(ctx context.Context, authorID string, p model.Page) ([]*model.Article, int64, error) {
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return nil, 0, model.ErrInvalidID
	}
	filter := bson.D{{Key: "author", Value: author}}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate("count articles", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		newestFirst,
		{{Key: "$skip", Value: int64(p.Skip())}},
		{{Key: "$limit", Value: int64(p.Limit)}},
	}
	found, err := s.aggregate(ctx, append(pipeline, joinAuthor...))
	if err != nil {
		return nil, 0, err
	}

	return found, total, nil
}

func (s *ArticleStore) Update(ctx context.Context, id, authorID string, patch model.ArticlePatch, at time.Time) (*model.Article, error) {
	oid, author, err := ids(id, authorID)
	if err != nil {
		return nil, err
	}

	set := bson.D{{Key: "updatedAt", Value: at}}
	unset := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Content != nil {
		set = append(set, bson.E{Key: "content", Value: *patch.Content})
	}
	if patch.CoverImage != nil {
		if *patch.CoverImage == "" {
			unset = append(unset, bson.E{Key: "coverImage", Value: ""})
		} else {
			set = append(set, bson.E{Key: "coverImage", Value: *patch.CoverImage})
		}
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "author", Value: author}}, update)
	if err != nil {
		return nil, translate("update article", err)
	}
	if res.MatchedCount == 0 {
		return nil, model.ErrNotFound
	}

	return s.Get(ctx, id)
}

func (s *ArticleStore) Delete(ctx context.Context, id, authorID string) error {
	oid, author, err := ids(id, authorID)
	if err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "author", Value: author}})
	if err != nil {
		return translate("delete article", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}

	return nil
}

// Search matches the escaped query case-insensitively after the author
// join so author names are searchable too.
func (s *ArticleStore) Search(ctx context.Context, query string, limit int) ([]*model.Article, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}

	pipeline := append(mongo.Pipeline{}, joinAuthor...)
	pipeline = append(pipeline,
		bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "content", Value: re}},
			bson.D{{Key: "author.name", Value: re}},
		}}}}},
		newestFirst,
		bson.D{{Key: "$limit", Value: int64(limit)}},
	)

	return s.aggregate(ctx, pipeline)
}

func (s *ArticleStore) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]*model.Article, error) {
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("aggregate articles", err)
	}
	defer cur.Close(ctx)

	out := []*model.Article{}
	for cur.Next(ctx) {
		var v articleView
		if err := cur.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		out = append(out, v.model())
	}
	if err := cur.Err(); err != nil {
		return nil, translate("read articles", err)
	}

	return out, nil
}

func ids(id, authorID string) (primitive.ObjectID, primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, model.ErrInvalidID
	}
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, model.ErrInvalidID
	}

	return oid, author, nil
}
