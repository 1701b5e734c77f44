package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

const ns = "blog-cms.article"

func articleBSON(id, author primitive.ObjectID, title, authorName string, at time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "content", Value: "content of " + title},
		{Key: "author", Value: bson.D{
			{Key: "_id", Value: author},
			{Key: "name", Value: authorName},
			{Key: "email", Value: "someone@example.com"},
		}},
		{Key: "createdAt", Value: at},
	}
}

func TestArticleStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get joins the author", func(mt *mtest.T) {
		id, author := primitive.NewObjectID(), primitive.NewObjectID()
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			articleBSON(id, author, "Hello", "Alice", now)))

		got, err := New(mt.DB).Articles().Get(context.Background(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, "Hello", got.Title)
		assert.Equal(mt, model.Author{ID: author.Hex(), Name: "Alice"}, got.Author)
		assert.True(mt, now.Equal(got.CreatedAt))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := New(mt.DB).Articles().Get(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, model.ErrNotFound)
	})

	mt.Run("get invalid id", func(mt *mtest.T) {
		_, err := New(mt.DB).Articles().Get(context.Background(), "nope")
		assert.ErrorIs(mt, err, model.ErrInvalidID)
	})

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := New(mt.DB).Articles().Insert(context.Background(), &model.Article{
			ID:        model.NewID(),
			Title:     "Hello",
			Content:   "content here",
			Author:    model.Author{ID: model.NewID(), Name: "Alice"},
			CreatedAt: time.Now(),
		})
		assert.NoError(mt, err)
	})

	mt.Run("list by author counts and pages", func(mt *mtest.T) {
		author := primitive.NewObjectID()
		now := time.Now().UTC()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(7)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				articleBSON(primitive.NewObjectID(), author, "newest", "Alice", now),
				articleBSON(primitive.NewObjectID(), author, "older", "Alice", now.Add(-time.Hour)),
			),
		)

		got, total, err := New(mt.DB).Articles().ListByAuthor(context.Background(), author.Hex(), model.NewPage(2, 2))
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), total)
		require.Len(mt, got, 2)
		assert.Equal(mt, "newest", got[0].Title)
	})

	mt.Run("update by someone else matches nothing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		title := "stolen"
		_, err := New(mt.DB).Articles().Update(context.Background(), model.NewID(), model.NewID(),
			model.ArticlePatch{Title: &title}, time.Now())
		assert.ErrorIs(mt, err, model.ErrNotFound)
	})

	mt.Run("update returns the joined article", func(mt *mtest.T) {
		id, author := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, articleBSON(id, author, "renamed", "Alice", time.Now())),
		)

		title, cover := "renamed", ""
		got, err := New(mt.DB).Articles().Update(context.Background(), id.Hex(), author.Hex(),
			model.ArticlePatch{Title: &title, CoverImage: &cover}, time.Now())
		require.NoError(mt, err)
		assert.Equal(mt, "renamed", got.Title)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)
		store := New(mt.DB).Articles()

		assert.NoError(mt, store.Delete(context.Background(), model.NewID(), model.NewID()))
		assert.ErrorIs(mt, store.Delete(context.Background(), model.NewID(), model.NewID()), model.ErrNotFound)
	})

	mt.Run("search", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			articleBSON(primitive.NewObjectID(), primitive.NewObjectID(), "a+b", "Alice", time.Now())))

		got, err := New(mt.DB).Articles().Search(context.Background(), "a+b", 100)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "a+b", got[0].Title)
	})
}

func TestUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: blog-cms.user index: email_1",
		}))

		err := New(mt.DB).Users().Create(context.Background(), &model.User{ID: model.NewID(), Email: "a@example.com"})
		assert.ErrorIs(mt, err, model.ErrConflict)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blog-cms.user", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Alice"},
			{Key: "email", Value: "alice@example.com"},
			{Key: "password", Value: "$2a$10$hash"},
		}))

		got, err := New(mt.DB).Users().GetByEmail(context.Background(), "ALICE@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, "$2a$10$hash", got.PasswordHash)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blog-cms.user", mtest.FirstBatch))

		_, err := New(mt.DB).Users().GetByID(context.Background(), model.NewID())
		assert.ErrorIs(mt, err, model.ErrNotFound)
	})

	mt.Run("list authors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blog-cms.user", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Bob"}, {Key: "articleCount", Value: int32(3)}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Alice"}, {Key: "articleCount", Value: int32(1)}},
		))

		got, err := New(mt.DB).Users().ListAuthors(context.Background())
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "Bob", got[0].Name)
		assert.Equal(mt, int64(3), got[0].ArticleCount)
	})
}

func TestSessionStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create and get", func(mt *mtest.T) {
		uid := primitive.NewObjectID()
		exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "blog-cms.session", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "token", Value: "tok"},
				{Key: "userId", Value: uid},
				{Key: "expiresAt", Value: exp},
			}),
		)
		store := New(mt.DB).Sessions()

		require.NoError(mt, store.Create(context.Background(), &model.Session{Token: "tok", UserID: uid.Hex(), ExpiresAt: exp}))
		got, err := store.Get(context.Background(), "tok")
		require.NoError(mt, err)
		assert.Equal(mt, uid.Hex(), got.UserID)
		assert.True(mt, exp.Equal(got.ExpiresAt))
	})

	mt.Run("touch unknown", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := New(mt.DB).Sessions().Touch(context.Background(), "tok", time.Now(), time.Now())
		assert.ErrorIs(mt, err, model.ErrNotFound)
	})
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates every collection's indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		assert.NoError(mt, New(mt.DB).EnsureIndexes(context.Background()))
	})
}
