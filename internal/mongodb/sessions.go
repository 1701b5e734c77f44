package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

type sessionDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"userId"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
	IPAddress string             `bson:"ipAddress,omitempty"`
	UserAgent string             `bson:"userAgent,omitempty"`
}

// SessionStore relies on the TTL index for cleanup; Get still checks the
// expiry because the TTL monitor runs only once a minute.
type SessionStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	uid, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		return model.ErrInvalidID
	}

	_, err = s.coll.InsertOne(ctx, sessionDoc{
		ID:        primitive.NewObjectID(),
		Token:     sess.Token,
		UserID:    uid,
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		IPAddress: sess.IPAddress,
		UserAgent: sess.UserAgent,
	})

	return translate("insert session", err)
}

func (s *SessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	filter := bson.D{
		{Key: "token", Value: token},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: s.now()}}},
	}

	var doc sessionDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate("find session", err)
	}

	return &model.Session{
		Token:     doc.Token,
		UserID:    doc.UserID.Hex(),
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		IPAddress: doc.IPAddress,
		UserAgent: doc.UserAgent,
	}, nil
}

func (s *SessionStore) Touch(ctx context.Context, token string, expiresAt, updatedAt time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "token", Value: token}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "expiresAt", Value: expiresAt},
			{Key: "updatedAt", Value: updatedAt},
		}}},
	)
	if err != nil {
		return translate("touch session", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "token", Value: token}})

	return translate("delete session", err)
}
