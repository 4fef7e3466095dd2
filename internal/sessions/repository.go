package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository is a session persistence backend.
// Implementations return ErrNotFound for a missing token and ErrTokenCollision
// when Insert hits an existing token; any other error means the backend failed.
type Repository interface {
	Insert(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	// Touch sets last_accessed to at unless the stored value is already later.
	Touch(ctx context.Context, token string, at time.Time) error
	// DeleteByToken is idempotent.
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes records with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the unique token index, the user_id lookup index and a
// TTL index on expires_at. Safe to call on every start.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("token_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
		},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, s *Session) error {
	_, err := r.col.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTokenCollision
		}
		return err
	}
	return nil
}

func (r *MongoRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) Touch(ctx context.Context, token string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"token": token}, bson.M{"$max": bson.M{"last_accessed": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"token": token})
	return err
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"user_id": userID})
}

func (r *MongoRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}
