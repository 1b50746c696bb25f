package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// CollectionName is the MongoDB collection holding refresh tokens.
const CollectionName = "refresh_tokens"

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates a unique index on the token hash, a user index for
// logout and a TTL index so MongoDB also reaps expired sessions on its own.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("refresh_tokens_token_hash_key"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("refresh_tokens_user_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("refresh_tokens_expires_at_ttl"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if _, err := r.coll.InsertOne(ctx, token); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func liveFilter(tokenHash string, now time.Time) bson.D {
	return bson.D{
		{Key: "tokenHash", Value: tokenHash},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: now}}},
	}
}

func (r *MongoRepository) Find(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	return decodeToken(r.coll.FindOne(ctx, liveFilter(tokenHash, now)))
}

// Consume uses findOneAndDelete, which is atomic on a single document.
func (r *MongoRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	return decodeToken(r.coll.FindOneAndDelete(ctx, liveFilter(tokenHash, now)))
}

func (r *MongoRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "tokenHash", Value: tokenHash}}); err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "userId", Value: userID}})
	if err != nil {
		return 0, fmt.Errorf("mongo error: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: now}}}})
	if err != nil {
		return 0, fmt.Errorf("mongo error: %w", err)
	}
	return res.DeletedCount, nil
}

func decodeToken(res *mongo.SingleResult) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	if err := res.Decode(token); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return token, nil
}
