package recordings

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// CollectionName is the MongoDB collection holding recordings.
const CollectionName = "recordings"

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("recordings_user_id_created_at_idx"),
	})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, rec *models.Recording) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	rec := &models.Recording{}
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return rec, nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string) ([]*models.Recording, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	result := make([]*models.Recording, 0)
	if err := cur.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return result, nil
}

func (r *MongoRepository) Update(ctx context.Context, rec *models.Recording) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: rec.Status},
		{Key: "report", Value: rec.Report},
		{Key: "error", Value: rec.Error},
		{Key: "updatedAt", Value: rec.UpdatedAt},
	}}}
	res, err := r.coll.UpdateByID(ctx, rec.ID, update)
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}
