package mongo

import (
	"context"
	"time"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const outcomeCollectionName = "applied_outcomes"

// mongoOutcomeRepository implements repository.OutcomeRepository. The
// unique (planId, userId) index is what makes RecordOnce race-safe: of
// two concurrent inserts for the same pair exactly one lands.
type mongoOutcomeRepository struct {
	collection *mongo.Collection
}

// NewMongoOutcomeRepository creates a new applied-outcomes repository.
func NewMongoOutcomeRepository(db *mongo.Database) repository.OutcomeRepository {
	return &mongoOutcomeRepository{
		collection: db.Collection(outcomeCollectionName),
	}
}

// RecordOnce inserts the applied outcome unless one already exists for
// the (plan, user) pair.
func (r *mongoOutcomeRepository) RecordOnce(ctx context.Context, outcome *domain.AppliedOutcome) (bool, error) {
	outcome.ID = primitive.NewObjectID()
	outcome.AppliedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, outcome)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByPlan returns every outcome already applied for a plan.
func (r *mongoOutcomeRepository) GetByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.AppliedOutcome, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var outcomes []domain.AppliedOutcome
	if err = cursor.All(ctx, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// GetRecentByUser returns up to limit of the user's most recently
// applied outcomes, newest first.
func (r *mongoOutcomeRepository) GetRecentByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.AppliedOutcome, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "appliedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var outcomes []domain.AppliedOutcome
	if err = cursor.All(ctx, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// EnsureOutcomeIndexes creates the unique idempotency index and the
// per-user history index backing the consistency-bonus window.
func EnsureOutcomeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "appliedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
