package mongo

import (
	"context"
	"errors"
	"time"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "plans"

// timestampFieldFor maps a target status to the field stamped on entry.
var timestampFieldFor = map[domain.PlanStatus]string{
	domain.PlanConfirmed: "confirmedAt",
	domain.PlanCompleted: "completedAt",
	domain.PlanCancelled: "cancelledAt",
}

// mongoPlanRepository implements repository.PlanRepository.
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan in the proposed state.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.GroupID == primitive.NilObjectID || plan.CreatedBy == primitive.NilObjectID || plan.EventID == "" {
		return primitive.NilObjectID, errors.New("plan requires groupId, createdBy, and eventId")
	}

	plan.ID = primitive.NewObjectID()
	plan.Status = domain.PlanProposed
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByGroupID retrieves all plans of a group, newest first.
func (r *mongoPlanRepository) GetByGroupID(ctx context.Context, groupID primitive.ObjectID) ([]domain.Plan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"groupId": groupID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.Plan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// TransitionStatus performs the conditional status update. The filter
// matches on both id and the expected current status, so when several
// callers race the same transition only one update matches; the rest see
// ErrStaleStatus and must re-read the plan to find out what happened.
func (r *mongoPlanRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.PlanStatus, at time.Time) error {
	set := bson.M{
		"status":    to,
		"updatedAt": at,
	}
	if field, ok := timestampFieldFor[to]; ok {
		set[field] = at
	}

	filter := bson.M{"_id": id, "status": from}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing plan from a lost race.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStaleStatus
	}
	return nil
}

// EnsurePlanIndexes creates the indexes for the plans collection.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "groupId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
