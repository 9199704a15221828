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

const participantCollectionName = "plan_participants"

// mongoParticipantRepository implements repository.ParticipantRepository.
type mongoParticipantRepository struct {
	collection *mongo.Collection
}

// NewMongoParticipantRepository creates a new participant repository.
func NewMongoParticipantRepository(db *mongo.Database) repository.ParticipantRepository {
	return &mongoParticipantRepository{
		collection: db.Collection(participantCollectionName),
	}
}

// CreateMany seeds the participant rows for a freshly created plan.
func (r *mongoParticipantRepository) CreateMany(ctx context.Context, participants []domain.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	docs := make([]interface{}, len(participants))
	for i := range participants {
		participants[i].ID = primitive.NewObjectID()
		docs[i] = participants[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByPlan returns every participant row of a plan.
func (r *mongoParticipantRepository) GetByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Participant, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var participants []domain.Participant
	if err = cursor.All(ctx, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

// GetByPlanAndUser returns one participant row.
func (r *mongoParticipantRepository) GetByPlanAndUser(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Participant, error) {
	var participant domain.Participant
	err := r.collection.FindOne(ctx, bson.M{"planId": planID, "userId": userID}).Decode(&participant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// SetVote overwrites the participant's vote and derived status. Only the
// voting user mutates their own row, so plain last-write-wins is fine.
func (r *mongoParticipantRepository) SetVote(ctx context.Context, planID, userID primitive.ObjectID, vote domain.Vote, status domain.ParticipantStatus, votedAt time.Time) error {
	filter := bson.M{"planId": planID, "userId": userID}
	update := bson.M{"$set": bson.M{
		"vote":    vote,
		"status":  status,
		"votedAt": votedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetCheckedIn marks the participant present. Re-checking-in keeps the
// original timestamp.
func (r *mongoParticipantRepository) SetCheckedIn(ctx context.Context, planID, userID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"planId": planID, "userId": userID, "checkedIn": false}
	update := bson.M{"$set": bson.M{
		"checkedIn":   true,
		"checkedInAt": at,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the row does not exist or it is already checked in.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"planId": planID, "userId": userID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		// Already checked in; idempotent success.
	}
	return nil
}

// EnsureParticipantIndexes creates the indexes for the participants
// collection.
func EnsureParticipantIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
