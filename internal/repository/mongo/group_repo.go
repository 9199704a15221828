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

const (
	groupCollectionName       = "groups"
	groupMemberCollectionName = "group_members"
)

// mongoGroupRepository implements repository.GroupRepository. Groups and
// roster entries live in two collections.
type mongoGroupRepository struct {
	groups  *mongo.Collection
	members *mongo.Collection
}

// NewMongoGroupRepository creates a new group repository.
func NewMongoGroupRepository(db *mongo.Database) repository.GroupRepository {
	return &mongoGroupRepository{
		groups:  db.Collection(groupCollectionName),
		members: db.Collection(groupMemberCollectionName),
	}
}

// Create inserts a new group.
func (r *mongoGroupRepository) Create(ctx context.Context, group *domain.Group) (primitive.ObjectID, error) {
	if group.Name == "" || group.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("group name and creator are required")
	}

	group.ID = primitive.NewObjectID()
	group.CreatedAt = time.Now().UTC()

	result, err := r.groups.InsertOne(ctx, group)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted group ID")
	}
	return insertedID, nil
}

// GetByID retrieves a group by its ID.
func (r *mongoGroupRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Group, error) {
	var group domain.Group
	err := r.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// AddMember inserts one roster entry. Adding the same user twice is a
// duplicate error thanks to the unique (groupId, userId) index.
func (r *mongoGroupRepository) AddMember(ctx context.Context, member *domain.GroupMember) error {
	if member.Role == "" {
		member.Role = domain.RoleMember
	}
	member.JoinedAt = time.Now().UTC()

	_, err := r.members.InsertOne(ctx, member)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetMembers returns the current roster of a group, oldest member first.
func (r *mongoGroupRepository) GetMembers(ctx context.Context, groupID primitive.ObjectID) ([]domain.GroupMember, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}})
	cursor, err := r.members.Find(ctx, bson.M{"groupId": groupID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []domain.GroupMember
	if err = cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// IsMember reports whether the user is on the group's roster.
func (r *mongoGroupRepository) IsMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	count, err := r.members.CountDocuments(ctx, bson.M{"groupId": groupID, "userId": userID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnsureGroupIndexes creates the indexes for the roster collection.
func EnsureGroupIndexes(ctx context.Context, memberCollection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "groupId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = memberCollection.Indexes().CreateMany(ctx, indexes)
}
