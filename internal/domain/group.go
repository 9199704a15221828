package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupRole distinguishes plain members from group admins.
type GroupRole string

const (
	RoleMember GroupRole = "member"
	RoleAdmin  GroupRole = "admin"
)

// Group is a circle of users that plans meetups together.
type Group struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// GroupMember is one roster entry. The roster seeds plan participants at
// plan creation and scopes the leaderboard.
type GroupMember struct {
	GroupID  primitive.ObjectID `bson:"groupId" json:"groupId"`
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	Role     GroupRole          `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}
