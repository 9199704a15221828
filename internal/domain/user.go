package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commitment score bounds. Every score mutation clamps into this range.
const (
	MinCommitmentScore     = 0
	MaxCommitmentScore     = 100
	DefaultCommitmentScore = 100
)

// User represents a registered member. The commitment profile fields
// (score and attendance counters) live on the same document; they are
// mutated exclusively by the score ledger.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"` // Unique
	PasswordHash string             `bson:"passwordHash" json:"-"`

	CommitmentScore int `bson:"commitmentScore" json:"commitmentScore"` // Clamped to [0,100]
	TotalAttended   int `bson:"totalAttended" json:"totalAttended"`
	TotalFlaked     int `bson:"totalFlaked" json:"totalFlaked"`

	PushToken string `bson:"pushToken,omitempty" json:"-"` // FCM device token, may be empty
	AvatarKey string `bson:"avatarKey,omitempty" json:"-"` // Object key in blob storage

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AttendanceRate is the percentage of completed plans this user showed up
// for, rounded to the nearest integer. A user with no completed history
// counts as fully reliable.
func (u *User) AttendanceRate() int {
	total := u.TotalAttended + u.TotalFlaked
	if total == 0 {
		return 100
	}
	return int(float64(u.TotalAttended)/float64(total)*100 + 0.5)
}
