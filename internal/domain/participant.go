package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vote is a participant's RSVP value. The zero value means the
// participant has not voted yet.
type Vote string

const (
	VoteUnset Vote = ""
	VoteYes   Vote = "yes"
	VoteMaybe Vote = "maybe"
	VoteNo    Vote = "no"
)

// ValidVote reports whether v is a castable vote value. VoteUnset is the
// seeded state, not something a caller may submit.
func ValidVote(v Vote) bool {
	return v == VoteYes || v == VoteMaybe || v == VoteNo
}

// ParticipantStatus is derived from the vote via a fixed mapping.
type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantMaybe     ParticipantStatus = "maybe"
	ParticipantDeclined  ParticipantStatus = "declined"
)

// StatusForVote maps a vote to the derived participant status.
func StatusForVote(v Vote) ParticipantStatus {
	switch v {
	case VoteYes:
		return ParticipantConfirmed
	case VoteNo:
		return ParticipantDeclined
	case VoteMaybe:
		return ParticipantMaybe
	default:
		return ParticipantPending
	}
}

// Participant is one group member's plan-scoped vote/attendance record.
// Rows exist from plan creation; later roster changes never add or remove
// them.
type Participant struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID primitive.ObjectID `bson:"planId" json:"planId"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`

	Vote      Vote              `bson:"vote" json:"vote"`
	Status    ParticipantStatus `bson:"status" json:"status"`
	CheckedIn bool              `bson:"checkedIn" json:"checkedIn"`

	VotedAt     *time.Time `bson:"votedAt,omitempty" json:"votedAt,omitempty"`
	CheckedInAt *time.Time `bson:"checkedInAt,omitempty" json:"checkedInAt,omitempty"`
}

// VoteCounts is the aggregate tally over all participants of one plan.
// Always recomputed from the full participant set, never incremented,
// so concurrent writers cannot drift it.
type VoteCounts struct {
	Yes     int `json:"yes"`
	Maybe   int `json:"maybe"`
	No      int `json:"no"`
	Pending int `json:"pending"`
}

// TallyVotes recomputes the aggregate counts from a participant snapshot.
func TallyVotes(participants []Participant) VoteCounts {
	var c VoteCounts
	for _, p := range participants {
		switch p.Vote {
		case VoteYes:
			c.Yes++
		case VoteMaybe:
			c.Maybe++
		case VoteNo:
			c.No++
		default:
			c.Pending++
		}
	}
	return c
}
