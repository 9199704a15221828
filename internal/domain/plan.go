package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus is the lifecycle state of a plan.
type PlanStatus string

const (
	PlanProposed  PlanStatus = "proposed"
	PlanConfirmed PlanStatus = "confirmed"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

// legalTransitions is the full set of allowed status changes. Completed
// and cancelled are terminal.
var legalTransitions = map[PlanStatus][]PlanStatus{
	PlanProposed:  {PlanConfirmed, PlanCancelled},
	PlanConfirmed: {PlanCompleted, PlanCancelled},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to PlanStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further transitions.
func (s PlanStatus) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// ValidPlanStatus reports whether s is one of the known statuses.
func ValidPlanStatus(s PlanStatus) bool {
	switch s {
	case PlanProposed, PlanConfirmed, PlanCompleted, PlanCancelled:
		return true
	}
	return false
}

// Observed range for the auto-confirmation threshold.
const (
	MinAttendeesFloor   = 2
	MinAttendeesCeiling = 6
)

// Plan pairs a catalog event with a group. Participants are seeded from
// the group roster at creation time; MinAttendees is fixed at creation.
type Plan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID      string             `bson:"eventId" json:"eventId"` // External catalog reference
	EventTitle   string             `bson:"eventTitle" json:"eventTitle"`
	GroupID      primitive.ObjectID `bson:"groupId" json:"groupId"`
	CreatedBy    primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Status       PlanStatus         `bson:"status" json:"status"`
	PlannedDate  time.Time          `bson:"plannedDate" json:"plannedDate"`
	MinAttendees int                `bson:"minAttendees" json:"minAttendees"`

	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
