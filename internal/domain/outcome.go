package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcome is an attendance result fed to the commitment score ledger.
type Outcome string

const (
	OutcomeAttended       Outcome = "attended"
	OutcomeNoShow         Outcome = "no_show"
	OutcomeCancelledLate  Outcome = "cancelled_late"
	OutcomeCancelledEarly Outcome = "cancelled_early"
)

// OutcomeEffect describes how one outcome moves the score and counters.
type OutcomeEffect struct {
	ScoreDelta    int
	AttendedDelta int
	FlakedDelta   int
}

// outcomeEffects is the scoring policy table.
var outcomeEffects = map[Outcome]OutcomeEffect{
	OutcomeAttended:       {ScoreDelta: 2, AttendedDelta: 1},
	OutcomeNoShow:         {ScoreDelta: -10, FlakedDelta: 1},
	OutcomeCancelledLate:  {ScoreDelta: -8, FlakedDelta: 1},
	OutcomeCancelledEarly: {ScoreDelta: -3},
}

// EffectFor returns the score/counter effect of an outcome. The second
// return is false for unknown outcomes.
func EffectFor(o Outcome) (OutcomeEffect, bool) {
	e, ok := outcomeEffects[o]
	return e, ok
}

// ClampScore folds a raw score into the legal commitment range.
func ClampScore(score int) int {
	if score < MinCommitmentScore {
		return MinCommitmentScore
	}
	if score > MaxCommitmentScore {
		return MaxCommitmentScore
	}
	return score
}

// AppliedOutcome records that the ledger already applied an outcome for
// one (plan, user) pair. A unique index on that pair makes completion
// retries unable to double-apply a delta.
type AppliedOutcome struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID    primitive.ObjectID `bson:"planId" json:"planId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Outcome   Outcome            `bson:"outcome" json:"outcome"`
	AppliedAt time.Time          `bson:"appliedAt" json:"appliedAt"`
}
