package repository

import (
	"context"
	"time"

	"huddleup/meetup-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate")
	// ErrStaleStatus is returned by conditional plan transitions when the
	// plan exists but its status no longer matches the expected one.
	ErrStaleStatus = RepositoryError("status changed concurrently")
)

// RepositoryError helps distinguish repository errors from driver errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository is the interface for user and commitment-profile data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	SetPushToken(ctx context.Context, id primitive.ObjectID, token string) error
	SetAvatarKey(ctx context.Context, id primitive.ObjectID, key string) error

	// ApplyScoreDelta atomically adds the deltas to the user's commitment
	// score and counters, clamping the score to the legal range, and
	// returns the updated user. Only the ledger service may call this.
	ApplyScoreDelta(ctx context.Context, id primitive.ObjectID, scoreDelta, attendedDelta, flakedDelta int) (*domain.User, error)
}

// GroupRepository is the interface for groups and their rosters.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Group, error)
	AddMember(ctx context.Context, member *domain.GroupMember) error
	GetMembers(ctx context.Context, groupID primitive.ObjectID) ([]domain.GroupMember, error)
	IsMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error)
}

// PlanRepository is the interface for plan documents. Status changes go
// through TransitionStatus only, so every transition is a conditional
// write against the currently persisted status.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	GetByGroupID(ctx context.Context, groupID primitive.ObjectID) ([]domain.Plan, error)

	// TransitionStatus moves a plan from one status to another and stamps
	// the transition timestamp, in a single conditional update matching on
	// both id and the expected current status. When the plan exists but is
	// no longer in `from`, it returns ErrStaleStatus; when it does not
	// exist at all, ErrNotFound. At most one of several concurrent callers
	// expecting the same `from` can succeed.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.PlanStatus, at time.Time) error
}

// ParticipantRepository is the interface for plan participant rows.
type ParticipantRepository interface {
	CreateMany(ctx context.Context, participants []domain.Participant) error
	GetByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Participant, error)
	GetByPlanAndUser(ctx context.Context, planID, userID primitive.ObjectID) (*domain.Participant, error)
	SetVote(ctx context.Context, planID, userID primitive.ObjectID, vote domain.Vote, status domain.ParticipantStatus, votedAt time.Time) error
	SetCheckedIn(ctx context.Context, planID, userID primitive.ObjectID, at time.Time) error
}

// OutcomeRepository is the applied-outcomes ledger backing completion
// idempotency.
type OutcomeRepository interface {
	// RecordOnce inserts the applied outcome unless one already exists for
	// the same (plan, user) pair. It returns true when this call recorded
	// the outcome and false when the pair was already present.
	RecordOnce(ctx context.Context, outcome *domain.AppliedOutcome) (bool, error)
	GetByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.AppliedOutcome, error)

	// GetRecentByUser returns up to limit of the user's most recently
	// applied outcomes, newest first. Outcomes exist only for completed
	// plans, which makes this the consistency-bonus window: yes-votes on
	// upcoming or cancelled plans never enter it.
	GetRecentByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.AppliedOutcome, error)
}
