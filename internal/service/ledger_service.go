package service

import (
	"context"
	"errors"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/realtime"
	"huddleup/meetup-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUnknownOutcome  = errors.New("unknown attendance outcome")
)

// Consistency bonus policy: +5 when the user's last 5 applied outcomes
// were all attended.
const (
	consistencyWindow = 5
	consistencyBonus  = 5
)

// LedgerService is the sole writer of commitment scores and attendance
// counters. Everything else reads.
type LedgerService interface {
	// ApplyOutcome maps the outcome to its score delta and counter
	// updates and applies them to the user's profile, clamping the score.
	ApplyOutcome(ctx context.Context, userID primitive.ObjectID, outcome domain.Outcome) (*domain.User, error)

	// ApplyOutcomeOnce is ApplyOutcome guarded by the applied-outcomes
	// ledger: the delta lands at most once per (plan, user) pair, so a
	// retried completion cannot re-apply it. Returns whether this call
	// applied the delta.
	ApplyOutcomeOnce(ctx context.Context, planID, userID primitive.ObjectID, outcome domain.Outcome) (bool, error)

	// OutcomesForPlan returns every outcome already applied for a plan.
	OutcomesForPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.AppliedOutcome, error)

	// AwardConsistencyBonus grants +5 (clamped) when the user's last
	// consistencyWindow applied outcomes were all attended, and returns
	// the amount awarded (0 or 5).
	AwardConsistencyBonus(ctx context.Context, userID primitive.ObjectID) (int, error)
}

type ledgerService struct {
	userRepo    repository.UserRepository
	outcomeRepo repository.OutcomeRepository
	publisher   realtime.Publisher
}

// NewLedgerService creates a new instance of ledgerService.
func NewLedgerService(
	userRepo repository.UserRepository,
	outcomeRepo repository.OutcomeRepository,
	publisher realtime.Publisher,
) LedgerService {
	return &ledgerService{
		userRepo:    userRepo,
		outcomeRepo: outcomeRepo,
		publisher:   publisher,
	}
}

func (s *ledgerService) ApplyOutcome(ctx context.Context, userID primitive.ObjectID, outcome domain.Outcome) (*domain.User, error) {
	effect, ok := domain.EffectFor(outcome)
	if !ok {
		return nil, ErrUnknownOutcome
	}

	user, err := s.userRepo.ApplyScoreDelta(ctx, userID, effect.ScoreDelta, effect.AttendedDelta, effect.FlakedDelta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	s.publisher.Publish(ctx, realtime.ChangeEvent{
		Entity: realtime.EntityProfile,
		ID:     userID.Hex(),
		Op:     realtime.OpUpdated,
	})
	return user, nil
}

func (s *ledgerService) ApplyOutcomeOnce(ctx context.Context, planID, userID primitive.ObjectID, outcome domain.Outcome) (bool, error) {
	if _, ok := domain.EffectFor(outcome); !ok {
		return false, ErrUnknownOutcome
	}

	// Record the idempotency key first. If the pair is already present a
	// previous (possibly partial) completion run applied this delta.
	recorded, err := s.outcomeRepo.RecordOnce(ctx, &domain.AppliedOutcome{
		PlanID:  planID,
		UserID:  userID,
		Outcome: outcome,
	})
	if err != nil {
		return false, err
	}
	if !recorded {
		return false, nil
	}

	if _, err := s.ApplyOutcome(ctx, userID, outcome); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ledgerService) OutcomesForPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.AppliedOutcome, error) {
	return s.outcomeRepo.GetByPlan(ctx, planID)
}

// AwardConsistencyBonus reads the streak from the applied-outcome
// history. Only completed plans produce outcomes, so yes-votes on
// upcoming or cancelled plans can neither extend nor break a streak.
func (s *ledgerService) AwardConsistencyBonus(ctx context.Context, userID primitive.ObjectID) (int, error) {
	recent, err := s.outcomeRepo.GetRecentByUser(ctx, userID, consistencyWindow)
	if err != nil {
		return 0, err
	}
	if len(recent) < consistencyWindow {
		return 0, nil
	}
	for _, o := range recent {
		if o.Outcome != domain.OutcomeAttended {
			return 0, nil
		}
	}

	if _, err := s.userRepo.ApplyScoreDelta(ctx, userID, consistencyBonus, 0, 0); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrProfileNotFound
		}
		return 0, err
	}

	s.publisher.Publish(ctx, realtime.ChangeEvent{
		Entity: realtime.EntityProfile,
		ID:     userID.Hex(),
		Op:     realtime.OpUpdated,
	})
	return consistencyBonus, nil
}
