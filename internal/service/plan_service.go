package service

import (
	"context"
	"errors"
	"log"
	"time"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/realtime"
	"huddleup/meetup-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound            = errors.New("plan not found")
	ErrGroupNotFound           = errors.New("group not found")
	ErrNotGroupMember          = errors.New("user is not a member of this group")
	ErrNotParticipant          = errors.New("user is not a participant of this plan")
	ErrInvalidVote             = errors.New("vote must be yes, maybe, or no")
	ErrInvalidMinAttendees     = errors.New("minimum attendees must be between 2 and 6")
	ErrInvalidTransition       = errors.New("illegal plan status transition")
	ErrPlanNotConfirmed        = errors.New("plan is not confirmed")
	ErrParticipantNotConfirmed = errors.New("participant has not confirmed attendance")
	ErrNotPlanCreator          = errors.New("only the plan creator may do this")
)

// CreatePlanInput carries the caller-supplied plan fields.
type CreatePlanInput struct {
	EventID      string
	EventTitle   string
	GroupID      primitive.ObjectID
	MinAttendees int
	PlannedDate  time.Time
}

// PlanDetail bundles a plan with its participant rows and the recomputed
// vote tally.
type PlanDetail struct {
	Plan         *domain.Plan         `json:"plan"`
	Participants []domain.Participant `json:"participants"`
	Counts       domain.VoteCounts    `json:"counts"`
}

// VoteResult is what castVote hands back to the caller.
type VoteResult struct {
	Plan          *domain.Plan         `json:"plan"`
	Participants  []domain.Participant `json:"participants"`
	Counts        domain.VoteCounts    `json:"counts"`
	AutoConfirmed bool                 `json:"autoConfirmed"`
}

// CompletionResult summarizes one plan completion.
type CompletionResult struct {
	TotalAttended int `json:"totalAttended"`
	TotalNoShows  int `json:"totalNoShows"`
}

// PlanService owns the plan lifecycle: creation with participant seeding,
// vote aggregation with auto-confirmation, check-in, cancellation, and
// the scoring completion pass.
type PlanService interface {
	CreatePlan(ctx context.Context, creatorID primitive.ObjectID, input CreatePlanInput) (*PlanDetail, error)
	GetPlan(ctx context.Context, planID primitive.ObjectID) (*PlanDetail, error)
	GetGroupPlans(ctx context.Context, groupID primitive.ObjectID) ([]domain.Plan, error)
	CastVote(ctx context.Context, planID, userID primitive.ObjectID, vote domain.Vote) (*VoteResult, error)
	CheckIn(ctx context.Context, planID, userID primitive.ObjectID) error
	CancelPlan(ctx context.Context, planID, callerID primitive.ObjectID) error
	SendReminder(ctx context.Context, planID, callerID primitive.ObjectID) (DeliverySummary, error)
	CompletePlan(ctx context.Context, planID, callerID primitive.ObjectID) (*CompletionResult, error)
}

type planService struct {
	planRepo        repository.PlanRepository
	participantRepo repository.ParticipantRepository
	groupRepo       repository.GroupRepository
	userRepo        repository.UserRepository
	ledger          LedgerService
	notifier        NotificationService
	publisher       realtime.Publisher
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.PlanRepository,
	participantRepo repository.ParticipantRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	ledger LedgerService,
	notifier NotificationService,
	publisher realtime.Publisher,
) PlanService {
	return &planService{
		planRepo:        planRepo,
		participantRepo: participantRepo,
		groupRepo:       groupRepo,
		userRepo:        userRepo,
		ledger:          ledger,
		notifier:        notifier,
		publisher:       publisher,
	}
}

// CreatePlan creates a proposed plan and seeds one participant row per
// group member on the roster at this instant. Later roster changes never
// retroactively add or remove participants.
func (s *planService) CreatePlan(ctx context.Context, creatorID primitive.ObjectID, input CreatePlanInput) (*PlanDetail, error) {
	// 1. Validate input.
	if input.EventID == "" || input.EventTitle == "" {
		return nil, errors.New("event id and title are required")
	}
	if input.MinAttendees < domain.MinAttendeesFloor || input.MinAttendees > domain.MinAttendeesCeiling {
		return nil, ErrInvalidMinAttendees
	}

	// 2. Verify the group exists and the creator belongs to it.
	if _, err := s.groupRepo.GetByID(ctx, input.GroupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	isMember, err := s.groupRepo.IsMember(ctx, input.GroupID, creatorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	// 3. Create the plan.
	plan := &domain.Plan{
		EventID:      input.EventID,
		EventTitle:   input.EventTitle,
		GroupID:      input.GroupID,
		CreatedBy:    creatorID,
		PlannedDate:  input.PlannedDate.UTC(),
		MinAttendees: input.MinAttendees,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID

	// 4. Seed participants from the current roster.
	members, err := s.groupRepo.GetMembers(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	participants := make([]domain.Participant, 0, len(members))
	for _, m := range members {
		participants = append(participants, domain.Participant{
			PlanID: planID,
			UserID: m.UserID,
			Vote:   domain.VoteUnset,
			Status: domain.ParticipantPending,
		})
	}
	if err := s.participantRepo.CreateMany(ctx, participants); err != nil {
		return nil, err
	}

	// 5. Invite everyone. Delivery problems never fail plan creation.
	s.notifyParticipants(ctx, domain.NotifyPlanInvite, plan, participants, nil)

	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityPlan, ID: planID.Hex(), Op: realtime.OpCreated})

	return &PlanDetail{
		Plan:         plan,
		Participants: participants,
		Counts:       domain.TallyVotes(participants),
	}, nil
}

// GetPlan returns a plan with its participants and the current tally.
func (s *planService) GetPlan(ctx context.Context, planID primitive.ObjectID) (*PlanDetail, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	participants, err := s.participantRepo.GetByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return &PlanDetail{
		Plan:         plan,
		Participants: participants,
		Counts:       domain.TallyVotes(participants),
	}, nil
}

// GetGroupPlans lists a group's plans, newest first.
func (s *planService) GetGroupPlans(ctx context.Context, groupID primitive.ObjectID) ([]domain.Plan, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return s.planRepo.GetByGroupID(ctx, groupID)
}

// CastVote records or overwrites the participant's vote, recomputes the
// aggregate tally over the full participant set, and runs the
// auto-confirmation check against the fresh yes-count.
func (s *planService) CastVote(ctx context.Context, planID, userID primitive.ObjectID, vote domain.Vote) (*VoteResult, error) {
	// 1. Validate the vote value.
	if !domain.ValidVote(vote) {
		return nil, ErrInvalidVote
	}

	// 2. Plan and participant must exist; participants are seeded at
	// creation time only.
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	participant, err := s.participantRepo.GetByPlanAndUser(ctx, planID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	// 3. Overwrite the vote. Re-submitting the identical vote is a no-op
	// so repeated taps change nothing observable.
	if participant.Vote != vote {
		status := domain.StatusForVote(vote)
		if err := s.participantRepo.SetVote(ctx, planID, userID, vote, status, time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotParticipant
			}
			return nil, err
		}
		s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityParticipant, ID: planID.Hex(), Op: realtime.OpUpdated})
	}

	// 4. Full recomputation of the tally; incremental counts drift under
	// concurrent writers.
	participants, err := s.participantRepo.GetByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	counts := domain.TallyVotes(participants)

	// 5. Auto-confirmation check with the fresh yes-count.
	autoConfirmed, err := s.evaluateAutoConfirm(ctx, plan, participants, counts.Yes)
	if err != nil {
		return nil, err
	}

	// Re-read so the response carries the post-transition status.
	plan, err = s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	return &VoteResult{
		Plan:          plan,
		Participants:  participants,
		Counts:        counts,
		AutoConfirmed: autoConfirmed,
	}, nil
}

// evaluateAutoConfirm drives the one-time proposed -> confirmed
// transition once yes-votes reach the threshold. The transition is a
// conditional write on the persisted status, so of any number of voters
// racing across the threshold exactly one performs it and fires the
// notification batch; the rest observe the plan already confirmed and do
// nothing.
func (s *planService) evaluateAutoConfirm(ctx context.Context, plan *domain.Plan, participants []domain.Participant, yesCount int) (bool, error) {
	if plan.Status != domain.PlanProposed || yesCount < plan.MinAttendees {
		return false, nil
	}

	err := s.planRepo.TransitionStatus(ctx, plan.ID, domain.PlanProposed, domain.PlanConfirmed, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// Lost the race; the winner already confirmed and notified.
			return false, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrPlanNotFound
		}
		return false, err
	}

	confirmed := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status == domain.ParticipantConfirmed {
			confirmed = append(confirmed, p)
		}
	}
	s.notifyParticipants(ctx, domain.NotifyPlanConfirmed, plan, confirmed, nil)

	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityPlan, ID: plan.ID.Hex(), Op: realtime.OpUpdated})
	return true, nil
}

// CheckIn marks a confirmed participant present at a confirmed plan.
// Repeat check-ins are idempotent.
func (s *planService) CheckIn(ctx context.Context, planID, userID primitive.ObjectID) error {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	if plan.Status != domain.PlanConfirmed {
		return ErrPlanNotConfirmed
	}

	participant, err := s.participantRepo.GetByPlanAndUser(ctx, planID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	if participant.Status != domain.ParticipantConfirmed {
		return ErrParticipantNotConfirmed
	}

	if err := s.participantRepo.SetCheckedIn(ctx, planID, userID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}

	// Tell the creator, best-effort.
	if creator, err := s.userRepo.GetByID(ctx, plan.CreatedBy); err == nil {
		s.notifier.Dispatch(ctx, domain.NotifyCheckIn, plan, []domain.User{*creator})
	}

	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityParticipant, ID: planID.Hex(), Op: realtime.OpUpdated})
	return nil
}

// CancelPlan is a terminal transition with no scoring effect. Cancelling
// an already-cancelled plan is a no-op success; cancelling a completed
// plan is a conflict.
func (s *planService) CancelPlan(ctx context.Context, planID, callerID primitive.ObjectID) error {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	if plan.CreatedBy != callerID {
		return ErrNotPlanCreator
	}

	switch plan.Status {
	case domain.PlanCancelled:
		return nil // Requested end state already holds.
	case domain.PlanCompleted:
		return ErrInvalidTransition
	}

	err = s.planRepo.TransitionStatus(ctx, planID, plan.Status, domain.PlanCancelled, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// The status moved under us. Re-read to decide whether the end
			// state holds anyway.
			current, readErr := s.planRepo.GetByID(ctx, planID)
			if readErr != nil {
				return readErr
			}
			if current.Status == domain.PlanCancelled {
				return nil
			}
			return ErrInvalidTransition
		}
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}

	participants, err := s.participantRepo.GetByPlan(ctx, planID)
	if err == nil {
		s.notifyParticipants(ctx, domain.NotifyPlanCancelled, plan, participants, nil)
	}

	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityPlan, ID: planID.Hex(), Op: realtime.OpUpdated})
	return nil
}

// SendReminder pushes a reminder to everyone who has not declined. Only
// the creator of a confirmed plan may send one.
func (s *planService) SendReminder(ctx context.Context, planID, callerID primitive.ObjectID) (DeliverySummary, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return DeliverySummary{}, ErrPlanNotFound
		}
		return DeliverySummary{}, err
	}
	if plan.CreatedBy != callerID {
		return DeliverySummary{}, ErrNotPlanCreator
	}
	if plan.Status != domain.PlanConfirmed {
		return DeliverySummary{}, ErrPlanNotConfirmed
	}

	participants, err := s.participantRepo.GetByPlan(ctx, planID)
	if err != nil {
		return DeliverySummary{}, err
	}
	recipients := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status != domain.ParticipantDeclined {
			recipients = append(recipients, p)
		}
	}

	var summary DeliverySummary
	s.notifyParticipants(ctx, domain.NotifyPlanReminder, plan, recipients, &summary)
	return summary, nil
}

// CompletePlan maps each confirmed participant's checked-in flag to an
// attendance outcome, applies the ledger once per (plan, user) pair, and
// finalizes the plan. Retrying after a partial failure re-runs the loop
// but the idempotency keys stop any delta from landing twice.
func (s *planService) CompletePlan(ctx context.Context, planID, callerID primitive.ObjectID) (*CompletionResult, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CreatedBy != callerID {
		return nil, ErrNotPlanCreator
	}

	// A completed plan reports the totals already on record instead of
	// erroring, so a retried call is a no-op success.
	if plan.Status == domain.PlanCompleted {
		return s.completedTotals(ctx, planID)
	}
	if plan.Status != domain.PlanConfirmed {
		return nil, ErrInvalidTransition
	}

	participants, err := s.participantRepo.GetByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	// Score every confirmed participant. checked_in decides the outcome;
	// each delta is guarded by its (plan, user) idempotency key.
	result := &CompletionResult{}
	confirmed := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status != domain.ParticipantConfirmed {
			continue
		}
		confirmed = append(confirmed, p)

		outcome := domain.OutcomeNoShow
		if p.CheckedIn {
			outcome = domain.OutcomeAttended
		}
		applied, err := s.ledger.ApplyOutcomeOnce(ctx, planID, p.UserID, outcome)
		if err != nil {
			// Partial failure: already-applied deltas are protected by
			// their keys, so the caller can simply retry.
			return nil, err
		}
		if p.CheckedIn {
			result.TotalAttended++
			// Streak check runs right after the attended outcome lands.
			// Gated on `applied` so a retried or racing completion cannot
			// award the bonus a second time.
			if applied {
				if _, err := s.ledger.AwardConsistencyBonus(ctx, p.UserID); err != nil {
					log.Printf("WARN: consistency bonus for %s: %v", p.UserID.Hex(), err)
				}
			}
		} else {
			result.TotalNoShows++
		}
	}

	err = s.planRepo.TransitionStatus(ctx, planID, domain.PlanConfirmed, domain.PlanCompleted, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// A concurrent retry finished first; its totals match ours.
			current, readErr := s.planRepo.GetByID(ctx, planID)
			if readErr != nil {
				return nil, readErr
			}
			if current.Status == domain.PlanCompleted {
				return result, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.notifyParticipants(ctx, domain.NotifyPlanCompleted, plan, confirmed, nil)
	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityPlan, ID: planID.Hex(), Op: realtime.OpUpdated})

	return result, nil
}

// completedTotals rebuilds a completion summary from the applied-outcome
// records of an already-completed plan.
func (s *planService) completedTotals(ctx context.Context, planID primitive.ObjectID) (*CompletionResult, error) {
	outcomes, err := s.ledger.OutcomesForPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	result := &CompletionResult{}
	for _, o := range outcomes {
		switch o.Outcome {
		case domain.OutcomeAttended:
			result.TotalAttended++
		case domain.OutcomeNoShow:
			result.TotalNoShows++
		}
	}
	return result, nil
}

// notifyParticipants resolves participant rows to users and dispatches
// one notification batch. When summary is non-nil it receives the
// delivery counts.
func (s *planService) notifyParticipants(ctx context.Context, kind domain.NotificationKind, plan *domain.Plan, participants []domain.Participant, summary *DeliverySummary) {
	if len(participants) == 0 {
		return
	}
	ids := make([]primitive.ObjectID, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	result := s.notifier.Dispatch(ctx, kind, plan, users)
	if summary != nil {
		*summary = result
	}
}
