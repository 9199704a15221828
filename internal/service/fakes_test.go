package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/notify"
	"huddleup/meetup-app/internal/realtime"
	"huddleup/meetup-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore is a single in-memory backing store shared by the fake
// repositories, guarded by one mutex so concurrent service calls observe
// the same atomicity the real store provides per document.
type fakeStore struct {
	mu           sync.Mutex
	users        map[primitive.ObjectID]*domain.User
	groups       map[primitive.ObjectID]*domain.Group
	members      []domain.GroupMember
	plans        map[primitive.ObjectID]*domain.Plan
	participants []*domain.Participant
	outcomes     map[string]*domain.AppliedOutcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[primitive.ObjectID]*domain.User),
		groups:   make(map[primitive.ObjectID]*domain.Group),
		plans:    make(map[primitive.ObjectID]*domain.Plan),
		outcomes: make(map[string]*domain.AppliedOutcome),
	}
}

func outcomeKey(planID, userID primitive.ObjectID) string {
	return planID.Hex() + "/" + userID.Hex()
}

// --- fakeUserRepo ---

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.CommitmentScore = domain.DefaultCommitmentScore
	copied := *user
	r.s.users[user.ID] = &copied
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) SetPushToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PushToken = token
	return nil
}

func (r *fakeUserRepo) SetAvatarKey(_ context.Context, id primitive.ObjectID, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.AvatarKey = key
	return nil
}

func (r *fakeUserRepo) ApplyScoreDelta(_ context.Context, id primitive.ObjectID, scoreDelta, attendedDelta, flakedDelta int) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.CommitmentScore = domain.ClampScore(u.CommitmentScore + scoreDelta)
	u.TotalAttended += attendedDelta
	u.TotalFlaked += flakedDelta
	copied := *u
	return &copied, nil
}

// --- fakeGroupRepo ---

type fakeGroupRepo struct{ s *fakeStore }

func (r *fakeGroupRepo) Create(_ context.Context, group *domain.Group) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group.ID = primitive.NewObjectID()
	copied := *group
	r.s.groups[group.ID] = &copied
	return group.ID, nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGroupRepo) AddMember(_ context.Context, member *domain.GroupMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.GroupID == member.GroupID && m.UserID == member.UserID {
			return repository.ErrDuplicate
		}
	}
	if member.Role == "" {
		member.Role = domain.RoleMember
	}
	member.JoinedAt = time.Now().UTC()
	r.s.members = append(r.s.members, *member)
	return nil
}

func (r *fakeGroupRepo) GetMembers(_ context.Context, groupID primitive.ObjectID) ([]domain.GroupMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var members []domain.GroupMember
	for _, m := range r.s.members {
		if m.GroupID == groupID {
			members = append(members, m)
		}
	}
	return members, nil
}

func (r *fakeGroupRepo) IsMember(_ context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.GroupID == groupID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// --- fakePlanRepo ---

type fakePlanRepo struct{ s *fakeStore }

func (r *fakePlanRepo) Create(_ context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plan.ID = primitive.NewObjectID()
	plan.Status = domain.PlanProposed
	copied := *plan
	r.s.plans[plan.ID] = &copied
	return plan.ID, nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePlanRepo) GetByGroupID(_ context.Context, groupID primitive.ObjectID) ([]domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var plans []domain.Plan
	for _, p := range r.s.plans {
		if p.GroupID == groupID {
			plans = append(plans, *p)
		}
	}
	return plans, nil
}

// TransitionStatus mirrors the conditional update of the real store: the
// status check and the write happen under one lock, so concurrent
// callers cannot both pass it.
func (r *fakePlanRepo) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to domain.PlanStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != from {
		return repository.ErrStaleStatus
	}
	p.Status = to
	switch to {
	case domain.PlanConfirmed:
		p.ConfirmedAt = &at
	case domain.PlanCompleted:
		p.CompletedAt = &at
	case domain.PlanCancelled:
		p.CancelledAt = &at
	}
	return nil
}

// --- fakeParticipantRepo ---

type fakeParticipantRepo struct{ s *fakeStore }

func (r *fakeParticipantRepo) CreateMany(_ context.Context, participants []domain.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range participants {
		participants[i].ID = primitive.NewObjectID()
		copied := participants[i]
		r.s.participants = append(r.s.participants, &copied)
	}
	return nil
}

func (r *fakeParticipantRepo) GetByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Participant
	for _, p := range r.s.participants {
		if p.PlanID == planID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeParticipantRepo) GetByPlanAndUser(_ context.Context, planID, userID primitive.ObjectID) (*domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.PlanID == planID && p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeParticipantRepo) SetVote(_ context.Context, planID, userID primitive.ObjectID, vote domain.Vote, status domain.ParticipantStatus, votedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.PlanID == planID && p.UserID == userID {
			p.Vote = vote
			p.Status = status
			p.VotedAt = &votedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeParticipantRepo) SetCheckedIn(_ context.Context, planID, userID primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.PlanID == planID && p.UserID == userID {
			if !p.CheckedIn {
				p.CheckedIn = true
				p.CheckedInAt = &at
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- fakeOutcomeRepo ---

type fakeOutcomeRepo struct{ s *fakeStore }

func (r *fakeOutcomeRepo) RecordOnce(_ context.Context, outcome *domain.AppliedOutcome) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := outcomeKey(outcome.PlanID, outcome.UserID)
	if _, exists := r.s.outcomes[key]; exists {
		return false, nil
	}
	outcome.ID = primitive.NewObjectID()
	outcome.AppliedAt = time.Now().UTC()
	copied := *outcome
	r.s.outcomes[key] = &copied
	return true, nil
}

func (r *fakeOutcomeRepo) GetByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.AppliedOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.AppliedOutcome
	for _, o := range r.s.outcomes {
		if o.PlanID == planID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (r *fakeOutcomeRepo) GetRecentByUser(_ context.Context, userID primitive.ObjectID, limit int) ([]domain.AppliedOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.AppliedOutcome
	for _, o := range r.s.outcomes {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AppliedAt.After(result[j].AppliedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- fakeGateway ---

// fakeGateway records delivered messages; tokens in failTokens error out.
type fakeGateway struct {
	mu         sync.Mutex
	sent       []notify.Message
	failTokens map[string]bool
}

func (g *fakeGateway) Send(_ context.Context, msg notify.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failTokens[msg.Token] {
		return context.DeadlineExceeded
	}
	g.sent = append(g.sent, msg)
	return nil
}

func (g *fakeGateway) sentByKind(kind domain.NotificationKind) []notify.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []notify.Message
	for _, m := range g.sent {
		if m.Data["kind"] == string(kind) {
			out = append(out, m)
		}
	}
	return out
}

// --- fakePublisher ---

type fakePublisher struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (p *fakePublisher) Publish(_ context.Context, event realtime.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// --- test environment ---

// testEnv wires the services over one shared fake store.
type testEnv struct {
	store       *fakeStore
	users       *fakeUserRepo
	groups      *fakeGroupRepo
	plans       *fakePlanRepo
	parts       *fakeParticipantRepo
	outcomes    *fakeOutcomeRepo
	gateway     *fakeGateway
	publisher   *fakePublisher
	ledger      LedgerService
	planSvc     PlanService
	groupSvc    GroupService
	leaderboard LeaderboardService
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	env := &testEnv{
		store:     store,
		users:     &fakeUserRepo{s: store},
		groups:    &fakeGroupRepo{s: store},
		plans:     &fakePlanRepo{s: store},
		parts:     &fakeParticipantRepo{s: store},
		outcomes:  &fakeOutcomeRepo{s: store},
		gateway:   &fakeGateway{failTokens: make(map[string]bool)},
		publisher: &fakePublisher{},
	}
	notifier := NewNotificationService(env.gateway)
	env.ledger = NewLedgerService(env.users, env.outcomes, env.publisher)
	env.planSvc = NewPlanService(env.plans, env.parts, env.groups, env.users, env.ledger, notifier, env.publisher)
	env.groupSvc = NewGroupService(env.groups, env.users, env.publisher)
	env.leaderboard = NewLeaderboardService(env.groups, env.users)
	return env
}

// addUser seeds a registered user with a device token.
func (e *testEnv) addUser(name string) primitive.ObjectID {
	id, err := e.users.Create(context.Background(), &domain.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		PushToken:    "token-" + name,
	})
	if err != nil {
		panic(err)
	}
	return id
}

// addGroup seeds a group whose roster is exactly the given users, first
// one as admin.
func (e *testEnv) addGroup(userIDs ...primitive.ObjectID) primitive.ObjectID {
	ctx := context.Background()
	groupID, err := e.groups.Create(ctx, &domain.Group{Name: "crew", CreatedBy: userIDs[0]})
	if err != nil {
		panic(err)
	}
	for i, uid := range userIDs {
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleAdmin
		}
		if err := e.groups.AddMember(ctx, &domain.GroupMember{GroupID: groupID, UserID: uid, Role: role}); err != nil {
			panic(err)
		}
	}
	return groupID
}

// createPlan seeds a proposed plan through the service.
func (e *testEnv) createPlan(creatorID, groupID primitive.ObjectID, minAttendees int) *domain.Plan {
	detail, err := e.planSvc.CreatePlan(context.Background(), creatorID, CreatePlanInput{
		EventID:      "evt-1",
		EventTitle:   "Jazz Night",
		GroupID:      groupID,
		MinAttendees: minAttendees,
		PlannedDate:  time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		panic(err)
	}
	return detail.Plan
}

func (e *testEnv) userScore(id primitive.ObjectID) (score, attended, flaked int) {
	u, err := e.users.GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return u.CommitmentScore, u.TotalAttended, u.TotalFlaked
}
