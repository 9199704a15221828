package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/realtime"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestApplyOutcomeDeltas(t *testing.T) {
	cases := []struct {
		outcome      domain.Outcome
		startScore   int
		wantScore    int
		wantAttended int
		wantFlaked   int
	}{
		{domain.OutcomeAttended, 50, 52, 1, 0},
		{domain.OutcomeAttended, 100, 100, 1, 0}, // clamped at the ceiling
		{domain.OutcomeNoShow, 50, 40, 0, 1},
		{domain.OutcomeNoShow, 5, 0, 0, 1}, // clamped at the floor
		{domain.OutcomeCancelledLate, 50, 42, 0, 1},
		{domain.OutcomeCancelledEarly, 50, 47, 0, 0},
		{domain.OutcomeCancelledEarly, 1, 0, 0, 0},
	}
	for _, c := range cases {
		env := newTestEnv()
		uid := env.addUser("sam")
		env.store.mu.Lock()
		env.store.users[uid].CommitmentScore = c.startScore
		env.store.mu.Unlock()

		user, err := env.ledger.ApplyOutcome(context.Background(), uid, c.outcome)
		if err != nil {
			t.Fatalf("ApplyOutcome(%s): %v", c.outcome, err)
		}
		if user.CommitmentScore != c.wantScore {
			t.Errorf("%s from %d: score = %d, want %d", c.outcome, c.startScore, user.CommitmentScore, c.wantScore)
		}
		if user.TotalAttended != c.wantAttended || user.TotalFlaked != c.wantFlaked {
			t.Errorf("%s: counters = (%d, %d), want (%d, %d)",
				c.outcome, user.TotalAttended, user.TotalFlaked, c.wantAttended, c.wantFlaked)
		}
	}
}

func TestApplyOutcomeUnknown(t *testing.T) {
	env := newTestEnv()
	uid := env.addUser("sam")
	if _, err := env.ledger.ApplyOutcome(context.Background(), uid, domain.Outcome("vanished")); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("unknown outcome: err = %v, want ErrUnknownOutcome", err)
	}
	if _, err := env.ledger.ApplyOutcome(context.Background(), primitive.NewObjectID(), domain.OutcomeAttended); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("unknown user: err = %v, want ErrProfileNotFound", err)
	}
}

func TestApplyOutcomeOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	uid := env.addUser("sam")
	planID := primitive.NewObjectID()

	applied, err := env.ledger.ApplyOutcomeOnce(ctx, planID, uid, domain.OutcomeNoShow)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !applied {
		t.Fatal("first apply must land the delta")
	}
	if score, _, flaked := env.userScore(uid); score != 90 || flaked != 1 {
		t.Fatalf("after first apply: score=%d flaked=%d, want 90/1", score, flaked)
	}

	// Same (plan, user) pair again: the key blocks the delta.
	applied, err = env.ledger.ApplyOutcomeOnce(ctx, planID, uid, domain.OutcomeNoShow)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied {
		t.Error("second apply for the same pair must be a no-op")
	}
	if score, _, flaked := env.userScore(uid); score != 90 || flaked != 1 {
		t.Errorf("second apply moved the profile: score=%d flaked=%d", score, flaked)
	}

	// A different plan applies independently.
	applied, err = env.ledger.ApplyOutcomeOnce(ctx, primitive.NewObjectID(), uid, domain.OutcomeNoShow)
	if err != nil || !applied {
		t.Fatalf("different plan: applied=%v err=%v", applied, err)
	}
	if score, _, _ := env.userScore(uid); score != 80 {
		t.Errorf("score = %d, want 80", score)
	}
}

func TestAwardConsistencyBonus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	uid := env.addUser("sam")
	env.store.mu.Lock()
	env.store.users[uid].CommitmentScore = 80
	env.store.mu.Unlock()

	seed := func(outcomes []domain.Outcome) {
		env.store.mu.Lock()
		env.store.outcomes = make(map[string]*domain.AppliedOutcome)
		now := time.Now()
		for i, outcome := range outcomes {
			o := &domain.AppliedOutcome{
				ID:        primitive.NewObjectID(),
				PlanID:    primitive.NewObjectID(),
				UserID:    uid,
				Outcome:   outcome,
				AppliedAt: now.Add(time.Duration(i) * time.Minute),
			}
			env.store.outcomes[outcomeKey(o.PlanID, uid)] = o
		}
		env.store.mu.Unlock()
	}

	att := domain.OutcomeAttended
	miss := domain.OutcomeNoShow

	// Fewer than five applied outcomes: no bonus.
	seed([]domain.Outcome{att, att, att, att})
	awarded, err := env.ledger.AwardConsistencyBonus(ctx, uid)
	if err != nil {
		t.Fatalf("AwardConsistencyBonus: %v", err)
	}
	if awarded != 0 {
		t.Errorf("4/4 streak awarded %d, want 0", awarded)
	}

	// Five with one miss: no bonus.
	seed([]domain.Outcome{att, att, miss, att, att})
	awarded, _ = env.ledger.AwardConsistencyBonus(ctx, uid)
	if awarded != 0 {
		t.Errorf("4/5 streak awarded %d, want 0", awarded)
	}

	// Five straight attended: +5.
	seed([]domain.Outcome{att, att, att, att, att})
	awarded, err = env.ledger.AwardConsistencyBonus(ctx, uid)
	if err != nil {
		t.Fatalf("AwardConsistencyBonus: %v", err)
	}
	if awarded != consistencyBonus {
		t.Errorf("5/5 streak awarded %d, want %d", awarded, consistencyBonus)
	}
	if score, _, _ := env.userScore(uid); score != 85 {
		t.Errorf("score = %d, want 85", score)
	}

	// An older miss outside the window does not break the streak.
	seed([]domain.Outcome{miss, att, att, att, att, att})
	awarded, _ = env.ledger.AwardConsistencyBonus(ctx, uid)
	if awarded != consistencyBonus {
		t.Errorf("miss outside window awarded %d, want %d", awarded, consistencyBonus)
	}
}

// Yes-votes on plans that never completed stay out of the streak window:
// only applied outcomes count.
func TestConsistencyBonusIgnoresUnscoredParticipations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	uid := env.addUser("sam")
	env.store.mu.Lock()
	env.store.users[uid].CommitmentScore = 80
	now := time.Now()
	for i := 0; i < 5; i++ {
		o := &domain.AppliedOutcome{
			ID:        primitive.NewObjectID(),
			PlanID:    primitive.NewObjectID(),
			UserID:    uid,
			Outcome:   domain.OutcomeAttended,
			AppliedAt: now.Add(time.Duration(i) * time.Minute),
		}
		env.store.outcomes[outcomeKey(o.PlanID, uid)] = o
	}
	// A confirmed participation on a plan that was cancelled before
	// completion: no check-in, no outcome.
	at := now.Add(10 * time.Minute)
	env.store.participants = append(env.store.participants, &domain.Participant{
		ID:      primitive.NewObjectID(),
		PlanID:  primitive.NewObjectID(),
		UserID:  uid,
		Vote:    domain.VoteYes,
		Status:  domain.ParticipantConfirmed,
		VotedAt: &at,
	})
	env.store.mu.Unlock()

	awarded, err := env.ledger.AwardConsistencyBonus(ctx, uid)
	if err != nil {
		t.Fatalf("AwardConsistencyBonus: %v", err)
	}
	if awarded != consistencyBonus {
		t.Errorf("awarded %d, want %d: unscored participation broke the streak", awarded, consistencyBonus)
	}
}

func TestLedgerPublishesProfileChanges(t *testing.T) {
	env := newTestEnv()
	uid := env.addUser("sam")
	if _, err := env.ledger.ApplyOutcome(context.Background(), uid, domain.OutcomeAttended); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}

	env.publisher.mu.Lock()
	defer env.publisher.mu.Unlock()
	var found bool
	for _, e := range env.publisher.events {
		if e.Entity == realtime.EntityProfile && e.ID == uid.Hex() && e.Op == realtime.OpUpdated {
			found = true
		}
	}
	if !found {
		t.Error("expected a profile update change event")
	}
}
