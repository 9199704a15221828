package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to PlanStatus
		want     bool
	}{
		{PlanProposed, PlanConfirmed, true},
		{PlanProposed, PlanCancelled, true},
		{PlanProposed, PlanCompleted, false},
		{PlanConfirmed, PlanCompleted, true},
		{PlanConfirmed, PlanCancelled, true},
		{PlanConfirmed, PlanProposed, false},
		{PlanCompleted, PlanCancelled, false},
		{PlanCompleted, PlanProposed, false},
		{PlanCancelled, PlanConfirmed, false},
		{PlanCancelled, PlanCompleted, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	if PlanProposed.Terminal() || PlanConfirmed.Terminal() {
		t.Error("proposed and confirmed must not be terminal")
	}
	if !PlanCompleted.Terminal() || !PlanCancelled.Terminal() {
		t.Error("completed and cancelled must be terminal")
	}
}

func TestStatusForVote(t *testing.T) {
	cases := map[Vote]ParticipantStatus{
		VoteYes:   ParticipantConfirmed,
		VoteMaybe: ParticipantMaybe,
		VoteNo:    ParticipantDeclined,
		VoteUnset: ParticipantPending,
	}
	for vote, want := range cases {
		if got := StatusForVote(vote); got != want {
			t.Errorf("StatusForVote(%q) = %s, want %s", vote, got, want)
		}
	}
}

func TestTallyVotes(t *testing.T) {
	participants := []Participant{
		{Vote: VoteYes},
		{Vote: VoteYes},
		{Vote: VoteMaybe},
		{Vote: VoteNo},
		{Vote: VoteUnset},
		{Vote: VoteUnset},
	}
	got := TallyVotes(participants)
	want := VoteCounts{Yes: 2, Maybe: 1, No: 1, Pending: 2}
	if got != want {
		t.Errorf("TallyVotes = %+v, want %+v", got, want)
	}
}
