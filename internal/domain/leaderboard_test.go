package domain

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRankMembersTiesAndMedals(t *testing.T) {
	alice := User{ID: primitive.NewObjectID(), Name: "alice", CommitmentScore: 90}
	bob := User{ID: primitive.NewObjectID(), Name: "bob", CommitmentScore: 90}
	cara := User{ID: primitive.NewObjectID(), Name: "cara", CommitmentScore: 70}

	entries := RankMembers([]User{alice, bob, cara})

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Ranks are strictly positional; ties do not share a rank and keep
	// their incoming order.
	for i, wantName := range []string{"alice", "bob", "cara"} {
		if entries[i].Rank != i+1 {
			t.Errorf("entry %d: rank = %d, want %d", i, entries[i].Rank, i+1)
		}
		if entries[i].Name != wantName {
			t.Errorf("entry %d: name = %s, want %s", i, entries[i].Name, wantName)
		}
	}
	wantMedals := []Medal{MedalGold, MedalSilver, MedalBronze}
	for i, want := range wantMedals {
		if entries[i].Medal != want {
			t.Errorf("entry %d: medal = %q, want %q", i, entries[i].Medal, want)
		}
	}
}

func TestRankMembersNoMedalBeyondThree(t *testing.T) {
	members := make([]User, 5)
	for i := range members {
		members[i] = User{ID: primitive.NewObjectID(), CommitmentScore: 100 - i}
	}
	entries := RankMembers(members)
	for i := 3; i < len(entries); i++ {
		if entries[i].Medal != MedalNone {
			t.Errorf("entry %d: medal = %q, want none", i, entries[i].Medal)
		}
	}
}

func TestAttendanceRate(t *testing.T) {
	cases := []struct {
		attended, flaked, want int
	}{
		{0, 0, 100},
		{3, 1, 75},
		{1, 2, 33},
		{2, 1, 67},
		{0, 4, 0},
	}
	for _, c := range cases {
		u := User{TotalAttended: c.attended, TotalFlaked: c.flaked}
		if got := u.AttendanceRate(); got != c.want {
			t.Errorf("AttendanceRate(%d attended, %d flaked) = %d, want %d", c.attended, c.flaked, got, c.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct{ in, want int }{
		{-5, 0},
		{0, 0},
		{57, 57},
		{100, 100},
		{104, 100},
	}
	for _, c := range cases {
		if got := ClampScore(c.in); got != c.want {
			t.Errorf("ClampScore(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEffectFor(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    OutcomeEffect
	}{
		{OutcomeAttended, OutcomeEffect{ScoreDelta: 2, AttendedDelta: 1}},
		{OutcomeNoShow, OutcomeEffect{ScoreDelta: -10, FlakedDelta: 1}},
		{OutcomeCancelledLate, OutcomeEffect{ScoreDelta: -8, FlakedDelta: 1}},
		{OutcomeCancelledEarly, OutcomeEffect{ScoreDelta: -3}},
	}
	for _, c := range cases {
		got, ok := EffectFor(c.outcome)
		if !ok {
			t.Fatalf("EffectFor(%s): unexpectedly unknown", c.outcome)
		}
		if got != c.want {
			t.Errorf("EffectFor(%s) = %+v, want %+v", c.outcome, got, c.want)
		}
	}
	if _, ok := EffectFor(Outcome("ghosted")); ok {
		t.Error("EffectFor must reject unknown outcomes")
	}
}
