package domain

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medal marks the top three leaderboard positions.
type Medal string

const (
	MedalNone   Medal = ""
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
)

// LeaderboardEntry is one ranked row of a group's standings.
type LeaderboardEntry struct {
	Rank            int                `json:"rank"`
	UserID          primitive.ObjectID `json:"userId"`
	Name            string             `json:"name"`
	CommitmentScore int                `json:"commitmentScore"`
	TotalAttended   int                `json:"totalAttended"`
	TotalFlaked     int                `json:"totalFlaked"`
	AttendanceRate  int                `json:"attendanceRate"`
	Medal           Medal              `json:"medal,omitempty"`
}

// RankMembers orders a member snapshot by commitment score descending and
// assigns strictly positional ranks 1..N. The sort is stable, so tied
// scores keep their incoming relative order and do not share a rank. The
// first three positions get gold, silver and bronze medals.
func RankMembers(members []User) []LeaderboardEntry {
	ranked := make([]User, len(members))
	copy(ranked, members)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CommitmentScore > ranked[j].CommitmentScore
	})

	medals := []Medal{MedalGold, MedalSilver, MedalBronze}
	entries := make([]LeaderboardEntry, len(ranked))
	for i, u := range ranked {
		entry := LeaderboardEntry{
			Rank:            i + 1,
			UserID:          u.ID,
			Name:            u.Name,
			CommitmentScore: u.CommitmentScore,
			TotalAttended:   u.TotalAttended,
			TotalFlaked:     u.TotalFlaked,
			AttendanceRate:  u.AttendanceRate(),
		}
		if i < len(medals) {
			entry.Medal = medals[i]
		}
		entries[i] = entry
	}
	return entries
}
