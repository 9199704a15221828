package service

import (
	"context"
	"errors"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeaderboardService derives group standings from a snapshot of member
// commitment profiles.
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, groupID primitive.ObjectID) ([]domain.LeaderboardEntry, error)
}

type leaderboardService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
}

// NewLeaderboardService creates a new instance of leaderboardService.
func NewLeaderboardService(groupRepo repository.GroupRepository, userRepo repository.UserRepository) LeaderboardService {
	return &leaderboardService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
	}
}

// GetLeaderboard snapshots the roster's profiles and ranks them. Members
// are fed to the ranker in join order, so tied scores come out ordered by
// who joined first.
func (s *leaderboardService) GetLeaderboard(ctx context.Context, groupID primitive.ObjectID) ([]domain.LeaderboardEntry, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	members, err := s.groupRepo.GetMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// The repository does not guarantee order; restore roster order
	// before ranking so the stable sort has a deterministic input.
	userByID := make(map[primitive.ObjectID]domain.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	snapshot := make([]domain.User, 0, len(members))
	for _, m := range members {
		if u, ok := userByID[m.UserID]; ok {
			snapshot = append(snapshot, u)
		}
	}

	return domain.RankMembers(snapshot), nil
}
