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
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyMember = errors.New("user is already a member of this group")
)

// GroupMemberInfo is one roster entry joined with its user record.
type GroupMemberInfo struct {
	UserID primitive.ObjectID `json:"userId"`
	Name   string             `json:"name"`
	Role   domain.GroupRole   `json:"role"`
}

// GroupDetail is a group with its resolved roster.
type GroupDetail struct {
	Group   *domain.Group     `json:"group"`
	Members []GroupMemberInfo `json:"members"`
}

// GroupService manages groups and rosters. The lifecycle engine only
// reads them: rosters seed participants and scope the leaderboard.
type GroupService interface {
	CreateGroup(ctx context.Context, creatorID primitive.ObjectID, name string) (*domain.Group, error)
	AddMember(ctx context.Context, groupID, callerID, userID primitive.ObjectID, role domain.GroupRole) error
	GetGroup(ctx context.Context, groupID primitive.ObjectID) (*GroupDetail, error)
}

type groupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	publisher realtime.Publisher
}

// NewGroupService creates a new instance of groupService.
func NewGroupService(groupRepo repository.GroupRepository, userRepo repository.UserRepository, publisher realtime.Publisher) GroupService {
	return &groupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// CreateGroup creates a group with the creator as its first admin.
func (s *groupService) CreateGroup(ctx context.Context, creatorID primitive.ObjectID, name string) (*domain.Group, error) {
	if name == "" {
		return nil, errors.New("group name is required")
	}

	group := &domain.Group{Name: name, CreatedBy: creatorID}
	groupID, err := s.groupRepo.Create(ctx, group)
	if err != nil {
		return nil, err
	}
	group.ID = groupID

	err = s.groupRepo.AddMember(ctx, &domain.GroupMember{
		GroupID: groupID,
		UserID:  creatorID,
		Role:    domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityGroup, ID: groupID.Hex(), Op: realtime.OpCreated})
	return group, nil
}

// AddMember puts a user on the roster. The caller must already be a
// member. Joining only affects plans created afterwards.
func (s *groupService) AddMember(ctx context.Context, groupID, callerID, userID primitive.ObjectID, role domain.GroupRole) error {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}

	isMember, err := s.groupRepo.IsMember(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotGroupMember
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if role == "" {
		role = domain.RoleMember
	}
	err = s.groupRepo.AddMember(ctx, &domain.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyMember
		}
		return err
	}

	s.publisher.Publish(ctx, realtime.ChangeEvent{Entity: realtime.EntityGroup, ID: groupID.Hex(), Op: realtime.OpUpdated})
	return nil
}

// GetGroup returns the group with its resolved roster in join order.
func (s *groupService) GetGroup(ctx context.Context, groupID primitive.ObjectID) (*GroupDetail, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
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
	nameByID := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		nameByID[u.ID] = u.Name
	}

	infos := make([]GroupMemberInfo, len(members))
	for i, m := range members {
		infos[i] = GroupMemberInfo{
			UserID: m.UserID,
			Name:   nameByID[m.UserID],
			Role:   m.Role,
		}
	}
	return &GroupDetail{Group: group, Members: infos}, nil
}
