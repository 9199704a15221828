package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/repository"
	"huddleup/meetup-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidContentType = errors.New("avatar content type must be an image")

// AvatarUpload is a presigned upload slot for a new avatar image.
type AvatarUpload struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// ProfileView is a user's own profile, with a short-lived avatar URL when
// one is set.
type ProfileView struct {
	User           *domain.User `json:"user"`
	AttendanceRate int          `json:"attendanceRate"`
	AvatarURL      string       `json:"avatarUrl,omitempty"`
}

// ProfileService covers the non-scoring profile surface: reads, push
// token registration, and avatar uploads.
type ProfileService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*ProfileView, error)
	UpdatePushToken(ctx context.Context, userID primitive.ObjectID, token string) error
	RequestAvatarUpload(ctx context.Context, userID primitive.ObjectID, contentType string) (*AvatarUpload, error)
}

type profileService struct {
	userRepo repository.UserRepository
	storage  storage.ObjectStorage
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(userRepo repository.UserRepository, objectStorage storage.ObjectStorage) ProfileService {
	return &profileService{
		userRepo: userRepo,
		storage:  objectStorage,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	view := &ProfileView{User: user, AttendanceRate: user.AttendanceRate()}
	if user.AvatarKey != "" && s.storage != nil {
		url, err := s.storage.GeneratePresignedDownloadURL(ctx, user.AvatarKey, storage.DefaultPresignedURLExpiry)
		if err == nil {
			view.AvatarURL = url
		}
	}
	return view, nil
}

func (s *profileService) UpdatePushToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	err := s.userRepo.SetPushToken(ctx, userID, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProfileNotFound
	}
	return err
}

// RequestAvatarUpload hands out a presigned PUT URL and records the
// object key on the profile. The client uploads directly to storage.
func (s *profileService) RequestAvatarUpload(ctx context.Context, userID primitive.ObjectID, contentType string) (*AvatarUpload, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidContentType
	}

	objectKey := fmt.Sprintf("avatars/%s/%s", userID.Hex(), uuid.NewString())
	url, err := s.storage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetAvatarKey(ctx, userID, objectKey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &AvatarUpload{UploadURL: url, ObjectKey: objectKey}, nil
}
