package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"huddleup/meetup-app/internal/domain"

	"github.com/golang-jwt/jwt/v4"
)

func newAuthEnv() (AuthService, *fakeUserRepo) {
	store := newFakeStore()
	repo := &fakeUserRepo{s: store}
	return NewAuthService(repo, "test-secret", time.Hour), repo
}

func TestRegisterStartsWithFullScore(t *testing.T) {
	svc, _ := newAuthEnv()
	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.CommitmentScore != domain.DefaultCommitmentScore {
		t.Errorf("new user score = %d, want %d", user.CommitmentScore, domain.DefaultCommitmentScore)
	}
	if user.PasswordHash == "hunter2" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthEnv()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice2", "alice@example.com", "other"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate email: err = %v, want ErrUserAlreadyExists", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthEnv()
	ctx := context.Background()
	registered, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("bad password: err = %v, want ErrAuthenticationFailed", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("unknown email: err = %v, want ErrAuthenticationFailed", err)
	}

	token, user, err := svc.Login(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("login user = %s, want %s", user.ID.Hex(), registered.ID.Hex())
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims["uid"] != registered.ID.Hex() {
		t.Errorf("uid claim = %v, want %s", claims["uid"], registered.ID.Hex())
	}
}
