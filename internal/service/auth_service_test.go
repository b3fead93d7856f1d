package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository/memstore"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

func newTestAuthService() (*AuthService, *memstore.Store) {
	store := memstore.New()
	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}
	return NewAuthService(cfg, store.Users(), nil), store
}

func TestRegisterAlwaysCreatesUserRole(t *testing.T) {
	svc, _ := newTestAuthService()
	session, err := svc.Register(context.Background(), NewUserInput{
		Name:     "Nurse Joy",
		Email:    " Joy@Example.com ",
		Password: "secret1",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.User.Role != domain.RoleUser || session.User.Email != "joy@example.com" {
		t.Errorf("user = %+v", session.User)
	}

	claims, err := svc.TokenManager().ParseToken(session.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor := claims.Actor(); actor.ID != session.User.ID || actor.Role != domain.RoleUser {
		t.Errorf("actor = %+v", actor)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, NewUserInput{Name: "Eng", Email: "eng@example.com", Password: "secret1", Role: domain.RoleEngineer})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := svc.Login(ctx, "ENG@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(ctx, "eng@example.com", "wrong"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("bad password: err = %v, want unauthorized", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("unknown email: err = %v, want unauthorized", err)
	}

	if err := svc.SetActive(ctx, domain.Actor{ID: user.ID, Role: domain.RoleEngineer}, user.ID, false); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("self deactivate: err = %v, want forbidden", err)
	}
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	if err := svc.SetActive(ctx, admin, user.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := svc.SetActive(ctx, admin, "missing", false); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("unknown user: err = %v, want not found", err)
	}
	if _, err := svc.Login(ctx, "eng@example.com", "secret1"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("disabled account: err = %v, want unauthorized", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()
	valid := NewUserInput{Name: "Sup", Email: "sup@example.com", Password: "secret1", Role: domain.RoleSupervisor}
	if _, err := svc.CreateUser(ctx, valid); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := map[string]NewUserInput{
		"duplicate email": valid,
		"blank name":      {Email: "a@example.com", Password: "secret1", Role: domain.RoleUser},
		"bad email":       {Name: "A", Email: "not-an-email", Password: "secret1", Role: domain.RoleUser},
		"short password":  {Name: "A", Email: "a@example.com", Password: "12345", Role: domain.RoleUser},
		"unknown role":    {Name: "A", Email: "a@example.com", Password: "secret1", Role: domain.Role("owner")},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.CreateUser(ctx, input); !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}
