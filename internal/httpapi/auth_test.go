package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store/memory"
)

func newTestAuth() *AuthManager {
	return NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, memory.NewSeeded())
}

func TestLoginAndTokenRoundtrip(t *testing.T) {
	auth := newTestAuth()

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "Admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := newTestAuth()

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatalf("expected wrong password to be rejected")
	}
	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected unknown username to be rejected")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	auth := newTestAuth()
	other := NewAuthManager("another-secret-that-is-long-enough!!", time.Hour, memory.NewSeeded())

	resp, err := other.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := newTestAuth()

	token, err := auth.sign("admin", domain.RoleAdmin, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestCreateUserValidation(t *testing.T) {
	auth := newTestAuth()
	ctx := context.Background()

	cases := []domain.UserCreateRequest{
		{Username: "ab", Password: "longenough", Role: domain.RolePharmacist},
		{Username: "has space", Password: "longenough", Role: domain.RolePharmacist},
		{Username: "valid1", Password: "tiny", Role: domain.RolePharmacist},
		{Username: "valid2", Password: "longenough", Role: "superuser"},
	}
	for _, req := range cases {
		if _, err := auth.CreateUser(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("expected %+v to be rejected as invalid input, got %v", req, err)
		}
	}
}

func TestCreateUserNormalizesAndHashes(t *testing.T) {
	auth := newTestAuth()
	ctx := context.Background()

	user, err := auth.CreateUser(ctx, domain.UserCreateRequest{
		Username: "  Cashier1 ",
		Password: "s3cret99",
		Role:     "Pharmacist",
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.Username != "cashier1" {
		t.Fatalf("expected lowercased username, got %q", user.Username)
	}
	if !isPasswordHash(user.PasswordHash) {
		t.Fatalf("expected bcrypt hash, got %q", user.PasswordHash)
	}

	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "cashier1", Password: "s3cret99"}); err != nil {
		t.Fatalf("expected new user to log in, got %v", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	auth := newTestAuth()

	_, err := auth.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "admin",
		Password: "whatever1",
		Role:     domain.RoleAdmin,
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
}
