package service

import (
	"context"
	"errors"
	"testing"

	"okean/internal/domain"
	"okean/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func registerUser(t *testing.T, svc UserService, email string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), email, "user_"+uuid.NewString()[:8], "s3cret-pass", "Test User")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user
}

func TestUserRegister(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")

	user := registerUser(t, svc, "ana@example.com")

	if user.Role != domain.RoleCustomer {
		t.Errorf("Expected role customer, got %s", user.Role)
	}
	if !user.IsActive {
		t.Error("Expected new account to be active")
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Error("Expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Errorf("Stored hash does not verify: %v", err)
	}
}

func TestUserRegister_DuplicateEmail(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")

	registerUser(t, svc, "ana@example.com")

	_, err := svc.Register(context.Background(), "ana@example.com", "other", "pw123456", "Other")
	if !errors.Is(err, repository.ErrUserAlreadyExists) {
		t.Errorf("Expected ErrUserAlreadyExists, got: %v", err)
	}
}

func TestUserLogin_RoundTrip(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	registered := registerUser(t, svc, "ana@example.com")

	access, refresh, user, err := svc.Login(ctx, "ana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("Expected user %s, got %s", registered.ID, user.ID)
	}
	if access == "" || refresh == "" {
		t.Fatal("Expected non-empty token pair")
	}

	claims, err := svc.ValidateToken(access)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != registered.ID {
		t.Errorf("Expected claims for %s, got %s", registered.ID, claims.UserID)
	}
	if claims.Role != domain.RoleCustomer {
		t.Errorf("Expected role customer in claims, got %s", claims.Role)
	}
}

func TestUserLogin_Rejections(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	user := registerUser(t, svc, "ana@example.com")

	if _, _, _, err := svc.Login(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got: %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got: %v", err)
	}

	store.data.users[user.ID].IsActive = false
	if _, _, _, err := svc.Login(ctx, "ana@example.com", "s3cret-pass"); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("Expected ErrAccountDisabled, got: %v", err)
	}
}

func TestUserRefreshToken(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	user := registerUser(t, svc, "ana@example.com")

	_, refresh, _, err := svc.Login(ctx, "ana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	access, err := svc.RefreshToken(ctx, refresh)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(access)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("Expected claims for %s, got %s", user.ID, claims.UserID)
	}

	if _, err := svc.RefreshToken(ctx, "no-such-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestUserLogout_RevokesRefreshToken(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	registerUser(t, svc, "ana@example.com")

	_, refresh, _, err := svc.Login(ctx, "ana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.Logout(ctx, refresh); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := svc.RefreshToken(ctx, refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken after logout, got: %v", err)
	}

	// Logging out an unknown token is a no-op
	if err := svc.Logout(ctx, "no-such-token"); err != nil {
		t.Errorf("Expected nil for unknown token, got: %v", err)
	}
}

func TestUserValidateToken_WrongSecret(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	other := NewUserService(store, "other-secret")
	ctx := context.Background()

	registerUser(t, svc, "ana@example.com")

	access, _, _, err := svc.Login(ctx, "ana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := other.ValidateToken(access); err == nil {
		t.Error("Expected validation to fail under a different secret")
	}
}

func TestUserSetActive_DisablesAndRestoresLogin(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	user := registerUser(t, svc, "ana@example.com")

	disabled, err := svc.SetUserActive(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("SetUserActive failed: %v", err)
	}
	if disabled.IsActive {
		t.Error("Expected account to be inactive")
	}

	if _, _, _, err := svc.Login(ctx, "ana@example.com", "s3cret-pass"); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("Expected ErrAccountDisabled after deactivation, got: %v", err)
	}

	restored, err := svc.SetUserActive(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("SetUserActive failed: %v", err)
	}
	if !restored.IsActive {
		t.Error("Expected account to be active again")
	}

	if _, _, _, err := svc.Login(ctx, "ana@example.com", "s3cret-pass"); err != nil {
		t.Errorf("Expected login to succeed after reactivation, got: %v", err)
	}
}

func TestUserSetActive_UnknownUser(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")

	_, err := svc.SetUserActive(context.Background(), uuid.New(), false)
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestUserListUsers(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		registerUser(t, svc, "user"+uuid.NewString()[:8]+"@example.com")
	}

	users, total, err := svc.ListUsers(ctx, 1, 3)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(users) != 3 {
		t.Errorf("Expected 3 users on the first page, got %d", len(users))
	}

	rest, _, err := svc.ListUsers(ctx, 2, 3)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("Expected 2 users on the second page, got %d", len(rest))
	}
}

func TestUserUpdateProfile(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	user := registerUser(t, svc, "ana@example.com")

	updated, err := svc.UpdateProfile(ctx, user.ID, "Ana Petrova")
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.FullName != "Ana Petrova" {
		t.Errorf("Expected full name updated, got %q", updated.FullName)
	}

	fetched, err := svc.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if fetched.FullName != "Ana Petrova" {
		t.Errorf("Expected persisted full name, got %q", fetched.FullName)
	}
}
