package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stocxer/stocxer-backend/internal/config"
	"github.com/stocxer/stocxer-backend/internal/dto"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
)

func newAuthService(db *gorm.DB) *AuthService {
	cfg := &config.Config{
		JWTSecret:           "test-secret",
		JWTAccessExpiry:     15 * time.Minute,
		JWTRefreshExpiry:    168 * time.Hour,
		WelcomeBonusCredits: 100,
	}
	return NewAuthService(db, cfg, NewLedgerService(db))
}

func TestRegisterGrantsWelcomeBonus(t *testing.T) {
	db := newTestDB(t)
	auth := newAuthService(db)
	ledger := NewLedgerService(db)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{
		Email:    "trader@example.com",
		Password: "correct-horse",
		FullName: "Trader",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a token pair")
	}

	account, err := ledger.Account(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Balance != 100 {
		t.Errorf("balance = %d, want 100 welcome credits", account.Balance)
	}
	// The bonus lands in lifetime_bonus, not lifetime_purchased.
	if account.LifetimeBonus != 100 || account.LifetimePurchased != 0 {
		t.Errorf("bonus/purchased = %d/%d, want 100/0", account.LifetimeBonus, account.LifetimePurchased)
	}

	entries, err := ledger.History(ctx, resp.User.ID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != models.EntryBonus {
		t.Errorf("expected one bonus entry, got %+v", entries)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	auth := newAuthService(db)
	ctx := context.Background()

	req := &dto.RegisterRequest{Email: "dup@example.com", Password: "correct-horse"}
	if _, err := auth.Register(ctx, req); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := auth.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	db := newTestDB(t)
	auth := newAuthService(db)
	ctx := context.Background()

	if _, err := auth.Register(ctx, &dto.RegisterRequest{Email: "login@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp, err := auth.Login(&dto.LoginRequest{Email: "login@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := auth.Login(&dto.LoginRequest{Email: "login@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	refreshed, err := auth.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == resp.RefreshToken {
		t.Error("refresh token not rotated")
	}

	// The consumed token is revoked.
	if _, err := auth.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token error = %v, want ErrInvalidToken", err)
	}
}

func TestDeleteAccountRemovesLedger(t *testing.T) {
	db := newTestDB(t)
	auth := newAuthService(db)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{Email: "gone@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := auth.DeleteAccount(resp.User.ID, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if err := auth.DeleteAccount(resp.User.ID, "correct-horse"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	var accounts, transactions int64
	db.Model(&models.CreditAccount{}).Where("user_id = ?", resp.User.ID).Count(&accounts)
	db.Model(&models.CreditTransaction{}).Where("user_id = ?", resp.User.ID).Count(&transactions)
	if accounts != 0 || transactions != 0 {
		t.Errorf("accounts/transactions after delete = %d/%d, want 0/0", accounts, transactions)
	}
}
