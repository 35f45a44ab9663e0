package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"unifit/internal/db"
	"unifit/internal/models"
)

func TestCheckCreditsCreatesAccount(t *testing.T) {
	backend := newFakeBackend()
	eng := newTestEngine(backend, newFakeEvaluator(), Config{})

	resp, err := eng.CheckCredits(context.Background(), "new@example.com", 1)
	if err != nil {
		t.Fatalf("CheckCredits() error = %v", err)
	}
	if !resp.HasCredits {
		t.Error("a fresh account should cover one credit")
	}
	if resp.CreditsRemaining != 5 {
		t.Errorf("CreditsRemaining = %d, want 5", resp.CreditsRemaining)
	}
}

func TestDeductCredits(t *testing.T) {
	backend := newFakeBackend()
	eng := newTestEngine(backend, newFakeEvaluator(), Config{})
	ctx := context.Background()

	remaining, err := eng.DeductCredits(ctx, "student@example.com", 2, "test_charge")
	if err != nil {
		t.Fatalf("DeductCredits() error = %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}

	if _, err := eng.DeductCredits(ctx, "student@example.com", 4, "test_charge"); !errors.Is(err, db.ErrInsufficientCredits) {
		t.Fatalf("over-deduct error = %v, want ErrInsufficientCredits", err)
	}
	// The rejected deduction must not partially decrement.
	if got := backend.balance("student@example.com"); got != 3 {
		t.Errorf("balance after rejected deduct = %d, want 3", got)
	}
}

func TestAddCredits(t *testing.T) {
	backend := newFakeBackend()
	eng := newTestEngine(backend, newFakeEvaluator(), Config{})

	remaining, err := eng.AddCredits(context.Background(), "student@example.com", 10, "purchase")
	if err != nil {
		t.Fatalf("AddCredits() error = %v", err)
	}
	if remaining != 15 {
		t.Errorf("remaining = %d, want 15", remaining)
	}
}

func TestUpgradeTier(t *testing.T) {
	backend := newFakeBackend()
	eng := newTestEngine(backend, newFakeEvaluator(), Config{})
	ctx := context.Background()

	expires := time.Now().Add(30 * 24 * time.Hour)
	if err := eng.UpgradeTier(ctx, "student@example.com", models.TierPro, &expires); err != nil {
		t.Fatalf("UpgradeTier() error = %v", err)
	}

	account, err := backend.GetOrCreateAccount(ctx, "student@example.com", 5)
	if err != nil {
		t.Fatalf("GetOrCreateAccount() error = %v", err)
	}
	if !account.IsPro() {
		t.Errorf("account tier = %q (expires %v), want active pro", account.Tier, account.SubscriptionExpires)
	}
}

func TestChargeImageRegeneration(t *testing.T) {
	backend := newFakeBackend()
	eng := newTestEngine(backend, newFakeEvaluator(), Config{ImageCreditCost: 2})

	remaining, err := eng.ChargeImageRegeneration(context.Background(), "student@example.com")
	if err != nil {
		t.Fatalf("ChargeImageRegeneration() error = %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(backend.transactions))
	}
	if backend.transactions[0].Reason != ReasonImageRegeneration {
		t.Errorf("reason = %q, want %q", backend.transactions[0].Reason, ReasonImageRegeneration)
	}
	if backend.transactions[0].Delta != -2 {
		t.Errorf("delta = %d, want -2", backend.transactions[0].Delta)
	}
}
