package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/models"
)

func TestEnsureAccountIdempotent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	first, err := ledger.EnsureAccount(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	second, err := ledger.EnsureAccount(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnsureAccount again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same account row, got %s and %s", first.ID, second.ID)
	}

	var count int64
	db.Model(&models.CreditAccount{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 account row, got %d", count)
	}

	// A re-ensure after ledger activity must return the live row, not a
	// zero-balance one.
	if _, err := ledger.Apply(ctx, user.ID, models.EntryBonus, 40, "", "welcome"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	third, err := ledger.EnsureAccount(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnsureAccount after activity: %v", err)
	}
	if third.Balance != 40 {
		t.Errorf("balance = %d, want 40", third.Balance)
	}
}

func TestApplyPurchaseIsIdempotentPerPayment(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	entry, err := ledger.Apply(ctx, user.ID, models.EntryPurchase, 265, "pay_abc123", "Purchased Trader pack")
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if entry.BalanceBefore != 0 || entry.BalanceAfter != 265 {
		t.Errorf("entry balances = %d -> %d, want 0 -> 265", entry.BalanceBefore, entry.BalanceAfter)
	}

	// Second delivery of the same gateway payment must not credit again.
	if _, err := ledger.Apply(ctx, user.ID, models.EntryPurchase, 265, "pay_abc123", "Purchased Trader pack"); !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("replay Apply error = %v, want ErrDuplicatePayment", err)
	}

	account, err := ledger.Account(ctx, user.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Balance != 265 {
		t.Errorf("balance after replay = %d, want 265", account.Balance)
	}
	var txCount int64
	db.Model(&models.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&txCount)
	if txCount != 1 {
		t.Errorf("ledger rows after replay = %d, want 1", txCount)
	}
}

func TestApplyDebitInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	if _, err := ledger.Apply(ctx, user.ID, models.EntryBonus, 30, "", "Welcome bonus"); err != nil {
		t.Fatalf("bonus Apply: %v", err)
	}

	if _, err := ledger.Apply(ctx, user.ID, models.EntryDebit, 50, "", "Scan: swing"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("debit error = %v, want ErrInsufficientBalance", err)
	}

	// The failed debit must leave no trace.
	account, _ := ledger.Account(ctx, user.ID)
	if account.Balance != 30 {
		t.Errorf("balance after rejected debit = %d, want 30", account.Balance)
	}
	var txCount int64
	db.Model(&models.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&txCount)
	if txCount != 1 {
		t.Errorf("ledger rows = %d, want 1", txCount)
	}
}

func TestApplyConservesLifetimeCounters(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	steps := []struct {
		entryType string
		amount    int64
		paymentID string
	}{
		{models.EntryBonus, 100, ""},
		{models.EntryPurchase, 265, "pay_conserve_1"},
		{models.EntryDebit, 50, ""},
	}
	for _, step := range steps {
		if _, err := ledger.Apply(ctx, user.ID, step.entryType, step.amount, step.paymentID, ""); err != nil {
			t.Fatalf("Apply %s %d: %v", step.entryType, step.amount, err)
		}
	}

	account, err := ledger.Account(ctx, user.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Balance != 315 {
		t.Errorf("balance = %d, want 315", account.Balance)
	}
	if got := account.LifetimePurchased - account.LifetimeSpent + account.LifetimeBonus; got != account.Balance {
		t.Errorf("conservation broken: purchased %d - spent %d + bonus %d = %d, balance %d",
			account.LifetimePurchased, account.LifetimeSpent, account.LifetimeBonus, got, account.Balance)
	}
	if account.LifetimePurchased != 265 || account.LifetimeSpent != 50 || account.LifetimeBonus != 100 {
		t.Errorf("lifetime counters = %d/%d/%d, want 265/50/100",
			account.LifetimePurchased, account.LifetimeSpent, account.LifetimeBonus)
	}
}

func TestApplyRefundReversesSpent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	if _, err := ledger.Apply(ctx, user.ID, models.EntryPurchase, 100, "pay_refund_1", ""); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := ledger.Apply(ctx, user.ID, models.EntryDebit, 40, "", ""); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := ledger.Apply(ctx, user.ID, models.EntryRefund, 40, "", "Scan refund"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	account, _ := ledger.Account(ctx, user.ID)
	if account.Balance != 100 {
		t.Errorf("balance = %d, want 100", account.Balance)
	}
	if account.LifetimeSpent != 0 {
		t.Errorf("lifetime_spent = %d, want 0 after refund", account.LifetimeSpent)
	}
}

func TestApplyRejectsInvalidEntries(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	if _, err := ledger.Apply(ctx, user.ID, models.EntryPurchase, 0, "", ""); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("zero amount error = %v, want ErrInvalidEntry", err)
	}
	if _, err := ledger.Apply(ctx, user.ID, models.EntryPurchase, -10, "", ""); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("negative amount error = %v, want ErrInvalidEntry", err)
	}
	if _, err := ledger.Apply(ctx, user.ID, "grant", 10, "", ""); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("unknown type error = %v, want ErrInvalidEntry", err)
	}
}

func TestApplyWithoutAccount(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)

	_, err := ledger.Apply(context.Background(), uuid.New(), models.EntryBonus, 10, "", "")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestHistoryChainsBalances(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	amounts := []int64{100, 30, 25}
	types := []string{models.EntryBonus, models.EntryDebit, models.EntryDebit}
	for i := range amounts {
		if _, err := ledger.Apply(ctx, user.ID, types[i], amounts[i], "", ""); err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
	}

	entries, err := ledger.History(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("history length = %d, want 3", len(entries))
	}
	// Newest first: each older entry's BalanceAfter is the newer one's BalanceBefore.
	for i := 0; i < len(entries)-1; i++ {
		if entries[i].BalanceBefore != entries[i+1].BalanceAfter {
			t.Errorf("entry %d balance_before = %d, want %d", i, entries[i].BalanceBefore, entries[i+1].BalanceAfter)
		}
	}
	if entries[0].BalanceAfter != 45 {
		t.Errorf("final balance = %d, want 45", entries[0].BalanceAfter)
	}
}

func TestApplyConcurrentSamePaymentCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if _, err := ledger.EnsureAccount(ctx, user.ID); err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Apply(ctx, user.ID, models.EntryPurchase, 100, "pay_race", "pack purchase")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicatePayment):
			dup++
		default:
			t.Fatalf("Apply: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("ok = %d, dup = %d, want 1 and %d", ok, dup, workers-1)
	}

	account, err := ledger.Account(ctx, user.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if balance := account.Balance; balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
	var rows int64
	db.Model(&models.CreditTransaction{}).Where("gateway_payment_id = ?", "pay_race").Count(&rows)
	if rows != 1 {
		t.Errorf("ledger rows = %d, want 1", rows)
	}
}
