package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stocxer/stocxer-backend/internal/gateway"
	"github.com/stocxer/stocxer-backend/internal/models"
)

func TestHandleActivatedUpsertsByGatewayID(t *testing.T) {
	db := newTestDB(t)
	subs := NewSubscriptionService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	periodEnd := time.Now().UTC().AddDate(0, 1, 0)
	event := gateway.SubscriptionActivated{
		SubscriptionID: "sub_act_1",
		PlanType:       models.PlanMedium,
		PeriodStart:    time.Now().UTC(),
		PeriodEnd:      periodEnd,
		Notes:          gateway.PaymentNotes{UserID: user.ID.String()},
	}
	if err := subs.HandleActivated(ctx, event); err != nil {
		t.Fatalf("HandleActivated: %v", err)
	}

	// Redelivery updates the same row.
	event.PlanType = models.PlanPro
	if err := subs.HandleActivated(ctx, event); err != nil {
		t.Fatalf("HandleActivated again: %v", err)
	}

	var rows []models.Subscription
	if err := db.Where("gateway_subscription_id = ?", "sub_act_1").Find(&rows).Error; err != nil {
		t.Fatalf("load subscriptions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("subscription rows = %d, want 1", len(rows))
	}
	if rows[0].PlanType != models.PlanPro {
		t.Errorf("plan = %q, want pro", rows[0].PlanType)
	}
	if rows[0].Status != models.SubStatusActive {
		t.Errorf("status = %q, want active", rows[0].Status)
	}
}

func TestHandleActivatedRejectsUnknownPlan(t *testing.T) {
	db := newTestDB(t)
	subs := NewSubscriptionService(db)
	user := createTestUser(t, db)

	event := gateway.SubscriptionActivated{
		SubscriptionID: "sub_badplan_1",
		PlanType:       "platinum",
		Notes:          gateway.PaymentNotes{UserID: user.ID.String()},
	}
	if err := subs.HandleActivated(context.Background(), event); err == nil {
		t.Fatal("expected error for unknown plan")
	}
}

func TestHandleChargedWithoutActivation(t *testing.T) {
	db := newTestDB(t)
	subs := NewSubscriptionService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	// A renewal charge that arrives before (or without) the activation event
	// must still establish the subscription.
	event := gateway.SubscriptionCharged{
		SubscriptionID: "sub_charge_1",
		PlanType:       models.PlanMedium,
		PeriodStart:    time.Now().UTC(),
		PeriodEnd:      time.Now().UTC().AddDate(0, 1, 0),
		Notes:          gateway.PaymentNotes{UserID: user.ID.String()},
	}
	if err := subs.HandleCharged(ctx, event); err != nil {
		t.Fatalf("HandleCharged: %v", err)
	}

	var sub models.Subscription
	if err := db.Where("gateway_subscription_id = ?", "sub_charge_1").First(&sub).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.PlanType != models.PlanMedium || sub.Status != models.SubStatusActive {
		t.Errorf("subscription = %s/%s, want medium/active", sub.PlanType, sub.Status)
	}
}

func TestHandleChargedExtendsPeriod(t *testing.T) {
	db := newTestDB(t)
	subs := NewSubscriptionService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	start := time.Now().UTC()
	if err := subs.HandleActivated(ctx, gateway.SubscriptionActivated{
		SubscriptionID: "sub_renew_1",
		PlanType:       models.PlanMedium,
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, 0),
		Notes:          gateway.PaymentNotes{UserID: user.ID.String()},
	}); err != nil {
		t.Fatalf("HandleActivated: %v", err)
	}

	newEnd := start.AddDate(0, 2, 0)
	if err := subs.HandleCharged(ctx, gateway.SubscriptionCharged{
		SubscriptionID: "sub_renew_1",
		PlanType:       models.PlanMedium,
		PeriodStart:    start.AddDate(0, 1, 0),
		PeriodEnd:      newEnd,
		Notes:          gateway.PaymentNotes{UserID: user.ID.String()},
	}); err != nil {
		t.Fatalf("HandleCharged: %v", err)
	}

	var sub models.Subscription
	if err := db.Where("gateway_subscription_id = ?", "sub_renew_1").First(&sub).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if !sub.CurrentPeriodEnd.After(start.AddDate(0, 1, 0).Add(-time.Minute)) {
		t.Errorf("period end = %v, want extended past first period", sub.CurrentPeriodEnd)
	}
}

func TestHandleCancelled(t *testing.T) {
	db := newTestDB(t)
	subs := NewSubscriptionService(db)
	user := createTestUser(t, db)
	ctx := context.Background()

	if err := subs.HandleActivated(ctx, gateway.SubscriptionActivated{
		SubscriptionID: "sub_cancel_1",
		PlanType:       models.PlanMedium,
		Notes:          gateway.PaymentNotes{UserID: user.ID.String()},
	}); err != nil {
		t.Fatalf("HandleActivated: %v", err)
	}

	if err := subs.HandleCancelled(ctx, gateway.SubscriptionCancelled{SubscriptionID: "sub_cancel_1"}); err != nil {
		t.Fatalf("HandleCancelled: %v", err)
	}

	var sub models.Subscription
	if err := db.Where("gateway_subscription_id = ?", "sub_cancel_1").First(&sub).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.Status != models.SubStatusCancelled {
		t.Errorf("status = %q, want cancelled", sub.Status)
	}
}

func TestHandleCancelledUnknownSubscription(t *testing.T) {
	db := newTestDB(t)
	subs := NewSubscriptionService(db)

	err := subs.HandleCancelled(context.Background(), gateway.SubscriptionCancelled{SubscriptionID: "sub_missing"})
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("error = %v, want ErrSubscriptionNotFound", err)
	}
}
