package papertrade

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.PlanLimit{},
		&PaperPosition{},
		&PaperSignal{},
		&PaperPerformance{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// proUser creates a user on a plan with paper trading enabled.
func proUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()

	user := models.User{Email: uuid.NewString()[:8] + "@example.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	limit := models.PlanLimit{PlanType: models.PlanPro, PaperTrading: true}
	if err := db.Where("plan_type = ?", models.PlanPro).FirstOrCreate(&limit).Error; err != nil {
		t.Fatalf("seed plan limit: %v", err)
	}
	sub := models.Subscription{
		UserID:                user.ID,
		GatewaySubscriptionID: "sub_" + uuid.NewString()[:8],
		PlanType:              models.PlanPro,
		Status:                models.SubStatusActive,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return user.ID
}

func TestOpenPositionRequiresPlanFlag(t *testing.T) {
	db := newTestDB(t)
	trades := NewTradeService(db)

	// Free-tier user: no subscription, no plan limit row, feature off.
	user := models.User{Email: "free@example.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := trades.OpenPosition(context.Background(), user.ID, &OpenPositionRequest{
		Symbol:     "NIFTY",
		Direction:  DirectionLong,
		Quantity:   50,
		EntryPrice: 24500,
	})
	if !errors.Is(err, ErrFeatureDisabled) {
		t.Fatalf("error = %v, want ErrFeatureDisabled", err)
	}
}

func TestOpenAndClosePosition(t *testing.T) {
	db := newTestDB(t)
	trades := NewTradeService(db)
	userID := proUser(t, db)
	ctx := context.Background()

	pos, err := trades.OpenPosition(ctx, userID, &OpenPositionRequest{
		Symbol:     "RELIANCE",
		Direction:  DirectionLong,
		Quantity:   10,
		EntryPrice: 2900,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	if pos.Status != PositionOpen {
		t.Errorf("status = %q, want open", pos.Status)
	}

	closed, err := trades.ClosePosition(ctx, userID, pos.ID, 2950)
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	if closed.Status != PositionClosed {
		t.Errorf("status = %q, want closed", closed.Status)
	}
	if closed.PnL != 500 {
		t.Errorf("pnl = %v, want 500", closed.PnL)
	}

	// Closing twice is a conflict, not a second settlement.
	if _, err := trades.ClosePosition(ctx, userID, pos.ID, 3000); !errors.Is(err, ErrPositionClosed) {
		t.Fatalf("double close error = %v, want ErrPositionClosed", err)
	}
}

func TestClosePositionShortDirection(t *testing.T) {
	db := newTestDB(t)
	trades := NewTradeService(db)
	userID := proUser(t, db)
	ctx := context.Background()

	pos, err := trades.OpenPosition(ctx, userID, &OpenPositionRequest{
		Symbol:     "BANKNIFTY",
		Direction:  DirectionShort,
		Quantity:   15,
		EntryPrice: 52000,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	closed, err := trades.ClosePosition(ctx, userID, pos.ID, 51800)
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	// Short profits when price falls.
	if closed.PnL != 3000 {
		t.Errorf("pnl = %v, want 3000", closed.PnL)
	}
}

func TestPerformanceAggregates(t *testing.T) {
	db := newTestDB(t)
	trades := NewTradeService(db)
	userID := proUser(t, db)
	ctx := context.Background()

	results := []struct {
		entry, exit float64
	}{
		{100, 110}, // +100
		{100, 95},  // -50
		{200, 220}, // +200
	}
	for _, r := range results {
		pos, err := trades.OpenPosition(ctx, userID, &OpenPositionRequest{
			Symbol:     "TCS",
			Direction:  DirectionLong,
			Quantity:   10,
			EntryPrice: r.entry,
		})
		if err != nil {
			t.Fatalf("OpenPosition: %v", err)
		}
		if _, err := trades.ClosePosition(ctx, userID, pos.ID, r.exit); err != nil {
			t.Fatalf("ClosePosition: %v", err)
		}
	}

	summary, err := trades.Performance(ctx, userID, 30)
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if summary.TradesTotal != 3 || summary.TradesWon != 2 {
		t.Errorf("trades = %d won %d, want 3 won 2", summary.TradesTotal, summary.TradesWon)
	}
	if summary.GrossPnL != 250 {
		t.Errorf("gross pnl = %v, want 250", summary.GrossPnL)
	}
}

func TestSignalLifecycle(t *testing.T) {
	db := newTestDB(t)
	signals := NewSignalService(db)
	ctx := context.Background()

	sig, err := signals.Create(ctx, &CreateSignalRequest{
		Symbol:     "NIFTY",
		Bias:       DirectionLong,
		EntryPrice: 24500,
		StopLoss:   24350,
		Targets:    []float64{24600, 24750},
		Confidence: 70,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	active, err := signals.ListActive(ctx, "NIFTY")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active signals = %d, want 1", len(active))
	}

	if err := signals.MarkTriggered(ctx, sig.ID); err != nil {
		t.Fatalf("MarkTriggered: %v", err)
	}
	active, _ = signals.ListActive(ctx, "NIFTY")
	if len(active) != 0 {
		t.Errorf("active signals after trigger = %d, want 0", len(active))
	}

	if err := signals.MarkTriggered(ctx, sig.ID); !errors.Is(err, ErrSignalNotFound) {
		t.Fatalf("second trigger error = %v, want ErrSignalNotFound", err)
	}
}

func TestCreateSignalValidation(t *testing.T) {
	db := newTestDB(t)
	signals := NewSignalService(db)
	ctx := context.Background()

	if _, err := signals.Create(ctx, &CreateSignalRequest{Bias: DirectionLong, EntryPrice: 100}); !errors.Is(err, ErrSymbolRequired) {
		t.Errorf("missing symbol error = %v, want ErrSymbolRequired", err)
	}
	if _, err := signals.Create(ctx, &CreateSignalRequest{Symbol: "NIFTY", Bias: "sideways", EntryPrice: 100}); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("bad bias error = %v, want ErrInvalidDirection", err)
	}
}
