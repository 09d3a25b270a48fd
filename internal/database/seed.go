package database

import (
	"errors"
	"log/slog"

	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
)

// SeedDefaults inserts the plan limits and credit pack catalog on first boot.
// Existing rows are never touched so admin edits survive restarts.
func SeedDefaults(db *gorm.DB) error {
	if err := seedPlanLimits(db); err != nil {
		return err
	}
	return seedCreditPacks(db)
}

func seedPlanLimits(db *gorm.DB) error {
	defaults := []models.PlanLimit{
		models.DefaultFreeLimits(),
		{
			PlanType:         models.PlanMedium,
			DailyScans:       50,
			MonthlyScans:     1000,
			ScanCreditCost:   5,
			OptionChainDepth: 10,
			AIChatEnabled:    true,
			PaperTrading:     false,
		},
		{
			PlanType:         models.PlanPro,
			DailyScans:       0, // unlimited
			MonthlyScans:     0,
			ScanCreditCost:   3,
			OptionChainDepth: 20,
			AIChatEnabled:    true,
			PaperTrading:     true,
		},
	}

	for _, limit := range defaults {
		var existing models.PlanLimit
		err := db.Where("plan_type = ?", limit.PlanType).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&limit).Error; err != nil {
				return err
			}
			slog.Info("seeded plan limits", "plan", limit.PlanType)
		} else if err != nil {
			return err
		}
	}
	return nil
}

func seedCreditPacks(db *gorm.DB) error {
	defaults := []models.CreditPack{
		{Name: "Starter", AmountINR: 99, Credits: 100, BonusCredits: 0, SortOrder: 1, IsActive: true},
		{Name: "Trader", AmountINR: 249, Credits: 250, BonusCredits: 15, SortOrder: 2, IsActive: true},
		{Name: "Pro Desk", AmountINR: 499, Credits: 500, BonusCredits: 50, SortOrder: 3, IsActive: true},
		{Name: "Institutional", AmountINR: 999, Credits: 1000, BonusCredits: 150, SortOrder: 4, IsActive: true},
	}

	for _, pack := range defaults {
		var existing models.CreditPack
		err := db.Where("name = ?", pack.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&pack).Error; err != nil {
				return err
			}
			slog.Info("seeded credit pack", "name", pack.Name, "credits", pack.Credits)
		} else if err != nil {
			return err
		}
	}
	return nil
}
