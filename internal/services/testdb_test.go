package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/database"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database per test and migrates the full
// schema. cache=shared keeps the database alive across pooled connections.
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
	if err := database.MigrateAll(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := models.User{
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Password: "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return &user
}

func createTestPack(t *testing.T, db *gorm.DB, credits, bonus int64) *models.CreditPack {
	t.Helper()

	pack := models.CreditPack{
		Name:         "Pack " + uuid.NewString()[:8],
		AmountINR:    249,
		Credits:      credits,
		BonusCredits: bonus,
		IsActive:     true,
	}
	if err := db.Create(&pack).Error; err != nil {
		t.Fatalf("create test pack: %v", err)
	}
	return &pack
}
