package logging

import (
	"log/slog"
	"time"

	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
)

const logRetention = 30 * 24 * time.Hour

// StartCleanup starts a goroutine that prunes system_logs older than the
// retention window once a day. Closing done stops it.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pruneLogs(db)
			case <-done:
				return
			}
		}
	}()
}

func pruneLogs(db *gorm.DB) {
	cutoff := time.Now().Add(-logRetention)
	res := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if res.Error != nil {
		slog.Error("log cleanup failed", "error", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", res.RowsAffected)
	}
}
