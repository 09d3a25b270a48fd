package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stocxer/stocxer-backend/internal/dto"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
)

type PlanLimitsHandler struct {
	db *gorm.DB
}

func NewPlanLimitsHandler(db *gorm.DB) *PlanLimitsHandler {
	return &PlanLimitsHandler{db: db}
}

// ListPlans returns the limits for every plan tier (public).
func (h *PlanLimitsHandler) ListPlans(c *fiber.Ctx) error {
	var limits []models.PlanLimit
	if err := h.db.Order("plan_type").Find(&limits).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch plans",
		})
	}
	return c.JSON(fiber.Map{"plans": limits})
}

// SetPlanLimits creates or updates the limits for a plan tier (admin only).
func (h *PlanLimitsHandler) SetPlanLimits(c *fiber.Ctx) error {
	planType := c.Params("plan_type", "")
	if !models.ValidPlan(planType) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid plan_type: " + planType,
		})
	}

	var payload struct {
		DailyScans       *int   `json:"daily_scans"`
		MonthlyScans     *int   `json:"monthly_scans"`
		ScanCreditCost   *int64 `json:"scan_credit_cost"`
		OptionChainDepth *int   `json:"option_chain_depth"`
		AIChatEnabled    *bool  `json:"ai_chat_enabled"`
		PaperTrading     *bool  `json:"paper_trading"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	var limit models.PlanLimit
	err := h.db.Where("plan_type = ?", planType).First(&limit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		limit = models.PlanLimit{PlanType: planType}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to query plan limits",
		})
	}

	if payload.DailyScans != nil {
		limit.DailyScans = *payload.DailyScans
	}
	if payload.MonthlyScans != nil {
		limit.MonthlyScans = *payload.MonthlyScans
	}
	if payload.ScanCreditCost != nil {
		limit.ScanCreditCost = *payload.ScanCreditCost
	}
	if payload.OptionChainDepth != nil {
		limit.OptionChainDepth = *payload.OptionChainDepth
	}
	if payload.AIChatEnabled != nil {
		limit.AIChatEnabled = *payload.AIChatEnabled
	}
	if payload.PaperTrading != nil {
		limit.PaperTrading = *payload.PaperTrading
	}
	limit.UpdatedAt = time.Now()

	if err := h.db.Save(&limit).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to save plan limits",
		})
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Plan limits updated successfully",
		"plan":    limit,
	})
}

// DeletePlanLimits removes a plan tier's limits row (admin only). Users on the
// tier fall back to the free tier allowances until it is recreated.
func (h *PlanLimitsHandler) DeletePlanLimits(c *fiber.Ctx) error {
	planType := c.Params("plan_type", "")
	if planType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "plan_type parameter is required",
		})
	}

	result := h.db.Where("plan_type = ?", planType).Delete(&models.PlanLimit{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete plan limits",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Plan not found",
		})
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Plan limits deleted successfully",
	})
}
