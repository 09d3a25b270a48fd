package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/stocxer/stocxer-backend/internal/config"
	"github.com/stocxer/stocxer-backend/internal/dto"
	"github.com/stocxer/stocxer-backend/internal/middleware"
	"github.com/stocxer/stocxer-backend/internal/services"
)

type BillingHandler struct {
	cfg     *config.Config
	billing *services.BillingService
	ledger  *services.LedgerService
}

func NewBillingHandler(cfg *config.Config, billing *services.BillingService, ledger *services.LedgerService) *BillingHandler {
	return &BillingHandler{cfg: cfg, billing: billing, ledger: ledger}
}

// ListPacks serves the public credit pack catalog.
func (h *BillingHandler) ListPacks(c *fiber.Ctx) error {
	packs, err := h.billing.ListPacks(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load credit packs",
		})
	}
	return c.JSON(fiber.Map{"packs": packs})
}

// Status serves the billing dashboard summary for the authenticated user.
func (h *BillingHandler) Status(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	status, err := h.billing.Status(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load billing status",
		})
	}
	return c.JSON(status)
}

// Checkout opens a gateway order for a credit pack purchase.
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	record, err := h.billing.CreateCheckout(c.UserContext(), userID, req.PackID)
	if err != nil {
		if errors.Is(err, services.ErrPackNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Credit pack not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create checkout order",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CheckoutResponse{
		OrderID:     record.GatewayOrderID,
		AmountPaise: record.AmountPaise,
		Currency:    record.Currency,
		PackID:      *record.PackID,
		GatewayKey:  h.cfg.GatewayKeyID,
	})
}

// History serves the user's ledger entries, newest first.
func (h *BillingHandler) History(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	entries, err := h.ledger.History(c.UserContext(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load transaction history",
		})
	}

	out := make([]dto.TransactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.TransactionResponse{
			ID:            e.ID,
			Type:          e.Type,
			Amount:        e.Amount,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			Description:   e.Description,
			CreatedAt:     e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"transactions": out})
}

// ConsumeScan counts a scan against the user's quota and debits its credit cost.
func (h *BillingHandler) ConsumeScan(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.ScanRequest
	if err := c.BodyParser(&req); err != nil || req.ScanType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "scan_type is required",
		})
	}

	if err := h.billing.ConsumeScan(c.UserContext(), userID, req.ScanType); err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
				Error: true, Message: "Insufficient credits: add credits to continue",
			})
		case errors.Is(err, services.ErrQuotaExceeded):
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Daily scan quota exceeded",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to record scan",
			})
		}
	}

	return c.JSON(fiber.Map{"recorded": true})
}
