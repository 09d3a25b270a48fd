package papertrade

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/middleware"
)

type TradeHandler struct {
	trades  *TradeService
	signals *SignalService
}

func NewTradeHandler(trades *TradeService, signals *SignalService) *TradeHandler {
	return &TradeHandler{trades: trades, signals: signals}
}

func (h *TradeHandler) OpenPosition(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	var req OpenPositionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	pos, err := h.trades.OpenPosition(c.UserContext(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrFeatureDisabled):
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: true, Message: err.Error()})
		case errors.Is(err, ErrSignalNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: true, Message: err.Error()})
		case errors.Is(err, ErrSymbolRequired),
			errors.Is(err, ErrInvalidDirection),
			errors.Is(err, ErrInvalidQuantity),
			errors.Is(err, ErrInvalidEntryPrice):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to open position"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(pos)
}

func (h *TradeHandler) ClosePosition(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	positionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "Invalid position id"})
	}

	var req ClosePositionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	pos, err := h.trades.ClosePosition(c.UserContext(), userID, positionID, req.ExitPrice)
	if err != nil {
		switch {
		case errors.Is(err, ErrPositionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: true, Message: err.Error()})
		case errors.Is(err, ErrPositionClosed):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: true, Message: err.Error()})
		case errors.Is(err, ErrInvalidEntryPrice):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "exit_price must be positive"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to close position"})
		}
	}

	return c.JSON(pos)
}

func (h *TradeHandler) ListPositions(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	positions, err := h.trades.ListPositions(c.UserContext(), userID, c.Query("status"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to list positions"})
	}
	return c.JSON(fiber.Map{"positions": positions})
}

func (h *TradeHandler) Performance(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	days, _ := strconv.Atoi(c.Query("days", "30"))
	summary, err := h.trades.Performance(c.UserContext(), userID, days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to load performance"})
	}
	return c.JSON(summary)
}

func (h *TradeHandler) ListSignals(c *fiber.Ctx) error {
	signals, err := h.signals.ListActive(c.UserContext(), c.Query("symbol"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to list signals"})
	}
	return c.JSON(fiber.Map{"signals": signals})
}

func (h *TradeHandler) CreateSignal(c *fiber.Ctx) error {
	var req CreateSignalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	sig, err := h.signals.Create(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, ErrSymbolRequired) || errors.Is(err, ErrInvalidDirection) || errors.Is(err, ErrInvalidEntryPrice) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to create signal"})
	}

	return c.Status(fiber.StatusCreated).JSON(sig)
}

func (h *TradeHandler) MarkSignalTriggered(c *fiber.Ctx) error {
	signalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "Invalid signal id"})
	}

	if err := h.signals.MarkTriggered(c.UserContext(), signalID); err != nil {
		if errors.Is(err, ErrSignalNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: true, Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to update signal"})
	}
	return c.JSON(fiber.Map{"error": false, "message": "Signal marked triggered"})
}
