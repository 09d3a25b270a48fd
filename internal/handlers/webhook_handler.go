package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/stocxer/stocxer-backend/internal/config"
	"github.com/stocxer/stocxer-backend/internal/dto"
	"github.com/stocxer/stocxer-backend/internal/gateway"
	"github.com/stocxer/stocxer-backend/internal/models"
	"github.com/stocxer/stocxer-backend/internal/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookHandler reconciles asynchronous, possibly-duplicated gateway
// notifications into ledger and subscription mutations. It never talks to a
// human: its only vocabulary is the HTTP status it hands back to the gateway
// (200 accept, 401 reject, 500 retry).
type WebhookHandler struct {
	cfg          *config.Config
	db           *gorm.DB
	billing      *services.BillingService
	subscription *services.SubscriptionService
}

func NewWebhookHandler(cfg *config.Config, db *gorm.DB, billing *services.BillingService, subscription *services.SubscriptionService) *WebhookHandler {
	return &WebhookHandler{
		cfg:          cfg,
		db:           db,
		billing:      billing,
		subscription: subscription,
	}
}

func (h *WebhookHandler) HandleGatewayWebhook(c *fiber.Ctx) error {
	// Signature runs over the raw bytes; parsing first would break verification.
	body := c.Body()
	signature := c.Get("X-Gateway-Signature")
	if !gateway.VerifySignature(body, signature, h.cfg.GatewayWebhookSecret) {
		slog.Warn("webhook signature rejected", "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid signature",
		})
	}

	env, err := gateway.ParseEnvelope(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Malformed webhook payload",
		})
	}

	eventRow, duplicate, err := h.recordDelivery(c, env, body)
	if err != nil {
		slog.Error("webhook audit write failed", "event_type", env.Event, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to persist webhook event",
		})
	}
	if duplicate {
		return c.JSON(dto.WebhookAck{Success: true, Event: env.Event})
	}

	evt, err := env.ToEvent()
	if err != nil {
		// A valid signature with an unusable entity: retrying will not fix it.
		slog.Error("webhook event unusable", "event_type", env.Event, "error", err)
		h.markProcessed(c, eventRow, err.Error())
		return c.JSON(dto.WebhookAck{Success: true, Event: env.Event})
	}

	ctx := c.UserContext()
	var procErr error
	switch e := evt.(type) {
	case gateway.PaymentCaptured:
		procErr = h.billing.ApplyCapturedPayment(ctx, e)
		if errors.Is(procErr, services.ErrDuplicatePayment) {
			// Gateway delivery is at-least-once; an already-applied payment is success.
			procErr = nil
		}
	case gateway.PaymentFailed:
		procErr = h.billing.MarkPaymentFailed(ctx, e)
	case gateway.SubscriptionActivated:
		procErr = h.subscription.HandleActivated(ctx, e)
	case gateway.SubscriptionCharged:
		procErr = h.subscription.HandleCharged(ctx, e)
	case gateway.SubscriptionCancelled:
		procErr = h.subscription.HandleCancelled(ctx, e)
	case gateway.UnknownEvent:
		slog.Warn("unhandled webhook event acknowledged", "event_type", e.Type)
	}

	if procErr != nil {
		if dropEventError(procErr) {
			// Malformed or stale reference; acknowledge so the gateway stops retrying.
			slog.Error("webhook event dropped", "event_type", env.Event, "error", procErr)
			h.markProcessed(c, eventRow, procErr.Error())
			return c.JSON(dto.WebhookAck{Success: true, Event: env.Event})
		}
		// Transient failure: record it but leave the delivery unprocessed so
		// the gateway's retry runs the event again.
		slog.Error("webhook processing failed", "event_type", env.Event, "error", procErr)
		h.recordError(c, eventRow, procErr.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	h.markProcessed(c, eventRow, "")
	slog.Info("webhook processed", "event_type", env.Event)
	return c.JSON(dto.WebhookAck{Success: true, Event: env.Event})
}

// recordDelivery persists the delivery for audit and recognizes replays by the
// gateway's event ID. A replay of an already-processed delivery is
// acknowledged without touching the ledger again.
func (h *WebhookHandler) recordDelivery(c *fiber.Ctx, env *gateway.Envelope, body []byte) (*models.WebhookEvent, bool, error) {
	row := models.WebhookEvent{
		EventType: env.Event,
		Payload:   datatypes.JSON(body),
	}
	if env.EventID != "" {
		id := env.EventID
		row.GatewayEventID = &id
	}

	tx := h.db.WithContext(c.UserContext())
	if row.GatewayEventID == nil {
		return &row, false, tx.Create(&row).Error
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway_event_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &row, false, nil
	}

	var existing models.WebhookEvent
	if err := tx.Where("gateway_event_id = ?", env.EventID).First(&existing).Error; err != nil {
		return nil, false, err
	}
	// An unprocessed duplicate means the earlier attempt failed mid-flight;
	// run it again, the ledger's idempotency key makes the retry safe.
	return &existing, existing.Processed, nil
}

func (h *WebhookHandler) markProcessed(c *fiber.Ctx, row *models.WebhookEvent, processingError string) {
	if row == nil {
		return
	}
	err := h.db.WithContext(c.UserContext()).
		Model(&models.WebhookEvent{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"processed":        true,
			"processing_error": processingError,
		}).Error
	if err != nil {
		slog.Error("failed to mark webhook event processed", "event_id", row.ID, "error", err)
	}
}

func (h *WebhookHandler) recordError(c *fiber.Ctx, row *models.WebhookEvent, processingError string) {
	if row == nil {
		return
	}
	err := h.db.WithContext(c.UserContext()).
		Model(&models.WebhookEvent{}).
		Where("id = ?", row.ID).
		Update("processing_error", processingError).Error
	if err != nil {
		slog.Error("failed to record webhook event error", "event_id", row.ID, "error", err)
	}
}

// dropEventError reports whether an event error is permanent: the reference it
// carries is malformed or stale and a gateway retry cannot succeed.
func dropEventError(err error) bool {
	return errors.Is(err, services.ErrPackNotFound) ||
		errors.Is(err, services.ErrUserNotFound) ||
		errors.Is(err, services.ErrPaymentNoUser) ||
		errors.Is(err, services.ErrSubscriptionNotFound)
}
