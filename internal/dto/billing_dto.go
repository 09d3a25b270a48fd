package dto

import (
	"time"

	"github.com/google/uuid"
)

type BillingStatusResponse struct {
	PlanType       string             `json:"plan_type"`
	CreditsBalance int64              `json:"credits_balance"`
	TodayUsage     int                `json:"today_usage"`
	Limits         PlanLimitsResponse `json:"limits"`
}

type PlanLimitsResponse struct {
	DailyScans       int   `json:"daily_scans"`
	MonthlyScans     int   `json:"monthly_scans"`
	ScanCreditCost   int64 `json:"scan_credit_cost"`
	OptionChainDepth int   `json:"option_chain_depth"`
	AIChatEnabled    bool  `json:"ai_chat_enabled"`
	PaperTrading     bool  `json:"paper_trading"`
}

type CheckoutRequest struct {
	PackID uuid.UUID `json:"pack_id"`
}

type CheckoutResponse struct {
	OrderID     string    `json:"order_id"`
	AmountPaise int64     `json:"amount_paise"`
	Currency    string    `json:"currency"`
	PackID      uuid.UUID `json:"pack_id"`
	GatewayKey  string    `json:"gateway_key"`
}

type TransactionResponse struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

type ScanRequest struct {
	ScanType string `json:"scan_type"`
}

type WebhookAck struct {
	Success bool   `json:"success"`
	Event   string `json:"event"`
}
