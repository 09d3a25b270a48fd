package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the closed set of gateway notifications. Every webhook body parses
// into exactly one variant; event types we do not handle become UnknownEvent
// so the reconciler can acknowledge them without retry storms.
type Event interface {
	EventType() string
	sealed()
}

// PaymentNotes carries the checkout metadata we attached when creating the
// gateway order. It is the only link from a gateway payment back to our user
// and pack.
type PaymentNotes struct {
	UserID      string `json:"user_id"`
	PackID      string `json:"pack_id"`
	PaymentType string `json:"payment_type"`
}

type PaymentCaptured struct {
	PaymentID   string
	OrderID     string
	AmountPaise int64
	Currency    string
	Method      string
	Notes       PaymentNotes
}

type PaymentFailed struct {
	PaymentID        string
	OrderID          string
	AmountPaise      int64
	ErrorCode        string
	ErrorDescription string
	Notes            PaymentNotes
}

type SubscriptionActivated struct {
	SubscriptionID string
	PlanType       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Notes          PaymentNotes
}

type SubscriptionCharged struct {
	SubscriptionID string
	PlanType       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Notes          PaymentNotes
}

type SubscriptionCancelled struct {
	SubscriptionID string
	Notes          PaymentNotes
}

type UnknownEvent struct {
	Type string
}

func (PaymentCaptured) EventType() string       { return "payment.captured" }
func (PaymentFailed) EventType() string         { return "payment.failed" }
func (SubscriptionActivated) EventType() string { return "subscription.activated" }
func (SubscriptionCharged) EventType() string   { return "subscription.charged" }
func (SubscriptionCancelled) EventType() string { return "subscription.cancelled" }
func (e UnknownEvent) EventType() string        { return e.Type }

func (PaymentCaptured) sealed()       {}
func (PaymentFailed) sealed()         {}
func (SubscriptionActivated) sealed() {}
func (SubscriptionCharged) sealed()   {}
func (SubscriptionCancelled) sealed() {}
func (UnknownEvent) sealed()          {}

// Envelope is the gateway's outer webhook shape.
type Envelope struct {
	Event     string          `json:"event"`
	Payload   envelopePayload `json:"payload"`
	EventID   string          `json:"event_id"`
	CreatedAt int64           `json:"created_at"`
}

type envelopePayload struct {
	Payment      *entityWrapper `json:"payment"`
	Subscription *entityWrapper `json:"subscription"`
}

type entityWrapper struct {
	Entity json.RawMessage `json:"entity"`
}

type paymentEntity struct {
	ID               string       `json:"id"`
	OrderID          string       `json:"order_id"`
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Status           string       `json:"status"`
	Method           string       `json:"method"`
	ErrorCode        string       `json:"error_code"`
	ErrorDescription string       `json:"error_description"`
	Notes            PaymentNotes `json:"notes"`
}

type subscriptionEntity struct {
	ID           string       `json:"id"`
	PlanType     string       `json:"plan_type"`
	Status       string       `json:"status"`
	CurrentStart int64        `json:"current_start"`
	CurrentEnd   int64        `json:"current_end"`
	Notes        PaymentNotes `json:"notes"`
}

// ParseEnvelope decodes the outer webhook envelope without interpreting the
// event. Used to persist the delivery before dispatch.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("webhook envelope missing event type")
	}
	return &env, nil
}

// ParseEvent decodes a webhook body into its typed variant.
func ParseEvent(body []byte) (Event, error) {
	env, err := ParseEnvelope(body)
	if err != nil {
		return nil, err
	}
	return env.ToEvent()
}

// ToEvent maps the envelope onto the typed event set.
func (env *Envelope) ToEvent() (Event, error) {
	switch env.Event {
	case "payment.captured":
		p, err := env.paymentEntity()
		if err != nil {
			return nil, err
		}
		return PaymentCaptured{
			PaymentID:   p.ID,
			OrderID:     p.OrderID,
			AmountPaise: p.Amount,
			Currency:    p.Currency,
			Method:      p.Method,
			Notes:       p.Notes,
		}, nil
	case "payment.failed":
		p, err := env.paymentEntity()
		if err != nil {
			return nil, err
		}
		return PaymentFailed{
			PaymentID:        p.ID,
			OrderID:          p.OrderID,
			AmountPaise:      p.Amount,
			ErrorCode:        p.ErrorCode,
			ErrorDescription: p.ErrorDescription,
			Notes:            p.Notes,
		}, nil
	case "subscription.activated":
		s, err := env.subscriptionEntity()
		if err != nil {
			return nil, err
		}
		return SubscriptionActivated{
			SubscriptionID: s.ID,
			PlanType:       s.PlanType,
			PeriodStart:    unixToTime(s.CurrentStart),
			PeriodEnd:      unixToTime(s.CurrentEnd),
			Notes:          s.Notes,
		}, nil
	case "subscription.charged":
		s, err := env.subscriptionEntity()
		if err != nil {
			return nil, err
		}
		return SubscriptionCharged{
			SubscriptionID: s.ID,
			PlanType:       s.PlanType,
			PeriodStart:    unixToTime(s.CurrentStart),
			PeriodEnd:      unixToTime(s.CurrentEnd),
			Notes:          s.Notes,
		}, nil
	case "subscription.cancelled":
		s, err := env.subscriptionEntity()
		if err != nil {
			return nil, err
		}
		return SubscriptionCancelled{
			SubscriptionID: s.ID,
			Notes:          s.Notes,
		}, nil
	default:
		return UnknownEvent{Type: env.Event}, nil
	}
}

func (env *Envelope) paymentEntity() (*paymentEntity, error) {
	if env.Payload.Payment == nil || len(env.Payload.Payment.Entity) == 0 {
		return nil, fmt.Errorf("%s event missing payment entity", env.Event)
	}
	var p paymentEntity
	if err := json.Unmarshal(env.Payload.Payment.Entity, &p); err != nil {
		return nil, fmt.Errorf("malformed payment entity: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%s event missing payment id", env.Event)
	}
	return &p, nil
}

func (env *Envelope) subscriptionEntity() (*subscriptionEntity, error) {
	if env.Payload.Subscription == nil || len(env.Payload.Subscription.Entity) == 0 {
		return nil, fmt.Errorf("%s event missing subscription entity", env.Event)
	}
	var s subscriptionEntity
	if err := json.Unmarshal(env.Payload.Subscription.Entity, &s); err != nil {
		return nil, fmt.Errorf("malformed subscription entity: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%s event missing subscription id", env.Event)
	}
	return &s, nil
}

func unixToTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
