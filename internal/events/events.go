package events

import (
	"time"
)

const (
	EventTypePaymentSettled = "payment.settled"
	EventTypeOrderHeld      = "order.held"
)

// PaymentSettledEvent is published after a callback settles an order, in
// either direction. Downstream consumers (notifications, accounting export)
// must tolerate duplicates; the event id is the dedup key.
type PaymentSettledEvent struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	Outcome        string    `json:"outcome"`
	Provider       string    `json:"provider"`
	ProviderTxnID  string    `json:"provider_txn_id"`
	Amount         string    `json:"amount"`
	RiskScore      int       `json:"risk_score"`
	RiskStatus     string    `json:"risk_status"`
	DeliveryStatus string    `json:"delivery_status"`
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id"`
}

// OrderHeldEvent tells the back office an order was parked for manual review.
type OrderHeldEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	Score     int       `json:"score"`
	Reasons   []string  `json:"reasons"`
	Timestamp time.Time `json:"timestamp"`
}
