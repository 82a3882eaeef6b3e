package domain

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusHold      DeliveryStatus = "hold"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

type RiskStatus string

const (
	RiskStatusClear   RiskStatus = "CLEAR"
	RiskStatusFlagged RiskStatus = "FLAGGED"
)

// Order is the authoritative record of a purchase. The checkout flow creates
// it in `pending` state; after that only the callback pipeline mutates it.
// Orders are never deleted.
//
// Amount is kept as a decimal string so no precision is lost across the
// DynamoDB round trip; parse with shopspring/decimal where math is needed.
type Order struct {
	OrderID   string          `json:"order_id" dynamodbav:"order_id"`
	UserID    string          `json:"user_id" dynamodbav:"user_id"`
	ProductID string          `json:"product_id" dynamodbav:"product_id"`
	Amount    string          `json:"amount" dynamodbav:"amount"`
	Status    OrderStatus     `json:"status" dynamodbav:"status"`
	Delivery  *Delivery       `json:"delivery,omitempty" dynamodbav:"delivery,omitempty"`
	Risk      *RiskAssessment `json:"risk,omitempty" dynamodbav:"risk,omitempty"`
	CreatedAt time.Time       `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

// Delivery tracks fulfillment of the digital codes attached to an order.
// Once Status reaches `delivered` the record is immutable.
type Delivery struct {
	Status     DeliveryStatus `json:"status" dynamodbav:"status"`
	Message    string         `json:"message,omitempty" dynamodbav:"message,omitempty"`
	Items      []string       `json:"items,omitempty" dynamodbav:"items,omitempty"`
	AssignedAt *time.Time     `json:"assigned_at,omitempty" dynamodbav:"assigned_at,omitempty"`
}

// RiskAssessment is rebuilt from scratch each time risk is computed; it is
// never incrementally updated.
type RiskAssessment struct {
	Score        int        `json:"score" dynamodbav:"score"`
	Status       RiskStatus `json:"status" dynamodbav:"status"`
	Reasons      []string   `json:"reasons,omitempty" dynamodbav:"reasons,omitempty"`
	CalculatedAt time.Time  `json:"calculated_at" dynamodbav:"calculated_at"`
}

type CreateOrderRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type CreateOrderResponse struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Message string      `json:"message"`
}
