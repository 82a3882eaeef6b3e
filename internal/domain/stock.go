package domain

import "time"

type StockStatus string

const (
	StockStatusAvailable StockStatus = "available"
	StockStatusSold      StockStatus = "sold"
)

// StockItem holds one pre-provisioned digital code. Provisioning writes it in
// `available` state; the allocator transitions it to `sold` exactly once,
// binding it to an order. Items are never reused or deleted.
type StockItem struct {
	ItemID    string      `json:"item_id" dynamodbav:"item_id"`
	ProductID string      `json:"product_id" dynamodbav:"product_id"`
	Value     string      `json:"value" dynamodbav:"value"`
	Status    StockStatus `json:"status" dynamodbav:"status"`
	OrderID   string      `json:"order_id,omitempty" dynamodbav:"order_id,omitempty"`
	SoldAt    *time.Time  `json:"sold_at,omitempty" dynamodbav:"sold_at,omitempty"`
}
