package domain

import "time"

// Payment is an append-only audit record. Exactly one is written per callback
// that reaches settlement; it is never mutated afterwards.
type Payment struct {
	PaymentID     string      `json:"payment_id" dynamodbav:"payment_id"`
	OrderID       string      `json:"order_id" dynamodbav:"order_id"`
	Provider      string      `json:"provider" dynamodbav:"provider"`
	ProviderTxnID string      `json:"provider_txn_id" dynamodbav:"provider_txn_id"`
	Status        OrderStatus `json:"status" dynamodbav:"status"`
	Amount        string      `json:"amount" dynamodbav:"amount"`
	Currency      string      `json:"currency" dynamodbav:"currency"`
	Installment   int         `json:"installment" dynamodbav:"installment"`
	CreatedAt     time.Time   `json:"created_at" dynamodbav:"created_at"`
}
