package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pinmarket/payment-service/internal/domain"
)

var ErrInvalidAmount = errors.New("invalid order amount")

// OrderService covers the checkout-side surface: creating a pending order
// before the customer is sent to the provider, and the support reads the
// back office uses.
type OrderService struct {
	orders   OrderLedger
	payments PaymentLog
	logger   *zap.Logger
}

func NewOrderService(orders OrderLedger, payments PaymentLog, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		payments: payments,
		logger:   logger,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest, requestID string) (*domain.Order, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	order := &domain.Order{
		OrderID:   uuid.New().String(),
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Amount:    amount.String(),
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to save order",
			zap.String("order_id", order.OrderID),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", order.UserID),
		zap.String("amount", order.Amount))

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

func (s *OrderService) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.payments.ListPayments(ctx, orderID)
}
