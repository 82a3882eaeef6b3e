package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pinmarket/payment-service/internal/domain"
	"github.com/pinmarket/payment-service/internal/repository"
)

func TestCreateOrder(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewOrderService(ledger, &fakePayments{}, zap.NewNop())

	order, err := svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		UserID:    "U1",
		ProductID: "pubg-660",
		Amount:    "149.90",
	}, "req-1")

	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "149.9", order.Amount)
	assert.Nil(t, order.Delivery)

	stored, err := svc.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, stored.OrderID)
}

func TestCreateOrderRejectsBadAmount(t *testing.T) {
	svc := NewOrderService(newFakeLedger(), &fakePayments{}, zap.NewNop())

	for _, amount := range []string{"", "abc", "-10"} {
		_, err := svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
			UserID:    "U1",
			ProductID: "pubg-660",
			Amount:    amount,
		}, "req-1")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}
}

func TestListPaymentsUnknownOrder(t *testing.T) {
	svc := NewOrderService(newFakeLedger(), &fakePayments{}, zap.NewNop())

	_, err := svc.ListPayments(context.Background(), "NOPE")

	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
