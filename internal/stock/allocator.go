// Package stock assigns pre-provisioned digital codes to paid orders.
package stock

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pinmarket/payment-service/internal/domain"
	"github.com/pinmarket/payment-service/internal/repository"
)

// claimCandidates bounds how many snapshot items one allocation attempt will
// try before concluding the product is out of stock.
const claimCandidates = 5

// Store is the slice of the stock repository the allocator needs.
type Store interface {
	ListAvailable(ctx context.Context, productID string, limit int) ([]domain.StockItem, error)
	ClaimItem(ctx context.Context, productID, itemID, orderID string) (*domain.StockItem, error)
}

// Outcome is the result of one allocation attempt. Delivered outcomes carry
// the code values bound to the order; the rest carry a message explaining why
// the order is parked.
type Outcome struct {
	Delivered  bool
	Items      []string
	Message    string
	AssignedAt time.Time
}

type Allocator struct {
	store  Store
	logger *zap.Logger
}

func NewAllocator(store Store, logger *zap.Logger) *Allocator {
	return &Allocator{
		store:  store,
		logger: logger,
	}
}

// Allocate claims exactly one available item for the product and binds it to
// the order. The claim is a conditional write; losing a race for an item is
// normal and moves on to the next candidate. When every candidate is taken,
// or none exist, the order falls back to a pending outcome.
func (a *Allocator) Allocate(ctx context.Context, orderID, productID string) (Outcome, error) {
	candidates, err := a.store.ListAvailable(ctx, productID, claimCandidates)
	if err != nil {
		return Outcome{}, err
	}

	for _, candidate := range candidates {
		item, err := a.store.ClaimItem(ctx, productID, candidate.ItemID, orderID)
		if errors.Is(err, repository.ErrItemTaken) {
			a.logger.Info("Stock item taken by concurrent order, trying next",
				zap.String("order_id", orderID),
				zap.String("item_id", candidate.ItemID))
			continue
		}
		if err != nil {
			return Outcome{}, err
		}

		assignedAt := time.Now().UTC()
		if item.SoldAt != nil {
			assignedAt = *item.SoldAt
		}
		return Outcome{
			Delivered:  true,
			Items:      []string{item.Value},
			AssignedAt: assignedAt,
		}, nil
	}

	a.logger.Warn("No stock available for product",
		zap.String("order_id", orderID),
		zap.String("product_id", productID))
	return Outcome{
		Message: "out of stock, order queued for fulfillment",
	}, nil
}
