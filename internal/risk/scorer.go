// Package risk scores freshly-paid orders for fraud before any code is
// released. Points are additive across account age, order history, order
// amount, and auth method; an order at or above the flag threshold is parked
// for manual review instead of being fulfilled.
package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pinmarket/payment-service/internal/domain"
)

// DefaultFlagThreshold parks orders scoring 50 or higher.
const DefaultFlagThreshold = 50

var (
	highValueLimit   = decimal.NewFromInt(500)
	mediumValueLimit = decimal.NewFromInt(250)
)

type Scorer struct {
	threshold int
	now       func() time.Time
}

func NewScorer(threshold int) *Scorer {
	if threshold <= 0 {
		threshold = DefaultFlagThreshold
	}
	return &Scorer{
		threshold: threshold,
		now:       time.Now,
	}
}

// Score rebuilds the assessment from the inputs as they stand now; the same
// inputs always produce the same score. A nil or unusable profile degrades to
// a zero score rather than failing the pipeline.
func (s *Scorer) Score(order *domain.Order, user *domain.UserProfile) domain.RiskAssessment {
	now := s.now()

	if user == nil || user.CreatedAt.IsZero() {
		return domain.RiskAssessment{
			Score:        0,
			Status:       domain.RiskStatusClear,
			Reasons:      []string{"user not found"},
			CalculatedAt: now,
		}
	}

	score := 0
	var reasons []string

	switch age := now.Sub(user.CreatedAt); {
	case age < time.Hour:
		score += 25
		reasons = append(reasons, "new account, under 1 hour")
	case age < 24*time.Hour:
		score += 10
		reasons = append(reasons, "account under 24 hours old")
	}

	if user.PriorPaidOrders == 0 {
		score += 10
		reasons = append(reasons, "first order")
	}

	if amount, err := decimal.NewFromString(order.Amount); err == nil {
		switch {
		case amount.GreaterThan(highValueLimit):
			score += 15
			reasons = append(reasons, fmt.Sprintf("high-value order (%s TRY)", order.Amount))
		case amount.GreaterThan(mediumValueLimit):
			score += 5
			reasons = append(reasons, "medium-high value order")
		}
	}

	if user.ThirdPartyLogin() && user.Phone == "" {
		score += 5
		reasons = append(reasons, "third-party login, missing phone")
	}

	if score > 100 {
		score = 100
	}

	status := domain.RiskStatusClear
	if score >= s.threshold {
		status = domain.RiskStatusFlagged
	}

	return domain.RiskAssessment{
		Score:        score,
		Status:       status,
		Reasons:      reasons,
		CalculatedAt: now,
	}
}
