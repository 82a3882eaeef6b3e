package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pinmarket/payment-service/internal/domain"
)

var scoreTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testScorer(threshold int) *Scorer {
	s := NewScorer(threshold)
	s.now = func() time.Time { return scoreTime }
	return s
}

func order(amount string) *domain.Order {
	return &domain.Order{
		OrderID:   "ORD-1",
		UserID:    "U-1",
		ProductID: "pubg-660",
		Amount:    amount,
		Status:    domain.OrderStatusPaid,
	}
}

func profile(age time.Duration, priorOrders int, authProvider, phone string) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:          "U-1",
		CreatedAt:       scoreTime.Add(-age),
		AuthProvider:    authProvider,
		Phone:           phone,
		PriorPaidOrders: priorOrders,
	}
}

func TestScoreMissingUser(t *testing.T) {
	s := testScorer(50)

	got := s.Score(order("600"), nil)

	assert.Equal(t, 0, got.Score)
	assert.Equal(t, domain.RiskStatusClear, got.Status)
	assert.Equal(t, []string{"user not found"}, got.Reasons)
}

func TestScoreFactors(t *testing.T) {
	tests := []struct {
		name       string
		order      *domain.Order
		user       *domain.UserProfile
		wantScore  int
		wantStatus domain.RiskStatus
		wantReason string
	}{
		{
			name:       "brand new account high value first order",
			order:      order("600"),
			user:       profile(30*time.Minute, 0, domain.AuthProviderCredentials, "+905551112233"),
			wantScore:  50, // 25 + 10 + 15
			wantStatus: domain.RiskStatusFlagged,
			wantReason: "new account, under 1 hour",
		},
		{
			name:       "aged account with history only amount counts",
			order:      order("600"),
			user:       profile(48*time.Hour, 3, domain.AuthProviderCredentials, "+905551112233"),
			wantScore:  15,
			wantStatus: domain.RiskStatusClear,
			wantReason: "high-value order (600 TRY)",
		},
		{
			name:       "day-old account",
			order:      order("100"),
			user:       profile(5*time.Hour, 1, domain.AuthProviderCredentials, "+905551112233"),
			wantScore:  10,
			wantStatus: domain.RiskStatusClear,
			wantReason: "account under 24 hours old",
		},
		{
			name:       "medium amount band",
			order:      order("300"),
			user:       profile(72*time.Hour, 2, domain.AuthProviderCredentials, "+905551112233"),
			wantScore:  5,
			wantStatus: domain.RiskStatusClear,
			wantReason: "medium-high value order",
		},
		{
			name:       "third-party login without phone",
			order:      order("100"),
			user:       profile(72*time.Hour, 2, "google", ""),
			wantScore:  5,
			wantStatus: domain.RiskStatusClear,
			wantReason: "third-party login, missing phone",
		},
		{
			name:       "third-party login with phone is fine",
			order:      order("100"),
			user:       profile(72*time.Hour, 2, "google", "+905551112233"),
			wantScore:  0,
			wantStatus: domain.RiskStatusClear,
		},
		{
			name:       "everything at once",
			order:      order("999"),
			user:       profile(10*time.Minute, 0, "google", ""),
			wantScore:  55, // 25 + 10 + 15 + 5
			wantStatus: domain.RiskStatusFlagged,
		},
		{
			name:       "unparseable amount skips the band",
			order:      order("not-a-number"),
			user:       profile(72*time.Hour, 2, domain.AuthProviderCredentials, "+905551112233"),
			wantScore:  0,
			wantStatus: domain.RiskStatusClear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScorer(50)
			got := s.Score(tt.order, tt.user)

			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantReason != "" {
				assert.Contains(t, got.Reasons, tt.wantReason)
			}
		})
	}
}

// Age bands are mutually exclusive and crossing a boundary never raises the
// score.
func TestScoreAgeBandBoundaries(t *testing.T) {
	s := testScorer(50)
	ord := order("100")

	under1h := s.Score(ord, profile(59*time.Minute, 1, domain.AuthProviderCredentials, "x"))
	under24h := s.Score(ord, profile(2*time.Hour, 1, domain.AuthProviderCredentials, "x"))
	aged := s.Score(ord, profile(25*time.Hour, 1, domain.AuthProviderCredentials, "x"))

	assert.Equal(t, 25, under1h.Score)
	assert.Equal(t, 10, under24h.Score)
	assert.Equal(t, 0, aged.Score)
	assert.NotContains(t, under1h.Reasons, "account under 24 hours old",
		"only the tighter band applies")
}

func TestScoreAmountBandBoundaries(t *testing.T) {
	s := testScorer(50)
	user := profile(72*time.Hour, 2, domain.AuthProviderCredentials, "x")

	assert.Equal(t, 0, s.Score(order("250"), user).Score, "250 is below both bands")
	assert.Equal(t, 5, s.Score(order("250.01"), user).Score)
	assert.Equal(t, 5, s.Score(order("500"), user).Score, "500 is still the medium band")
	assert.Equal(t, 15, s.Score(order("500.01"), user).Score)
}

func TestScoreDeterministic(t *testing.T) {
	s := testScorer(50)
	ord := order("600")
	user := profile(30*time.Minute, 0, "google", "")

	first := s.Score(ord, user)
	second := s.Score(ord, user)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Reasons, second.Reasons)
}

func TestScoreThresholdConfigurable(t *testing.T) {
	ord := order("600")
	user := profile(48*time.Hour, 3, domain.AuthProviderCredentials, "x") // scores 15

	assert.Equal(t, domain.RiskStatusClear, testScorer(50).Score(ord, user).Status)
	assert.Equal(t, domain.RiskStatusFlagged, testScorer(15).Score(ord, user).Status)
}

func TestNewScorerDefaultsThreshold(t *testing.T) {
	s := NewScorer(0)
	assert.Equal(t, DefaultFlagThreshold, s.threshold)
}
