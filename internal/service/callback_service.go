package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pinmarket/payment-service/internal/domain"
	"github.com/pinmarket/payment-service/internal/events"
	"github.com/pinmarket/payment-service/internal/repository"
	"github.com/pinmarket/payment-service/internal/risk"
	"github.com/pinmarket/payment-service/internal/stock"
	"github.com/pinmarket/payment-service/internal/webhook"
	"github.com/pinmarket/payment-service/pkg/config"
)

const providerShopier = "shopier"

// OrderLedger is the order-side persistence the pipeline needs.
type OrderLedger interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	SettleOrder(ctx context.Context, orderID string, outcome domain.OrderStatus) (*domain.Order, error)
	RecordRisk(ctx context.Context, orderID string, assessment domain.RiskAssessment) error
	RecordDelivery(ctx context.Context, orderID string, delivery domain.Delivery) error
	CountSettledByUser(ctx context.Context, userID, excludeOrderID string) (int, error)
}

type PaymentLog interface {
	AppendPayment(ctx context.Context, payment *domain.Payment) error
	ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error)
}

type UserDirectory interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

type StockAllocator interface {
	Allocate(ctx context.Context, orderID, productID string) (stock.Outcome, error)
}

type EventPublisher interface {
	PublishSettled(event events.PaymentSettledEvent) error
	PublishHeld(event events.OrderHeldEvent) error
}

// CallbackService runs the settlement pipeline for one provider callback:
// resolve the order, settle it with a single conditional write, score risk,
// and assign stock. Whatever happens inside, the caller gets back a redirect
// location; the browser bounced here from the provider must never see an
// error payload.
type CallbackService struct {
	orders      OrderLedger
	payments    PaymentLog
	users       UserDirectory
	allocator   StockAllocator
	publisher   EventPublisher
	scorer      *risk.Scorer
	logger      *zap.Logger
	secret      string
	successPath string
	failedPath  string
}

func NewCallbackService(
	orders OrderLedger,
	payments PaymentLog,
	users UserDirectory,
	allocator StockAllocator,
	publisher EventPublisher,
	scorer *risk.Scorer,
	cfg *config.Config,
	logger *zap.Logger,
) *CallbackService {
	return &CallbackService{
		orders:      orders,
		payments:    payments,
		users:       users,
		allocator:   allocator,
		publisher:   publisher,
		scorer:      scorer,
		logger:      logger,
		secret:      cfg.ShopierSecret,
		successPath: cfg.SuccessPath,
		failedPath:  cfg.FailedPath,
	}
}

// HandleCallback processes one normalized callback and returns the redirect
// location. Duplicate deliveries are expected: the settle transition is
// conditional on the order still being pending, so only one caller ever runs
// risk scoring and allocation, and replays short-circuit to the original
// outcome.
func (s *CallbackService) HandleCallback(ctx context.Context, fields map[string]string, requestID string) (location string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in callback pipeline",
				zap.String("request_id", requestID),
				zap.Any("panic", r))
			location = s.failureReason("server_error")
		}
	}()

	orderID := fields[webhook.FieldOrderID]
	if orderID == "" {
		s.logger.Warn("Callback carries no order id", zap.String("request_id", requestID))
		return s.failureReason("no_order_id")
	}

	if s.secret != "" {
		if !webhook.VerifySignature(s.secret, fields[webhook.FieldRandomNr], orderID, fields[webhook.FieldSignature]) {
			s.logger.Warn("Callback signature mismatch",
				zap.String("order_id", orderID),
				zap.String("request_id", requestID))
			return s.failureReason("invalid_signature")
		}
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		s.logger.Warn("Callback for unknown order", zap.String("order_id", orderID))
		return s.failureReason("order_not_found")
	}
	if err != nil {
		s.logger.Error("Failed to load order",
			zap.String("order_id", orderID),
			zap.Error(err))
		return s.failureReason("server_error")
	}

	if order.Status == domain.OrderStatusPaid {
		s.logger.Info("Duplicate callback for settled order", zap.String("order_id", orderID))
		return s.successFor(orderID)
	}

	outcome := domain.OrderStatusFailed
	if providerReportsSuccess(fields[webhook.FieldStatus]) {
		outcome = domain.OrderStatusPaid
	}

	settled, err := s.orders.SettleOrder(ctx, orderID, outcome)
	if errors.Is(err, repository.ErrAlreadySettled) {
		// lost the race against a concurrent delivery of the same callback
		if settled != nil && settled.Status == domain.OrderStatusPaid {
			return s.successFor(orderID)
		}
		return s.failureFor(orderID)
	}
	if err != nil {
		s.logger.Error("Failed to settle order",
			zap.String("order_id", orderID),
			zap.Error(err))
		return s.failureReason("server_error")
	}

	s.appendPayment(ctx, settled, fields)

	if outcome == domain.OrderStatusFailed {
		s.logger.Info("Provider reported payment failure",
			zap.String("order_id", orderID),
			zap.String("provider_status", fields[webhook.FieldStatus]))
		return s.failureFor(orderID)
	}

	assessment := s.fulfill(ctx, settled)
	s.publishSettled(settled, assessment, fields, requestID)

	return s.successFor(orderID)
}

// providerReportsSuccess: Shopier signals success with "success" or "1";
// every other value is a failure.
func providerReportsSuccess(status string) bool {
	return strings.EqualFold(status, "success") || status == "1"
}

// fulfill runs risk scoring and code assignment for a freshly paid order.
// Faults past this point are bookkeeping faults: logged, delivery left in its
// last durable state, the settlement itself never reversed.
func (s *CallbackService) fulfill(ctx context.Context, order *domain.Order) domain.RiskAssessment {
	profile := s.lookupProfile(ctx, order)
	assessment := s.scorer.Score(order, profile)

	if err := s.orders.RecordRisk(ctx, order.OrderID, assessment); err != nil {
		s.logger.Error("Failed to record risk assessment",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}

	if assessment.Status == domain.RiskStatusFlagged {
		s.logger.Warn("Order flagged, holding delivery",
			zap.String("order_id", order.OrderID),
			zap.Int("score", assessment.Score),
			zap.Strings("reasons", assessment.Reasons))
		s.recordDelivery(ctx, order, domain.Delivery{
			Status:  domain.DeliveryStatusHold,
			Message: "held for manual review",
		})
		s.publishHeld(order, assessment)
		return assessment
	}

	outcome, err := s.allocator.Allocate(ctx, order.OrderID, order.ProductID)
	if err != nil {
		s.logger.Error("Stock allocation failed, order stays paid",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
		s.recordDelivery(ctx, order, domain.Delivery{
			Status:  domain.DeliveryStatusPending,
			Message: "code assignment failed, queued for retry",
		})
		return assessment
	}

	if !outcome.Delivered {
		s.recordDelivery(ctx, order, domain.Delivery{
			Status:  domain.DeliveryStatusPending,
			Message: outcome.Message,
		})
		return assessment
	}

	assignedAt := outcome.AssignedAt
	s.recordDelivery(ctx, order, domain.Delivery{
		Status:     domain.DeliveryStatusDelivered,
		Items:      outcome.Items,
		AssignedAt: &assignedAt,
	})
	s.logger.Info("Order delivered",
		zap.String("order_id", order.OrderID),
		zap.Int("item_count", len(outcome.Items)))
	return assessment
}

// lookupProfile fetches the account record feeding the scorer. The prior
// order count excludes the order being scored: it has already settled paid by
// the time risk runs, and counting it would hide the first-order factor. A
// missing or unreadable profile degrades to nil, which the scorer treats as
// non-scoreable; a failed order count degrades to zero, the direction that
// raises the score.
func (s *CallbackService) lookupProfile(ctx context.Context, order *domain.Order) *domain.UserProfile {
	profile, err := s.users.GetProfile(ctx, order.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("Failed to load user profile",
			zap.String("user_id", order.UserID),
			zap.Error(err))
		return nil
	}

	count, err := s.orders.CountSettledByUser(ctx, order.UserID, order.OrderID)
	if err != nil {
		s.logger.Error("Failed to count settled orders",
			zap.String("user_id", order.UserID),
			zap.Error(err))
		count = 0
	}
	profile.PriorPaidOrders = count
	return profile
}

func (s *CallbackService) appendPayment(ctx context.Context, order *domain.Order, fields map[string]string) {
	installment, _ := strconv.Atoi(fields[webhook.FieldInstallment])

	payment := &domain.Payment{
		PaymentID:     uuid.New().String(),
		OrderID:       order.OrderID,
		Provider:      providerShopier,
		ProviderTxnID: fields[webhook.FieldTxnID],
		Status:        order.Status,
		Amount:        order.Amount,
		Currency:      "TRY",
		Installment:   installment,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.payments.AppendPayment(ctx, payment); err != nil {
		s.logger.Error("Failed to append payment record",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

// recordDelivery persists the delivery state and mirrors it onto the
// in-memory order so the settled event reports what was written.
func (s *CallbackService) recordDelivery(ctx context.Context, order *domain.Order, delivery domain.Delivery) {
	if err := s.orders.RecordDelivery(ctx, order.OrderID, delivery); err != nil {
		s.logger.Error("Failed to record delivery state",
			zap.String("order_id", order.OrderID),
			zap.String("delivery_status", string(delivery.Status)),
			zap.Error(err))
		return
	}
	order.Delivery = &delivery
}

func (s *CallbackService) publishSettled(order *domain.Order, assessment domain.RiskAssessment, fields map[string]string, requestID string) {
	deliveryStatus := ""
	if order.Delivery != nil {
		deliveryStatus = string(order.Delivery.Status)
	}

	event := events.PaymentSettledEvent{
		EventID:        uuid.New().String(),
		Type:           events.EventTypePaymentSettled,
		OrderID:        order.OrderID,
		Outcome:        string(order.Status),
		Provider:       providerShopier,
		ProviderTxnID:  fields[webhook.FieldTxnID],
		Amount:         order.Amount,
		RiskScore:      assessment.Score,
		RiskStatus:     string(assessment.Status),
		DeliveryStatus: deliveryStatus,
		Timestamp:      time.Now().UTC(),
		RequestID:      requestID,
	}

	if err := s.publisher.PublishSettled(event); err != nil {
		// eventual consistency: the order record is the source of truth
		s.logger.Error("Failed to publish settled event",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

func (s *CallbackService) publishHeld(order *domain.Order, assessment domain.RiskAssessment) {
	event := events.OrderHeldEvent{
		EventID:   uuid.New().String(),
		Type:      events.EventTypeOrderHeld,
		OrderID:   order.OrderID,
		Score:     assessment.Score,
		Reasons:   assessment.Reasons,
		Timestamp: time.Now().UTC(),
	}

	if err := s.publisher.PublishHeld(event); err != nil {
		s.logger.Error("Failed to publish held event",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

func (s *CallbackService) successFor(orderID string) string {
	return s.successPath + "?orderId=" + url.QueryEscape(orderID)
}

func (s *CallbackService) failureFor(orderID string) string {
	return s.failedPath + "?orderId=" + url.QueryEscape(orderID)
}

func (s *CallbackService) failureReason(reason string) string {
	return s.failedPath + "?reason=" + url.QueryEscape(reason)
}
