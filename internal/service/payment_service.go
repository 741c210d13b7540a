// FILE: internal/service/payment_service.go
package service

import (
	"context"
	"strings"

	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
	"linkstride-client/internal/pkg/logger"

	"github.com/midtrans/midtrans-go"
)

const (
	PaymentStatusSuccess = "success"
	PaymentStatusPending = "pending"
	PaymentStatusError   = "error"

	ProPriceMonthly = 7000
	PlanCurrency    = "IDR"
)

// CheckoutAPI is the part of the remote API that opens a payment session.
type CheckoutAPI interface {
	CreateSubscription(ctx context.Context) (*dto.CreateSubscriptionResponse, error)
}

type IPaymentService interface {
	Plans(ctx context.Context) ([]dto.PlanDTO, error)
	Features() []dto.PlanFeatureDTO
	Checkout(ctx context.Context) (*dto.CheckoutResponse, error)
	HandleCallback(ctx context.Context, req *dto.PaymentCallbackRequest) (*dto.PaymentOutcomeResponse, error)
}

type paymentService struct {
	api             CheckoutAPI
	sessions        ISessionService
	subscriptions   ISubscriptionService
	logger          logger.ILogger
	env             midtrans.EnvironmentType
	freeLinksPerDay int
}

func NewPaymentService(
	api CheckoutAPI,
	sessions ISessionService,
	subscriptions ISubscriptionService,
	log logger.ILogger,
	isProduction bool,
	freeLinksPerDay int,
) IPaymentService {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}
	if freeLinksPerDay <= 0 {
		freeLinksPerDay = entity.DefaultFreeLinksPerDay
	}
	return &paymentService{
		api:             api,
		sessions:        sessions,
		subscriptions:   subscriptions,
		logger:          log,
		env:             env,
		freeLinksPerDay: freeLinksPerDay,
	}
}

func (s *paymentService) catalogue() []dto.PlanDTO {
	return []dto.PlanDTO{
		{
			PlanType:     entity.PlanTypeFree,
			Name:         "Free",
			Description:  "Short links for personal use",
			PriceMonthly: 0,
			Currency:     PlanCurrency,
			LinksPerDay:  s.freeLinksPerDay,
		},
		{
			PlanType:     entity.PlanTypePro,
			Name:         "Pro",
			Description:  "Unlimited links with custom codes and analytics",
			PriceMonthly: ProPriceMonthly,
			Currency:     PlanCurrency,
			LinksPerDay:  entity.UnlimitedLinksPerDay,
		},
	}
}

// Plans returns the catalogue with the current plan flagged. Signed-out callers get no flag.
func (s *paymentService) Plans(ctx context.Context) ([]dto.PlanDTO, error) {
	plans := s.catalogue()
	if !s.sessions.IsAuthenticated(ctx) {
		return plans, nil
	}

	record, _, err := s.subscriptions.Peek(ctx)
	if err != nil {
		s.logger.Warn("Payment", "Plans served without current plan", map[string]interface{}{
			"error": err.Error(),
		})
		return plans, nil
	}
	for i := range plans {
		plans[i].Current = plans[i].PlanType == record.PlanType
	}
	return plans, nil
}

func (s *paymentService) Features() []dto.PlanFeatureDTO {
	return []dto.PlanFeatureDTO{
		{Name: "Short link creation", IncludedInFree: true, IncludedInPro: true},
		{Name: "Daily link quota", IncludedInFree: true, IncludedInPro: true},
		{Name: "Custom codes", IncludedInFree: false, IncludedInPro: true},
		{Name: "Analytics dashboard", IncludedInFree: false, IncludedInPro: true},
		{Name: "Traffic statistics", IncludedInFree: false, IncludedInPro: true},
		{Name: "No daily quota", IncludedInFree: false, IncludedInPro: true},
		{Name: "Premium support", IncludedInFree: false, IncludedInPro: true},
	}
}

func (s *paymentService) Checkout(ctx context.Context) (*dto.CheckoutResponse, error) {
	if !s.sessions.IsAuthenticated(ctx) {
		return nil, ErrNotAuthenticated
	}

	record, err := s.subscriptions.GetStatus(ctx, false)
	if err != nil {
		return nil, err
	}
	if record.IsPro() {
		return nil, ErrAlreadyPro
	}

	res, err := s.api.CreateSubscription(ctx)
	if err != nil {
		return nil, err
	}

	redirectURL := res.RedirectURL
	if redirectURL == "" {
		redirectURL = s.env.SnapURL() + "/v4/redirection/" + res.Token
	}

	orderID := res.OrderID
	if _, err := s.subscriptions.SetPendingPayment(ctx, orderID, res.PaymentID); err != nil {
		return nil, err
	}

	s.logger.Info("Payment", "Checkout started", map[string]interface{}{
		"order_id": orderID,
	})
	return &dto.CheckoutResponse{
		RedirectURL: redirectURL,
		Token:       res.Token,
		OrderID:     orderID,
	}, nil
}

// HandleCallback settles local state after the payment page returns to us.
func (s *paymentService) HandleCallback(ctx context.Context, req *dto.PaymentCallbackRequest) (*dto.PaymentOutcomeResponse, error) {
	if !s.sessions.IsAuthenticated(ctx) {
		return nil, ErrNotAuthenticated
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	out := &dto.PaymentOutcomeResponse{Status: status, OrderID: req.OrderID}

	switch status {
	case PaymentStatusSuccess:
		record, err := s.subscriptions.GetStatus(ctx, true)
		if err != nil {
			s.logger.Warn("Payment", "Subscription refresh after payment failed", map[string]interface{}{
				"order_id": req.OrderID,
				"error":    err.Error(),
			})
		}
		out.IsPro = record.IsPro()
		if !out.IsPro && isSettled(req.TransactionStatus) {
			if err := s.subscriptions.MarkUpgraded(ctx); err != nil {
				return nil, err
			}
			out.IsPro = true
		}
		out.Headline = "Payment successful"
		if out.IsPro {
			out.Message = "Your account is now Pro. Custom codes, analytics and unlimited links are unlocked."
		} else {
			out.Message = "We received your payment and are activating your subscription."
		}

	case PaymentStatusPending:
		out.Headline = "Payment pending"
		out.Message = "Your payment is pending. Your subscription updates as soon as it completes."

	case PaymentStatusError:
		if err := s.subscriptions.ClearPendingPayment(ctx); err != nil {
			return nil, err
		}
		out.Headline = "Payment failed"
		out.Message = "Something went wrong while processing your payment. Please try again."

	default:
		return nil, ErrUnknownPaymentStatus
	}

	s.logger.Info("Payment", "Payment callback handled", map[string]interface{}{
		"status":             status,
		"order_id":           req.OrderID,
		"transaction_status": req.TransactionStatus,
		"is_pro":             out.IsPro,
	})
	return out, nil
}

// isSettled reports whether Midtrans considers the money captured.
func isSettled(transactionStatus string) bool {
	switch strings.ToLower(transactionStatus) {
	case "settlement", "capture":
		return true
	}
	return false
}
