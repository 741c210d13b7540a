// FILE: internal/dto/subscription_dto.go
package dto

import (
	"linkstride-client/internal/entity"

	"github.com/midtrans/midtrans-go/snap"
)

// --- Remote API payloads ---

// SubscriptionResponse is GET /api/subscription.
type SubscriptionResponse struct {
	Subscription *SubscriptionInfoDTO `json:"subscription"`
	Limits       *SubscriptionLimits  `json:"limits"`
}

type SubscriptionInfoDTO struct {
	Id        FlexibleID `json:"id"`
	PlanType  string     `json:"plan_type"`
	StartDate string     `json:"start_date,omitempty"`
	EndDate   *string    `json:"end_date,omitempty"`
}

type SubscriptionLimits struct {
	LinksPerDay       *int  `json:"links_per_day"`
	LinksCreatedToday *int  `json:"links_created_today"`
	CustomCodeAllowed *bool `json:"custom_code_allowed"`
	AnalyticsAllowed  *bool `json:"analytics_allowed"`
}

// CreateSubscriptionResponse is POST /api/subscription: a Midtrans Snap session.
type CreateSubscriptionResponse struct {
	snap.Response
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// PendingPaymentResponse is GET /api/subscription/pending-payment.
type PendingPaymentResponse struct {
	HasPendingPayment bool       `json:"hasPendingPayment"`
	Timestamp         int64      `json:"timestamp"`
	UserID            FlexibleID `json:"userId"`
	OrderID           string     `json:"orderId,omitempty"`
	PaymentID         string     `json:"paymentId,omitempty"`
}

// --- Gateway responses ---

type SubscriptionStatusResponse struct {
	State  entity.CacheState         `json:"state"`
	Record entity.SubscriptionRecord `json:"record"`
	// RemainingLinksToday is -1 when unlimited.
	RemainingLinksToday int `json:"remainingLinksToday"`
}

type PendingPaymentView struct {
	HasPendingPayment bool   `json:"hasPendingPayment"`
	OrderID           string `json:"orderId,omitempty"`
	PaymentID         string `json:"paymentId,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
}

type CheckoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	Token       string `json:"token,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
}

type PaymentOutcomeResponse struct {
	Status   string `json:"status"`
	IsPro    bool   `json:"isPro"`
	OrderID  string `json:"orderId,omitempty"`
	Headline string `json:"headline"`
	Message  string `json:"message"`
}

type PlanFeatureDTO struct {
	Name           string `json:"name"`
	IncludedInFree bool   `json:"includedInFree"`
	IncludedInPro  bool   `json:"includedInPro"`
}

type PlanDTO struct {
	PlanType     entity.PlanType `json:"planType"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	PriceMonthly int64           `json:"priceMonthly"`
	Currency     string          `json:"currency"`
	LinksPerDay  int             `json:"linksPerDay"`
	Current      bool            `json:"current"`
}

type PricingView struct {
	LoggedIn       bool             `json:"loggedIn"`
	CurrentPlan    entity.PlanType  `json:"currentPlan,omitempty"`
	UpgradeEnabled bool             `json:"upgradeEnabled"`
	Plans          []PlanDTO        `json:"plans"`
	Features       []PlanFeatureDTO `json:"features"`
}

type NavbarView struct {
	LoggedIn       bool                `json:"loggedIn"`
	IsPro          bool                `json:"isPro"`
	ShowPricing    bool                `json:"showPricing"`
	CacheState     entity.CacheState   `json:"cacheState"`
	PendingPayment *PendingPaymentView `json:"pendingPayment,omitempty"`
	User           *UserSummary        `json:"user,omitempty"`
}

// --- Gateway requests ---

// PaymentCallbackRequest is the payment return route: the status segment plus the
// query parameters Midtrans appends to the finish URL.
type PaymentCallbackRequest struct {
	Status            string `params:"status"`
	OrderID           string `query:"order_id"`
	StatusCode        string `query:"status_code"`
	TransactionStatus string `query:"transaction_status"`
}
