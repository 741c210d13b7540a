package entity

import "time"

type PlanType string

const (
	PlanTypeFree PlanType = "free"
	PlanTypePro  PlanType = "pro"
)

const (
	UnlimitedLinksPerDay   = -1
	DefaultFreeLinksPerDay = 3
)

func (p PlanType) IsValid() bool {
	return p == PlanTypeFree || p == PlanTypePro
}

// SubscriptionRecord is the tier the UI gates features on.
// A pro record always allows custom codes and analytics and has no daily quota.
type SubscriptionRecord struct {
	PlanType          PlanType `json:"planType"`
	LinksPerDay       int      `json:"linksPerDay"`
	LinksCreatedToday int      `json:"linksCreatedToday"`
	CustomCodeAllowed bool     `json:"customCodeAllowed"`
	AnalyticsAllowed  bool     `json:"analyticsAllowed"`
}

func (r *SubscriptionRecord) IsPro() bool {
	return r != nil && r.PlanType == PlanTypePro
}

// RemainingLinksToday returns -1 when unlimited.
func (r *SubscriptionRecord) RemainingLinksToday() int {
	if r.LinksPerDay == UnlimitedLinksPerDay {
		return UnlimitedLinksPerDay
	}
	remaining := r.LinksPerDay - r.LinksCreatedToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *SubscriptionRecord) DailyLimitReached() bool {
	return r.LinksPerDay != UnlimitedLinksPerDay && r.LinksCreatedToday >= r.LinksPerDay
}

// ProRecord returns a pro record carrying over today's usage counter.
func ProRecord(linksCreatedToday int) SubscriptionRecord {
	return SubscriptionRecord{
		PlanType:          PlanTypePro,
		LinksPerDay:       UnlimitedLinksPerDay,
		LinksCreatedToday: linksCreatedToday,
		CustomCodeAllowed: true,
		AnalyticsAllowed:  true,
	}
}

// FallbackRecord synthesizes a record when only the boolean tier survived in storage.
func FallbackRecord(isPro bool, freeLinksPerDay int) SubscriptionRecord {
	if isPro {
		return ProRecord(0)
	}
	if freeLinksPerDay <= 0 {
		freeLinksPerDay = DefaultFreeLinksPerDay
	}
	return SubscriptionRecord{
		PlanType:          PlanTypeFree,
		LinksPerDay:       freeLinksPerDay,
		LinksCreatedToday: 0,
		CustomCodeAllowed: false,
		AnalyticsAllowed:  false,
	}
}

// CacheEntry wraps a record with the moment it was fetched.
type CacheEntry struct {
	Record    SubscriptionRecord `json:"record"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

func (e *CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// StatusSnapshot is the simplified tier flag kept next to the full payload.
type StatusSnapshot struct {
	IsPro    bool     `json:"isPro"`
	PlanType PlanType `json:"planType,omitempty"`
}

// PendingPaymentMarker records a payment session that the server has not confirmed yet.
type PendingPaymentMarker struct {
	HasPendingPayment bool   `json:"hasPendingPayment"`
	TimestampMs       int64  `json:"timestamp"`
	UserID            string `json:"userId"`
	OrderID           string `json:"orderId,omitempty"`
	PaymentID         string `json:"paymentId,omitempty"`
}

func (m *PendingPaymentMarker) CreatedAt() time.Time {
	return time.UnixMilli(m.TimestampMs)
}

// IsValidFor reports whether the marker belongs to userID and is younger than ttl.
func (m *PendingPaymentMarker) IsValidFor(userID string, now time.Time, ttl time.Duration) bool {
	if m == nil || !m.HasPendingPayment {
		return false
	}
	if userID == "" || m.UserID != userID {
		return false
	}
	return now.Sub(m.CreatedAt()) < ttl
}

type CacheState string

const (
	CacheStateEmpty   CacheState = "empty"
	CacheStateFresh   CacheState = "fresh"
	CacheStateStale   CacheState = "stale"
	CacheStatePending CacheState = "pending"
)
