package mapper

import (
	"errors"
	"fmt"
	"strings"

	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
)

// ErrMalformedSubscription is returned when the remote payload is missing the fields a record needs.
var ErrMalformedSubscription = errors.New("malformed subscription payload")

type SubscriptionMapper struct {
	freeLinksPerDay int
}

func NewSubscriptionMapper(freeLinksPerDay int) *SubscriptionMapper {
	if freeLinksPerDay <= 0 {
		freeLinksPerDay = entity.DefaultFreeLinksPerDay
	}
	return &SubscriptionMapper{freeLinksPerDay: freeLinksPerDay}
}

// ToRecord validates the remote payload and builds the record the cache stores.
// Pro payloads are normalised so the pro invariant always holds.
func (m *SubscriptionMapper) ToRecord(res *dto.SubscriptionResponse) (*entity.SubscriptionRecord, error) {
	if res == nil || res.Subscription == nil {
		return nil, fmt.Errorf("%w: missing subscription", ErrMalformedSubscription)
	}

	plan := entity.PlanType(strings.ToLower(strings.TrimSpace(res.Subscription.PlanType)))
	if !plan.IsValid() {
		return nil, fmt.Errorf("%w: unknown plan_type %q", ErrMalformedSubscription, res.Subscription.PlanType)
	}

	createdToday := 0
	if res.Limits != nil && res.Limits.LinksCreatedToday != nil {
		createdToday = *res.Limits.LinksCreatedToday
		if createdToday < 0 {
			return nil, fmt.Errorf("%w: negative links_created_today", ErrMalformedSubscription)
		}
	}

	if plan == entity.PlanTypePro {
		record := entity.ProRecord(createdToday)
		return &record, nil
	}

	if res.Limits == nil || res.Limits.LinksPerDay == nil {
		return nil, fmt.Errorf("%w: missing limits.links_per_day", ErrMalformedSubscription)
	}

	return &entity.SubscriptionRecord{
		PlanType:          entity.PlanTypeFree,
		LinksPerDay:       *res.Limits.LinksPerDay,
		LinksCreatedToday: createdToday,
		CustomCodeAllowed: boolOr(res.Limits.CustomCodeAllowed, false),
		AnalyticsAllowed:  boolOr(res.Limits.AnalyticsAllowed, false),
	}, nil
}

// ToResponse renders a record in the remote payload shape, for optimistic writes.
func (m *SubscriptionMapper) ToResponse(r *entity.SubscriptionRecord) *dto.SubscriptionResponse {
	linksPerDay := r.LinksPerDay
	createdToday := r.LinksCreatedToday
	customCode := r.CustomCodeAllowed
	analytics := r.AnalyticsAllowed
	return &dto.SubscriptionResponse{
		Subscription: &dto.SubscriptionInfoDTO{PlanType: string(r.PlanType)},
		Limits: &dto.SubscriptionLimits{
			LinksPerDay:       &linksPerDay,
			LinksCreatedToday: &createdToday,
			CustomCodeAllowed: &customCode,
			AnalyticsAllowed:  &analytics,
		},
	}
}

func (m *SubscriptionMapper) ToSnapshot(r *entity.SubscriptionRecord) entity.StatusSnapshot {
	return entity.StatusSnapshot{IsPro: r.IsPro(), PlanType: r.PlanType}
}

// FromSnapshot rebuilds a minimal record from the boolean tier flag.
func (m *SubscriptionMapper) FromSnapshot(s entity.StatusSnapshot) *entity.SubscriptionRecord {
	record := entity.FallbackRecord(s.IsPro, m.freeLinksPerDay)
	return &record
}

func (m *SubscriptionMapper) ToStatusResponse(state entity.CacheState, r *entity.SubscriptionRecord) dto.SubscriptionStatusResponse {
	return dto.SubscriptionStatusResponse{
		State:               state,
		Record:              *r,
		RemainingLinksToday: r.RemainingLinksToday(),
	}
}

func (m *SubscriptionMapper) PendingToMarker(res *dto.PendingPaymentResponse) *entity.PendingPaymentMarker {
	if res == nil || !res.HasPendingPayment {
		return nil
	}
	return &entity.PendingPaymentMarker{
		HasPendingPayment: true,
		TimestampMs:       res.Timestamp,
		UserID:            res.UserID.String(),
		OrderID:           res.OrderID,
		PaymentID:         res.PaymentID,
	}
}

func (m *SubscriptionMapper) MarkerToView(marker *entity.PendingPaymentMarker) *dto.PendingPaymentView {
	if marker == nil {
		return nil
	}
	return &dto.PendingPaymentView{
		HasPendingPayment: marker.HasPendingPayment,
		OrderID:           marker.OrderID,
		PaymentID:         marker.PaymentID,
		CreatedAt:         marker.CreatedAt().UTC().Format(timeLayout),
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
