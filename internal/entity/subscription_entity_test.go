package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackRecord(t *testing.T) {
	pro := FallbackRecord(true, 3)
	assert.Equal(t, SubscriptionRecord{
		PlanType:          PlanTypePro,
		LinksPerDay:       -1,
		LinksCreatedToday: 0,
		CustomCodeAllowed: true,
		AnalyticsAllowed:  true,
	}, pro)

	free := FallbackRecord(false, 0)
	assert.Equal(t, PlanTypeFree, free.PlanType)
	assert.Equal(t, DefaultFreeLinksPerDay, free.LinksPerDay)
	assert.False(t, free.CustomCodeAllowed)
	assert.False(t, free.AnalyticsAllowed)
}

func TestSubscriptionRecordQuota(t *testing.T) {
	tests := []struct {
		name          string
		record        SubscriptionRecord
		wantRemaining int
		wantReached   bool
	}{
		{name: "pro is unlimited", record: ProRecord(50), wantRemaining: -1, wantReached: false},
		{name: "free with room", record: SubscriptionRecord{PlanType: PlanTypeFree, LinksPerDay: 3, LinksCreatedToday: 1}, wantRemaining: 2},
		{name: "free at limit", record: SubscriptionRecord{PlanType: PlanTypeFree, LinksPerDay: 3, LinksCreatedToday: 3}, wantRemaining: 0, wantReached: true},
		{name: "free over limit", record: SubscriptionRecord{PlanType: PlanTypeFree, LinksPerDay: 3, LinksCreatedToday: 7}, wantRemaining: 0, wantReached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRemaining, tt.record.RemainingLinksToday())
			assert.Equal(t, tt.wantReached, tt.record.DailyLimitReached())
		})
	}
}

func TestCacheEntryIsFresh(t *testing.T) {
	fetched := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	entry := CacheEntry{Record: ProRecord(0), FetchedAt: fetched}

	assert.True(t, entry.IsFresh(fetched.Add(time.Hour-time.Millisecond), time.Hour))
	assert.False(t, entry.IsFresh(fetched.Add(time.Hour), time.Hour))
	assert.False(t, entry.IsFresh(fetched.Add(time.Hour+time.Millisecond), time.Hour))
}

func TestPendingPaymentMarkerIsValidFor(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	marker := &PendingPaymentMarker{
		HasPendingPayment: true,
		TimestampMs:       now.Add(-30 * time.Minute).UnixMilli(),
		UserID:            "42",
	}

	assert.True(t, marker.IsValidFor("42", now, time.Hour))
	assert.False(t, marker.IsValidFor("43", now, time.Hour))
	assert.False(t, marker.IsValidFor("", now, time.Hour))
	assert.False(t, marker.IsValidFor("42", now.Add(31*time.Minute), time.Hour))

	var nilMarker *PendingPaymentMarker
	assert.False(t, nilMarker.IsValidFor("42", now, time.Hour))
}
