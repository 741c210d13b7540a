package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
	"linkstride-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatusServesFreshEntryUntilTTL(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.api.script(ok(freePayload(1)))

	first, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, entity.PlanTypeFree, first.PlanType)
	assert.Equal(t, 1, f.api.Calls())
	assert.Equal(t, entity.CacheStateFresh, f.svc.State(ctx))

	f.clock.Advance(time.Hour - time.Millisecond)
	cached, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1, f.api.Calls(), "fresh entry must not hit the network")

	f.clock.Advance(2 * time.Millisecond)
	assert.Equal(t, entity.CacheStateStale, f.svc.State(ctx))
	_, err = f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.api.Calls(), "stale entry must trigger a refresh")
}

func TestGetStatusForceRefreshBypassesFreshEntry(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.api.script(ok(freePayload(0)), ok(freePayload(2)))

	_, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)

	record, err := f.svc.GetStatus(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, record.LinksCreatedToday)
	assert.Equal(t, 2, f.api.Calls())
}

func TestGetStatusPersistsKeyGroup(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.api.script(ok(freePayload(2)))

	_, err := f.svc.GetStatus(context.Background(), false)
	require.NoError(t, err)

	status, found := f.get(t, KeySubscriptionStatus)
	require.True(t, found)
	assert.JSONEq(t, `{"isPro":false,"planType":"free"}`, status)

	ts, found := f.get(t, KeySubscriptionTimestamp)
	require.True(t, found)
	assert.Equal(t, strconv.FormatInt(baseTime.UnixMilli(), 10), ts)

	raw, found := f.get(t, KeySubscriptionRaw)
	require.True(t, found)
	var payload dto.SubscriptionResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, "free", payload.Subscription.PlanType)
}

func TestMarkUpgradedWinsOverFreshFreeEntry(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.signIn(t, "u-1")
	f.api.script(ok(freePayload(2)))

	_, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	_, err = f.svc.SetPendingPayment(ctx, "ORD-1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkUpgraded(ctx))

	record, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, entity.ProRecord(2), *record)
	assert.Equal(t, 1, f.api.Calls())

	_, found := f.get(t, KeyPendingPayment)
	assert.False(t, found, "upgrade must purge the pending marker")

	assert.Contains(t, f.publisher.Types(), events.SubscriptionUpgraded)
	assert.Contains(t, f.publisher.Types(), events.PaymentCleared)
}

func TestInvalidateLeavesNothingBehind(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.signIn(t, "u-1")
	f.api.script(ok(proPayload()))

	_, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	_, err = f.svc.SetPendingPayment(ctx, "ORD-1", "PAY-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Invalidate(ctx))
	for _, key := range []string{KeySubscriptionStatus, KeySubscriptionTimestamp, KeySubscriptionRaw, KeyPendingPayment} {
		_, found := f.get(t, key)
		assert.False(t, found, key)
	}
	assert.Equal(t, entity.CacheStateEmpty, f.svc.State(ctx))

	f.api.script(fail(offline()))
	record, err := f.svc.GetStatus(ctx, false)
	assert.Nil(t, record)
	assert.True(t, apiclient.IsKind(err, apiclient.KindNetwork))
}

func TestGetStatusFallsBackToStaleRecord(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.api.script(ok(freePayload(2)))

	_, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Hour)
	f.api.script(fail(offline()))

	record, err := f.svc.GetStatus(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionRecord{PlanType: entity.PlanTypeFree, LinksPerDay: 3, LinksCreatedToday: 2}, *record)
	assert.Equal(t, 4, f.api.Calls(), "default policy retries three times")
	assert.Equal(t, entity.CacheStateStale, f.svc.State(ctx))
}

func TestGetStatusSynthesisesFromSnapshotWhenOffline(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, KeySubscriptionStatus, `{"isPro":true}`))
	require.NoError(t, f.store.Set(ctx, KeySubscriptionTimestamp, "1"))
	f.api.script(fail(offline()))

	record, err := f.svc.GetStatus(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionRecord{
		PlanType:          entity.PlanTypePro,
		LinksPerDay:       -1,
		LinksCreatedToday: 0,
		CustomCodeAllowed: true,
		AnalyticsAllowed:  true,
	}, *record)
}

func TestGetStatusRetriesThenStoresPro(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.signIn(t, "u-1")
	_, err := f.svc.SetPendingPayment(ctx, "ORD-7", "")
	require.NoError(t, err)

	f.api.script(fail(offline()), fail(offline()), ok(proPayload()))

	record, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.True(t, record.IsPro())
	assert.Equal(t, 3, f.api.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeper.Delays())

	assert.Equal(t, entity.CacheStateFresh, f.svc.State(ctx))
	marker, err := f.svc.GetPendingPayment(ctx)
	require.NoError(t, err)
	assert.Nil(t, marker)
	_, found := f.get(t, KeyPendingPayment)
	assert.False(t, found)

	assert.Contains(t, f.publisher.Types(), events.SubscriptionUpgraded)
}

func TestGetStatusDoesNotRetryUnauthorized(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.api.script(fail(&apiclient.APIError{Kind: apiclient.KindUnauthorized, StatusCode: 401}))

	_, err := f.svc.GetStatus(context.Background(), false)
	assert.True(t, apiclient.IsKind(err, apiclient.KindUnauthorized))
	assert.Equal(t, 1, f.api.Calls())
	assert.Empty(t, f.sleeper.Delays())
}

func TestGetStatusTreatsMalformedPayloadAsFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, KeySubscriptionStatus, `{"isPro":false}`))

	broken := &dto.SubscriptionResponse{Subscription: &dto.SubscriptionInfoDTO{PlanType: "free"}}
	f.api.script(ok(broken))

	record, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, entity.FallbackRecord(false, 3), *record)
	assert.Equal(t, 4, f.api.Calls())

	_, found := f.get(t, KeySubscriptionRaw)
	assert.False(t, found, "a malformed payload is never cached")
}

func TestPendingPaymentOwnershipAndExpiry(t *testing.T) {
	tests := []struct {
		name       string
		marker     entity.PendingPaymentMarker
		advance    time.Duration
		sessionTTL time.Duration
		wantValid  bool
	}{
		{
			name:      "same user within an hour",
			marker:    entity.PendingPaymentMarker{HasPendingPayment: true, UserID: "u-1", OrderID: "ORD-1"},
			advance:   59 * time.Minute,
			wantValid: true,
		},
		{
			name:    "other user",
			marker:  entity.PendingPaymentMarker{HasPendingPayment: true, UserID: "u-2"},
			advance: time.Minute,
		},
		{
			name:    "older than an hour",
			marker:  entity.PendingPaymentMarker{HasPendingPayment: true, UserID: "u-1"},
			advance: time.Hour + time.Millisecond,
		},
		{
			name:       "session expired",
			marker:     entity.PendingPaymentMarker{HasPendingPayment: true, UserID: "u-1", OrderID: "ORD-1"},
			advance:    31 * time.Minute,
			sessionTTL: 30 * time.Minute,
		},
		{
			name:    "flag cleared",
			marker:  entity.PendingPaymentMarker{HasPendingPayment: false, UserID: "u-1"},
			advance: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriptionFixture(t)
			ctx := context.Background()
			if tt.sessionTTL > 0 {
				f.signInUntil(t, "u-1", f.clock.Now().Add(tt.sessionTTL))
			} else {
				f.signIn(t, "u-1")
			}

			m := tt.marker
			m.TimestampMs = f.clock.Now().UnixMilli()
			data, _ := json.Marshal(m)
			require.NoError(t, f.store.Set(ctx, KeyPendingPayment, string(data)))
			f.clock.Advance(tt.advance)

			got, err := f.svc.GetPendingPayment(ctx)
			require.NoError(t, err)
			_, stored := f.get(t, KeyPendingPayment)

			if tt.wantValid {
				require.NotNil(t, got)
				assert.Equal(t, "ORD-1", got.OrderID)
				assert.True(t, stored)
				return
			}
			assert.Nil(t, got)
			assert.False(t, stored, "invalid markers are purged")
		})
	}
}

func TestGetPendingPaymentCorruptMarkerIsPurged(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.signIn(t, "u-1")
	require.NoError(t, f.store.Set(ctx, KeyPendingPayment, `{broken`))

	got, err := f.svc.GetPendingPayment(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, stored := f.get(t, KeyPendingPayment)
	assert.False(t, stored)
}

func TestSetPendingPaymentRequiresSession(t *testing.T) {
	f := newSubscriptionFixture(t)
	_, err := f.svc.SetPendingPayment(context.Background(), "ORD-1", "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSetPendingPaymentRejectsExpiredSession(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.signInUntil(t, "u-1", f.clock.Now().Add(-time.Minute))

	_, err := f.svc.SetPendingPayment(context.Background(), "ORD-1", "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, stored := f.get(t, KeyPendingPayment)
	assert.False(t, stored)
}

func TestSyncPendingPayment(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.signIn(t, "42")

	f.api.pending = &dto.PendingPaymentResponse{
		HasPendingPayment: true,
		Timestamp:         f.clock.Now().Add(-10 * time.Minute).UnixMilli(),
		UserID:            "42",
		OrderID:           "ORD-42",
	}
	marker, err := f.svc.SyncPendingPayment(ctx)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.Equal(t, "ORD-42", marker.OrderID)

	f.api.pending = nil
	marker, err = f.svc.SyncPendingPayment(ctx)
	require.NoError(t, err)
	assert.Nil(t, marker)
	_, stored := f.get(t, KeyPendingPayment)
	assert.False(t, stored)
}

func TestPeekServesStaleAndRevalidates(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.api.script(ok(freePayload(0)))

	_, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	f.api.script(ok(proPayload()))
	record, state, err := f.svc.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStateStale, state)
	assert.Equal(t, entity.PlanTypeFree, record.PlanType)

	f.svc.WaitBackground()
	record, state, err = f.svc.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStateFresh, state)
	assert.True(t, record.IsPro())
}

func TestPeekSwallowsBackgroundFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, KeySubscriptionStatus, `{"isPro":false}`))
	f.api.script(fail(offline()))

	record, state, err := f.svc.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStateStale, state)
	assert.Equal(t, entity.PlanTypeFree, record.PlanType)

	f.svc.WaitBackground()
	assert.Equal(t, entity.CacheStateStale, f.svc.State(ctx))
}

func TestPeekOnEmptyCacheFetches(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.api.script(fail(offline()))

	_, state, err := f.svc.Peek(context.Background())
	assert.Error(t, err)
	assert.Equal(t, entity.CacheStateEmpty, state)
}

func TestStateIsPendingWhileRefreshInFlight(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	gate := make(chan struct{})
	f.api.gate = gate
	f.api.script(ok(freePayload(0)))

	done := make(chan error, 1)
	go func() { done <- f.svc.Refresh(ctx) }()

	require.Eventually(t, func() bool {
		return f.svc.State(ctx) == entity.CacheStatePending
	}, time.Second, 5*time.Millisecond)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, entity.CacheStateFresh, f.svc.State(ctx))
}

func TestOverlappingRefreshesAreLastWriteWins(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.api.script(ok(freePayload(1)))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.svc.GetStatus(ctx, true)
			errs <- err
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, 2, f.api.Calls())
	record, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, record.LinksCreatedToday)
}

func TestFetchStartedBeforeInvalidateIsNotCached(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	f.api.gate = gate
	f.api.entered = entered
	f.api.script(ok(proPayload()))

	type result struct {
		record *entity.SubscriptionRecord
		err    error
	}
	done := make(chan result, 1)
	go func() {
		record, err := f.svc.GetStatus(ctx, true)
		done <- result{record, err}
	}()

	<-entered
	require.NoError(t, f.svc.Invalidate(ctx))
	close(gate)

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.record.IsPro(), "the caller still gets what it fetched")

	assert.Equal(t, entity.CacheStateEmpty, f.svc.State(ctx))
	for _, key := range subscriptionKeys {
		_, present := f.get(t, key)
		assert.False(t, present, key)
	}
	assert.NotContains(t, f.publisher.Types(), events.SubscriptionUpdated)
}

func TestFetchAfterInvalidateIsCached(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.api.script(ok(freePayload(0)))

	require.NoError(t, f.svc.Invalidate(ctx))
	_, err := f.svc.GetStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, entity.CacheStateFresh, f.svc.State(ctx))
}

func TestUpgradeEventSkippedWhenPreviousStateUnreadable(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.svc.store = &failingStore{StorageRepository: f.store, failGet: KeySubscriptionStatus}
	f.api.script(ok(proPayload()))

	require.NoError(t, f.svc.Refresh(ctx))

	types := f.publisher.Types()
	assert.Contains(t, types, events.SubscriptionUpdated)
	assert.NotContains(t, types, events.SubscriptionUpgraded)
}
