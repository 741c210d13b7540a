package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/repository/contract"
	"linkstride-client/internal/repository/implementation"
	"linkstride-client/internal/repository/memory"
	"linkstride-client/pkg/events"
	"linkstride-client/pkg/retry"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type subscriptionResult struct {
	res *dto.SubscriptionResponse
	err error
}

// fakeSubscriptionAPI replays results in order and repeats the last one.
type fakeSubscriptionAPI struct {
	mu         sync.Mutex
	results    []subscriptionResult
	calls      int
	gate       chan struct{}
	entered    chan struct{}
	pending    *dto.PendingPaymentResponse
	pendingErr error
}

func (f *fakeSubscriptionAPI) script(results ...subscriptionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
	f.calls = 0
}

func (f *fakeSubscriptionAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSubscriptionAPI) GetSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return nil, offline()
	}
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.res, r.err
}

func (f *fakeSubscriptionAPI) GetPendingPayment(ctx context.Context) (*dto.PendingPaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	if f.pending == nil {
		return &dto.PendingPaymentResponse{}, nil
	}
	return f.pending, nil
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func freePayload(createdToday int) *dto.SubscriptionResponse {
	return &dto.SubscriptionResponse{
		Subscription: &dto.SubscriptionInfoDTO{Id: "1", PlanType: "free"},
		Limits: &dto.SubscriptionLimits{
			LinksPerDay:       intPtr(3),
			LinksCreatedToday: intPtr(createdToday),
			CustomCodeAllowed: boolPtr(false),
			AnalyticsAllowed:  boolPtr(false),
		},
	}
}

func proPayload() *dto.SubscriptionResponse {
	return &dto.SubscriptionResponse{
		Subscription: &dto.SubscriptionInfoDTO{Id: "1", PlanType: "pro"},
		Limits: &dto.SubscriptionLimits{
			LinksPerDay:       intPtr(-1),
			LinksCreatedToday: intPtr(0),
			CustomCodeAllowed: boolPtr(true),
			AnalyticsAllowed:  boolPtr(true),
		},
	}
}

func ok(res *dto.SubscriptionResponse) subscriptionResult {
	return subscriptionResult{res: res}
}

func fail(err error) subscriptionResult {
	return subscriptionResult{err: err}
}

func offline() error {
	return apiclient.NewError(apiclient.KindNetwork, "network error", nil)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

type subscriptionFixture struct {
	svc       *subscriptionService
	api       *fakeSubscriptionAPI
	store     contract.StorageRepository
	sessions  contract.SessionRepository
	clock     *fakeClock
	sleeper   *recordingSleeper
	publisher *recordingPublisher
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()

	store, err := memory.NewStorageRepository("")
	require.NoError(t, err)

	f := &subscriptionFixture{
		api:       &fakeSubscriptionAPI{},
		store:     store,
		sessions:  implementation.NewSessionRepository(store),
		clock:     newFakeClock(),
		sleeper:   &recordingSleeper{},
		publisher: &recordingPublisher{},
	}

	svc := NewSubscriptionService(store, f.sessions, f.api, f.publisher, logger.NewNopLogger(), SubscriptionOptions{
		CacheTTL:        time.Hour,
		FreeLinksPerDay: 3,
		Now:             f.clock.Now,
		Retry: []retry.Option{
			retry.WithSleeper(f.sleeper.Sleep),
			retry.WithRandom(func(n int64) int64 { return 0 }),
		},
	})
	f.svc = svc.(*subscriptionService)
	return f
}

func (f *subscriptionFixture) signIn(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), &entity.Session{
		Token: "token-" + userID,
		User:  entity.User{Id: userID, Email: userID + "@example.com", Name: "User " + userID},
	}))
}

func (f *subscriptionFixture) signInUntil(t *testing.T, userID string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), &entity.Session{
		Token:     "token-" + userID,
		User:      entity.User{Id: userID, Email: userID + "@example.com", Name: "User " + userID},
		ExpiresAt: &expiresAt,
	}))
}

// failingStore fails reads of one key and otherwise delegates.
type failingStore struct {
	contract.StorageRepository
	failGet string
}

func (s *failingStore) Get(ctx context.Context, key string) (string, error) {
	if key == s.failGet {
		return "", errors.New("storage unavailable")
	}
	return s.StorageRepository.Get(ctx, key)
}

func (f *subscriptionFixture) get(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, err := f.store.Get(context.Background(), key)
	if err == contract.ErrKeyNotFound {
		return "", false
	}
	require.NoError(t, err)
	return v, true
}
