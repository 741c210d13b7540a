// FILE: internal/service/subscription_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
	"linkstride-client/internal/mapper"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/repository/contract"
	"linkstride-client/pkg/events"
	"linkstride-client/pkg/retry"
)

// Storage keys owned by the subscription cache. All four are cleared together.
const (
	KeySubscriptionStatus    = "subscription_status"
	KeySubscriptionTimestamp = "subscription_cache_timestamp"
	KeySubscriptionRaw       = "subscription_raw"
	KeyPendingPayment        = "pending_payment"
)

var subscriptionKeys = []string{KeySubscriptionStatus, KeySubscriptionTimestamp, KeySubscriptionRaw, KeyPendingPayment}

const (
	DefaultSubscriptionCacheTTL = time.Hour
	DefaultPendingPaymentTTL    = time.Hour
	backgroundRefreshTimeout    = 30 * time.Second
)

// SubscriptionAPI is the part of the remote API the cache reads from.
type SubscriptionAPI interface {
	GetSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	GetPendingPayment(ctx context.Context) (*dto.PendingPaymentResponse, error)
}

type ISubscriptionService interface {
	// GetStatus serves the cached record while fresh, otherwise fetches. On fetch failure it
	// falls back to whatever the cache still holds and only then returns the fetch error.
	GetStatus(ctx context.Context, forceRefresh bool) (*entity.SubscriptionRecord, error)
	// Peek never waits on the network when anything is cached; stale values trigger a background refresh.
	Peek(ctx context.Context) (*entity.SubscriptionRecord, entity.CacheState, error)
	Refresh(ctx context.Context) error
	State(ctx context.Context) entity.CacheState
	Invalidate(ctx context.Context) error
	MarkUpgraded(ctx context.Context) error
	GetPendingPayment(ctx context.Context) (*entity.PendingPaymentMarker, error)
	SetPendingPayment(ctx context.Context, orderID, paymentID string) (*entity.PendingPaymentMarker, error)
	ClearPendingPayment(ctx context.Context) error
	SyncPendingPayment(ctx context.Context) (*entity.PendingPaymentMarker, error)
	// WaitBackground blocks until revalidations started by Peek have finished.
	WaitBackground()
}

type SubscriptionOptions struct {
	CacheTTL          time.Duration
	PendingPaymentTTL time.Duration
	FreeLinksPerDay   int
	Retry             []retry.Option
	Now               func() time.Time
}

type subscriptionService struct {
	store     contract.StorageRepository
	sessions  contract.SessionRepository
	api       SubscriptionAPI
	publisher events.Publisher
	logger    logger.ILogger
	mapper    *mapper.SubscriptionMapper

	ttl        time.Duration
	pendingTTL time.Duration
	retryOpts  []retry.Option
	now        func() time.Time

	// mu serialises every read-modify-write of the subscription key group.
	mu           sync.Mutex
	// generation moves on every Invalidate; fetches started before it are not cached.
	generation   uint64
	inFlight     atomic.Int32
	revalidating atomic.Bool
	background   sync.WaitGroup
}

func NewSubscriptionService(
	store contract.StorageRepository,
	sessions contract.SessionRepository,
	api SubscriptionAPI,
	publisher events.Publisher,
	log logger.ILogger,
	opts SubscriptionOptions,
) ISubscriptionService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultSubscriptionCacheTTL
	}
	if opts.PendingPaymentTTL <= 0 {
		opts.PendingPaymentTTL = DefaultPendingPaymentTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	retryOpts := append([]retry.Option{
		retry.WithRetryIf(apiclient.IsRetryable),
		retry.WithLogger(log),
		retry.WithName("subscription"),
	}, opts.Retry...)

	return &subscriptionService{
		store:      store,
		sessions:   sessions,
		api:        api,
		publisher:  publisher,
		logger:     log,
		mapper:     mapper.NewSubscriptionMapper(opts.FreeLinksPerDay),
		ttl:        opts.CacheTTL,
		pendingTTL: opts.PendingPaymentTTL,
		retryOpts:  retryOpts,
		now:        opts.Now,
	}
}

// cached is one consistent read of the key group.
type cached struct {
	entry    *entity.CacheEntry
	snapshot *entity.StatusSnapshot
}

func (c cached) empty() bool {
	return c.entry == nil && c.snapshot == nil
}

func (s *subscriptionService) GetStatus(ctx context.Context, forceRefresh bool) (*entity.SubscriptionRecord, error) {
	if !forceRefresh {
		c, err := s.read(ctx)
		if err != nil {
			return nil, err
		}
		if c.entry != nil && c.entry.IsFresh(s.now(), s.ttl) {
			record := c.entry.Record
			return &record, nil
		}
	}

	record, fetchErr := s.fetchAndStore(ctx)
	if fetchErr == nil {
		return record, nil
	}

	fallback, err := s.fallback(ctx)
	if err != nil || fallback == nil {
		return nil, fetchErr
	}
	s.logger.Warn("Subscription", "Serving cached subscription after fetch failure", map[string]interface{}{
		"plan_type": string(fallback.PlanType),
		"error":     fetchErr.Error(),
	})
	return fallback, nil
}

func (s *subscriptionService) Peek(ctx context.Context) (*entity.SubscriptionRecord, entity.CacheState, error) {
	c, err := s.read(ctx)
	if err != nil {
		return nil, entity.CacheStateEmpty, err
	}

	if c.entry != nil && c.entry.IsFresh(s.now(), s.ttl) {
		record := c.entry.Record
		return &record, entity.CacheStateFresh, nil
	}

	if c.empty() {
		record, err := s.GetStatus(ctx, false)
		if err != nil {
			return nil, entity.CacheStateEmpty, err
		}
		return record, entity.CacheStateFresh, nil
	}

	s.revalidate(ctx)

	record := s.recordFrom(c)
	return record, entity.CacheStateStale, nil
}

// revalidate starts at most one background refresh at a time.
func (s *subscriptionService) revalidate(ctx context.Context) {
	if !s.revalidating.CompareAndSwap(false, true) {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.revalidating.Store(false)

		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundRefreshTimeout)
		defer cancel()

		if _, err := s.fetchAndStore(bgCtx); err != nil {
			s.logger.Warn("Subscription", "Background refresh failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

func (s *subscriptionService) WaitBackground() {
	s.background.Wait()
}

func (s *subscriptionService) Refresh(ctx context.Context) error {
	_, err := s.fetchAndStore(ctx)
	return err
}

func (s *subscriptionService) State(ctx context.Context) entity.CacheState {
	if s.inFlight.Load() > 0 {
		return entity.CacheStatePending
	}
	c, err := s.read(ctx)
	if err != nil || c.empty() {
		return entity.CacheStateEmpty
	}
	if c.entry != nil && c.entry.IsFresh(s.now(), s.ttl) {
		return entity.CacheStateFresh
	}
	return entity.CacheStateStale
}

func (s *subscriptionService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if err := s.store.Delete(ctx, subscriptionKeys...); err != nil {
		return fmt.Errorf("invalidate subscription cache: %w", err)
	}
	s.logger.Info("Subscription", "Subscription cache invalidated", nil)
	return nil
}

func (s *subscriptionService) MarkUpgraded(ctx context.Context) error {
	s.mu.Lock()

	linksToday := 0
	if c, err := s.readLocked(ctx); err == nil && c.entry != nil {
		linksToday = c.entry.Record.LinksCreatedToday
	}
	record := entity.ProRecord(linksToday)

	hadPending, err := s.writeLocked(ctx, s.mapper.ToResponse(&record), &record)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("mark upgraded: %w", err)
	}

	s.logger.Info("Subscription", "Subscription marked as pro", nil)
	s.publish(ctx, events.New(events.SubscriptionUpgraded, map[string]interface{}{
		"planType":   string(record.PlanType),
		"optimistic": true,
	}))
	if hadPending {
		s.publish(ctx, events.New(events.PaymentCleared, map[string]interface{}{"reason": "upgraded"}))
	}
	return nil
}

func (s *subscriptionService) GetPendingPayment(ctx context.Context) (*entity.PendingPaymentMarker, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marker, err := s.readMarkerLocked(ctx)
	if err != nil || marker == nil {
		return nil, err
	}

	if marker.IsValidFor(userID, s.now(), s.pendingTTL) {
		return marker, nil
	}

	reason := "expired"
	if marker.UserID != userID {
		reason = "user mismatch"
	}
	if err := s.store.Delete(ctx, KeyPendingPayment); err != nil {
		return nil, err
	}
	s.logger.Info("Subscription", "Discarded pending payment marker", map[string]interface{}{
		"reason": reason,
	})
	return nil, nil
}

func (s *subscriptionService) SetPendingPayment(ctx context.Context, orderID, paymentID string) (*entity.PendingPaymentMarker, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	marker := &entity.PendingPaymentMarker{
		HasPendingPayment: true,
		TimestampMs:       s.now().UnixMilli(),
		UserID:            userID,
		OrderID:           orderID,
		PaymentID:         paymentID,
	}

	s.mu.Lock()
	err = s.writeMarkerLocked(ctx, marker)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.PaymentPending, map[string]interface{}{
		"orderId":   orderID,
		"paymentId": paymentID,
	}))
	return marker, nil
}

func (s *subscriptionService) ClearPendingPayment(ctx context.Context) error {
	s.mu.Lock()
	err := s.store.Delete(ctx, KeyPendingPayment)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(ctx, events.New(events.PaymentCleared, map[string]interface{}{"reason": "cleared"}))
	return nil
}

// SyncPendingPayment replaces the local marker with the server's view, then
// applies the same ownership and age checks as GetPendingPayment.
func (s *subscriptionService) SyncPendingPayment(ctx context.Context) (*entity.PendingPaymentMarker, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	res, err := retry.Do(ctx, s.api.GetPendingPayment, s.retryNamed("pending-payment")...)
	if err != nil {
		return nil, err
	}

	marker := s.mapper.PendingToMarker(res)

	s.mu.Lock()
	if marker == nil {
		err = s.store.Delete(ctx, KeyPendingPayment)
	} else {
		if marker.UserID == "" {
			marker.UserID = userID
		}
		if marker.TimestampMs == 0 {
			marker.TimestampMs = s.now().UnixMilli()
		}
		err = s.writeMarkerLocked(ctx, marker)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return s.GetPendingPayment(ctx)
}

type fetched struct {
	payload *dto.SubscriptionResponse
	record  *entity.SubscriptionRecord
}

func (s *subscriptionService) fetchAndStore(ctx context.Context) (*entity.SubscriptionRecord, error) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	result, err := retry.Do(ctx, func(ctx context.Context) (fetched, error) {
		payload, err := s.api.GetSubscription(ctx)
		if err != nil {
			return fetched{}, err
		}
		record, err := s.mapper.ToRecord(payload)
		if err != nil {
			return fetched{}, &apiclient.APIError{Kind: apiclient.KindMalformed, Message: "subscription payload", Err: err}
		}
		return fetched{payload: payload, record: record}, nil
	}, s.retryOpts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		s.logger.Info("Subscription", "Discarded subscription fetched before invalidation", map[string]interface{}{
			"plan_type": string(result.record.PlanType),
		})
		return result.record, nil
	}
	previous, readErr := s.readLocked(ctx)
	hadPending, err := s.writeLocked(ctx, result.payload, result.record)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("store subscription: %w", err)
	}

	if readErr != nil {
		s.logger.Warn("Subscription", "Could not read previous subscription before storing", map[string]interface{}{
			"error": readErr.Error(),
		})
	}
	wasPro := previous.snapshot != nil && previous.snapshot.IsPro
	s.publish(ctx, events.New(events.SubscriptionUpdated, map[string]interface{}{
		"planType":          string(result.record.PlanType),
		"linksPerDay":       result.record.LinksPerDay,
		"linksCreatedToday": result.record.LinksCreatedToday,
	}))
	if result.record.IsPro() && !wasPro && readErr == nil {
		s.publish(ctx, events.New(events.SubscriptionUpgraded, map[string]interface{}{
			"planType":   string(result.record.PlanType),
			"optimistic": false,
		}))
	}
	if hadPending {
		s.publish(ctx, events.New(events.PaymentCleared, map[string]interface{}{"reason": "upgraded"}))
	}
	return result.record, nil
}

// fallback returns the last full record (even stale), else one rebuilt from the boolean snapshot.
func (s *subscriptionService) fallback(ctx context.Context) (*entity.SubscriptionRecord, error) {
	c, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if c.empty() {
		return nil, nil
	}
	return s.recordFrom(c), nil
}

func (s *subscriptionService) recordFrom(c cached) *entity.SubscriptionRecord {
	if c.entry != nil {
		record := c.entry.Record
		return &record
	}
	return s.mapper.FromSnapshot(*c.snapshot)
}

func (s *subscriptionService) read(ctx context.Context) (cached, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(ctx)
}

// readLocked treats unparsable keys as absent.
func (s *subscriptionService) readLocked(ctx context.Context) (cached, error) {
	var c cached

	raw, err := s.getKey(ctx, KeySubscriptionRaw)
	if err != nil {
		return c, err
	}
	if raw != "" {
		var payload dto.SubscriptionResponse
		if json.Unmarshal([]byte(raw), &payload) == nil {
			if record, err := s.mapper.ToRecord(&payload); err == nil {
				entry := &entity.CacheEntry{Record: *record}
				ts, err := s.getKey(ctx, KeySubscriptionTimestamp)
				if err != nil {
					return c, err
				}
				if ms, perr := strconv.ParseInt(ts, 10, 64); perr == nil {
					entry.FetchedAt = time.UnixMilli(ms)
				}
				c.entry = entry
			}
		}
	}

	status, err := s.getKey(ctx, KeySubscriptionStatus)
	if err != nil {
		return c, err
	}
	if status != "" {
		var snapshot entity.StatusSnapshot
		if json.Unmarshal([]byte(status), &snapshot) == nil {
			c.snapshot = &snapshot
		}
	}
	return c, nil
}

// writeLocked stores payload, snapshot and timestamp, and purges the pending
// marker when the record is pro. It reports whether a marker was purged.
func (s *subscriptionService) writeLocked(ctx context.Context, payload *dto.SubscriptionResponse, record *entity.SubscriptionRecord) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	status, err := json.Marshal(s.mapper.ToSnapshot(record))
	if err != nil {
		return false, err
	}

	if err := s.store.SetMany(ctx, map[string]string{
		KeySubscriptionRaw:       string(raw),
		KeySubscriptionStatus:    string(status),
		KeySubscriptionTimestamp: strconv.FormatInt(s.now().UnixMilli(), 10),
	}); err != nil {
		return false, err
	}

	if !record.IsPro() {
		return false, nil
	}
	marker, err := s.readMarkerLocked(ctx)
	if err != nil {
		return false, err
	}
	if err := s.store.Delete(ctx, KeyPendingPayment); err != nil {
		return false, err
	}
	return marker != nil, nil
}

func (s *subscriptionService) readMarkerLocked(ctx context.Context) (*entity.PendingPaymentMarker, error) {
	raw, err := s.getKey(ctx, KeyPendingPayment)
	if err != nil || raw == "" {
		return nil, err
	}
	var marker entity.PendingPaymentMarker
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		// An unreadable marker is the same as an invalid one.
		return &entity.PendingPaymentMarker{}, nil
	}
	return &marker, nil
}

func (s *subscriptionService) writeMarkerLocked(ctx context.Context, marker *entity.PendingPaymentMarker) error {
	data, err := json.Marshal(marker)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, KeyPendingPayment, string(data))
}

func (s *subscriptionService) getKey(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, contract.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}

func (s *subscriptionService) currentUserID(ctx context.Context) (string, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	if session == nil || session.IsExpired(s.now()) {
		return "", nil
	}
	return session.User.Id, nil
}

func (s *subscriptionService) retryNamed(name string) []retry.Option {
	opts := make([]retry.Option, 0, len(s.retryOpts)+1)
	opts = append(opts, s.retryOpts...)
	return append(opts, retry.WithName(name))
}

func (s *subscriptionService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.publisher, s.logger, event)
}
