// FILE: internal/service/refresh_scheduler.go
package service

import (
	"context"
	"fmt"
	"time"

	"linkstride-client/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	DefaultRefreshSchedule = "@every 15m"
	refreshJobTimeout      = time.Minute
)

// RefreshScheduler keeps the subscription cache warm while somebody is signed in.
type RefreshScheduler struct {
	cron          *cron.Cron
	schedule      string
	sessions      ISessionService
	subscriptions ISubscriptionService
	logger        logger.ILogger
}

func NewRefreshScheduler(
	sessions ISessionService,
	subscriptions ISubscriptionService,
	log logger.ILogger,
	schedule string,
) *RefreshScheduler {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	cronLogger := cronLogAdapter{logger: log}
	return &RefreshScheduler{
		cron:          cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		schedule:      schedule,
		sessions:      sessions,
		subscriptions: subscriptions,
		logger:        log,
	}
}

func (s *RefreshScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshJobTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule subscription refresh %q: %w", s.schedule, err)
	}

	s.logger.Info("Scheduler", "Scheduled subscription refresh", map[string]interface{}{
		"schedule": s.schedule,
	})
	s.cron.Start()
	return nil
}

// Stop returns a context that is done once a running job has finished.
func (s *RefreshScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce refreshes the cache and reconciles the pending payment marker. Failures are logged only.
func (s *RefreshScheduler) RunOnce(ctx context.Context) {
	if !s.sessions.IsAuthenticated(ctx) {
		return
	}

	if err := s.subscriptions.Refresh(ctx); err != nil {
		s.logger.Warn("Scheduler", "Scheduled subscription refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	record, err := s.subscriptions.GetStatus(ctx, false)
	if err != nil || record.IsPro() {
		return
	}
	if _, err := s.subscriptions.SyncPendingPayment(ctx); err != nil {
		s.logger.Warn("Scheduler", "Pending payment sync failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// cronLogAdapter routes cron's own logging into ILogger.
type cronLogAdapter struct {
	logger logger.ILogger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("Scheduler", msg, kvToDetails(keysAndValues))
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	details := kvToDetails(keysAndValues)
	details["error"] = fmt.Sprint(err)
	a.logger.Error("Scheduler", msg, details)
}

func kvToDetails(keysAndValues []interface{}) map[string]interface{} {
	details := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		details[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return details
}
