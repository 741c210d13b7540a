// FILE: internal/service/view_service.go
package service

import (
	"context"

	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
	"linkstride-client/internal/mapper"
	"linkstride-client/internal/pkg/logger"
)

// IViewService assembles the view models the UI renders directly.
type IViewService interface {
	Navbar(ctx context.Context) (*dto.NavbarView, error)
	Pricing(ctx context.Context) (*dto.PricingView, error)
}

type viewService struct {
	sessions      ISessionService
	subscriptions ISubscriptionService
	payments      IPaymentService
	logger        logger.ILogger
	subMapper     *mapper.SubscriptionMapper
	userMapper    *mapper.UserMapper
}

func NewViewService(
	sessions ISessionService,
	subscriptions ISubscriptionService,
	payments IPaymentService,
	log logger.ILogger,
	freeLinksPerDay int,
) IViewService {
	return &viewService{
		sessions:      sessions,
		subscriptions: subscriptions,
		payments:      payments,
		logger:        log,
		subMapper:     mapper.NewSubscriptionMapper(freeLinksPerDay),
		userMapper:    mapper.NewUserMapper(),
	}
}

// Navbar never blocks on the network once something is cached.
func (s *viewService) Navbar(ctx context.Context) (*dto.NavbarView, error) {
	user, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &dto.NavbarView{ShowPricing: true, CacheState: entity.CacheStateEmpty}, nil
	}

	view := &dto.NavbarView{
		LoggedIn:    true,
		ShowPricing: true,
		CacheState:  entity.CacheStateEmpty,
		User:        s.userMapper.ToSummary(user),
	}

	record, state, err := s.subscriptions.Peek(ctx)
	if err != nil {
		s.logger.Warn("View", "Navbar rendered without subscription", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		view.IsPro = record.IsPro()
		view.ShowPricing = !view.IsPro
		view.CacheState = state
	}

	if !view.IsPro {
		marker, err := s.subscriptions.GetPendingPayment(ctx)
		if err != nil {
			return nil, err
		}
		view.PendingPayment = s.subMapper.MarkerToView(marker)
	}
	return view, nil
}

func (s *viewService) Pricing(ctx context.Context) (*dto.PricingView, error) {
	plans, err := s.payments.Plans(ctx)
	if err != nil {
		return nil, err
	}

	view := &dto.PricingView{
		LoggedIn: s.sessions.IsAuthenticated(ctx),
		Plans:    plans,
		Features: s.payments.Features(),
	}
	for _, p := range plans {
		if p.Current {
			view.CurrentPlan = p.PlanType
		}
	}
	// Signed-out visitors can still press upgrade; the gateway sends them to login.
	view.UpgradeEnabled = view.CurrentPlan != entity.PlanTypePro
	return view, nil
}
