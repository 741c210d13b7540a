// FILE: internal/service/link_service.go
package service

import (
	"context"
	"strings"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/dto"
	"linkstride-client/internal/mapper"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/pkg/retry"
)

// LinkAPI is the part of the remote API that manages short links.
type LinkAPI interface {
	CreateShortURL(ctx context.Context, originalURL, customCode string) (*dto.URLResponse, error)
	ListURLs(ctx context.Context) ([]dto.URLResponse, error)
	URLStats(ctx context.Context, code string) (*dto.URLStatsResponse, error)
	DeleteURL(ctx context.Context, code string) error
	DashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
}

type ILinkService interface {
	Create(ctx context.Context, req *dto.CreateLinkRequest) (*dto.LinkDTO, error)
	List(ctx context.Context, search string) (*dto.LinkListResponse, error)
	Delete(ctx context.Context, code string) error
	Stats(ctx context.Context, code string) (*dto.LinkStatsDTO, error)
	Dashboard(ctx context.Context) (*dto.DashboardDTO, error)
}

type linkService struct {
	api           LinkAPI
	subscriptions ISubscriptionService
	logger        logger.ILogger
	linkMapper    *mapper.LinkMapper
	subMapper     *mapper.SubscriptionMapper
	retryOpts     []retry.Option
}

func NewLinkService(
	api LinkAPI,
	subscriptions ISubscriptionService,
	log logger.ILogger,
	freeLinksPerDay int,
	retryOpts ...retry.Option,
) ILinkService {
	return &linkService{
		api:           api,
		subscriptions: subscriptions,
		logger:        log,
		linkMapper:    mapper.NewLinkMapper(),
		subMapper:     mapper.NewSubscriptionMapper(freeLinksPerDay),
		retryOpts:     retryOpts,
	}
}

func (s *linkService) Create(ctx context.Context, req *dto.CreateLinkRequest) (*dto.LinkDTO, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.CustomAlias = strings.TrimSpace(req.CustomAlias)
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}

	record, err := s.subscriptions.GetStatus(ctx, false)
	if err != nil {
		return nil, err
	}
	if req.CustomAlias != "" && !record.CustomCodeAllowed {
		return nil, ErrCustomCodeNotAllowed
	}
	if record.DailyLimitReached() {
		return nil, ErrDailyLimitReached
	}

	res, err := s.api.CreateShortURL(ctx, req.URL, req.CustomAlias)
	if err != nil {
		if apiclient.IsUpgradeRequired(err) {
			return nil, ErrCustomCodeNotAllowed
		}
		return nil, err
	}

	// The server counted the new link; pull the quota counter forward.
	if _, err := s.subscriptions.GetStatus(ctx, true); err != nil {
		s.logger.Warn("Link", "Subscription refresh after create failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.logger.Info("Link", "Short link created", map[string]interface{}{
		"code":   res.Code,
		"custom": req.CustomAlias != "",
	})
	out := s.linkMapper.ToDTO(s.linkMapper.ToEntity(res))
	return &out, nil
}

func (s *linkService) List(ctx context.Context, search string) (*dto.LinkListResponse, error) {
	list, err := s.api.ListURLs(ctx)
	if err != nil {
		return nil, err
	}

	links := s.linkMapper.ToEntities(list)
	out := &dto.LinkListResponse{Links: make([]dto.LinkDTO, 0, len(links)), Total: len(links)}
	for _, l := range links {
		if l.Matches(search) {
			out.Links = append(out.Links, s.linkMapper.ToDTO(l))
		}
	}
	out.Shown = len(out.Links)
	return out, nil
}

func (s *linkService) Delete(ctx context.Context, code string) error {
	if err := serverutils.ValidateVar("code", code, "required"); err != nil {
		return err
	}
	if err := s.api.DeleteURL(ctx, code); err != nil {
		return err
	}
	s.logger.Info("Link", "Short link deleted", map[string]interface{}{"code": code})
	return nil
}

func (s *linkService) Stats(ctx context.Context, code string) (*dto.LinkStatsDTO, error) {
	if err := serverutils.ValidateVar("code", code, "required"); err != nil {
		return nil, err
	}

	record, err := s.subscriptions.GetStatus(ctx, false)
	if err != nil {
		return nil, err
	}
	if !record.AnalyticsAllowed {
		return nil, ErrUpgradeRequired
	}

	res, err := retry.Do(ctx, func(ctx context.Context) (*dto.URLStatsResponse, error) {
		return s.api.URLStats(ctx, code)
	}, s.retryNamed("link-stats")...)
	if err != nil {
		if apiclient.IsUpgradeRequired(err) {
			return nil, ErrUpgradeRequired
		}
		return nil, err
	}

	out := s.linkMapper.StatsToDTO(s.linkMapper.StatsToEntity(res))
	return &out, nil
}

func (s *linkService) Dashboard(ctx context.Context) (*dto.DashboardDTO, error) {
	res, err := retry.Do(ctx, s.api.DashboardStats, s.retryNamed("dashboard")...)
	if err != nil {
		return nil, err
	}

	out := &dto.DashboardDTO{Stats: s.linkMapper.DashboardToDTO(s.linkMapper.DashboardToEntity(res))}

	record, state, err := s.subscriptions.Peek(ctx)
	if err != nil {
		s.logger.Warn("Link", "Dashboard served without subscription", map[string]interface{}{
			"error": err.Error(),
		})
		return out, nil
	}
	status := s.subMapper.ToStatusResponse(state, record)
	out.Subscription = &status
	return out, nil
}

func (s *linkService) retryNamed(name string) []retry.Option {
	opts := make([]retry.Option, 0, len(s.retryOpts)+3)
	opts = append(opts,
		retry.WithRetryIf(apiclient.IsRetryable),
		retry.WithLogger(s.logger),
		retry.WithName(name),
	)
	return append(opts, s.retryOpts...)
}
