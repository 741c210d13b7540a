// FILE: internal/service/session_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
	"linkstride-client/internal/mapper"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/repository/contract"
	"linkstride-client/pkg/events"
	"linkstride-client/pkg/retry"
)

// AuthAPI is the part of the remote API that manages accounts.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*dto.AuthResponse, error)
	Register(ctx context.Context, email, password, name string) (*dto.AuthResponse, error)
	Profile(ctx context.Context) (*dto.UserDTO, error)
}

type ISessionService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*entity.Session, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*entity.Session, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*entity.User, error)
	// CurrentSession returns nil when nobody is signed in or the token has expired.
	CurrentSession(ctx context.Context) (*entity.Session, error)
	CurrentUser(ctx context.Context) (*entity.User, error)
	CurrentUserID(ctx context.Context) (string, error)
	IsAuthenticated(ctx context.Context) bool
	// HandleUnauthorized is the 401 flow: drop the session and everything cached for it.
	HandleUnauthorized(ctx context.Context)
}

type sessionService struct {
	api           AuthAPI
	sessions      contract.SessionRepository
	subscriptions ISubscriptionService
	publisher     events.Publisher
	logger        logger.ILogger
	userMapper    *mapper.UserMapper
	retryOpts     []retry.Option
	now           func() time.Time
}

func NewSessionService(
	api AuthAPI,
	sessions contract.SessionRepository,
	subscriptions ISubscriptionService,
	publisher events.Publisher,
	log logger.ILogger,
	retryOpts ...retry.Option,
) ISessionService {
	return &sessionService{
		api:           api,
		sessions:      sessions,
		subscriptions: subscriptions,
		publisher:     publisher,
		logger:        log,
		userMapper:    mapper.NewUserMapper(),
		retryOpts: append([]retry.Option{
			retry.WithRetryIf(apiclient.IsRetryable),
			retry.WithLogger(log),
			retry.WithName("profile"),
		}, retryOpts...),
		now: time.Now,
	}
}

func (s *sessionService) Login(ctx context.Context, req *dto.LoginRequest) (*entity.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}

	res, err := s.api.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, res)
}

func (s *sessionService) Register(ctx context.Context, req *dto.RegisterRequest) (*entity.Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}

	res, err := s.api.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		// Registered but not signed in.
		return nil, nil
	}
	return s.start(ctx, res)
}

// start stores the new session. A different user than the previous one means
// the subscription cache belongs to someone else and is dropped.
func (s *sessionService) start(ctx context.Context, res *dto.AuthResponse) (*entity.Session, error) {
	user := s.userMapper.ToEntity(&res.User)
	session := &entity.Session{Token: res.Token, User: *user}

	if claims, err := apiclient.ParseTokenClaims(res.Token); err == nil {
		session.ExpiresAt = claims.ExpiresAt
		if session.User.Id == "" {
			session.User.Id = claims.UserID
		}
	}

	previous, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if previous == nil || previous.User.Id != session.User.Id {
		if err := s.subscriptions.Invalidate(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("Session", "Signed in", map[string]interface{}{
		"user_id": session.User.Id,
	})
	publish(ctx, s.publisher, s.logger, events.New(events.SessionStarted, map[string]interface{}{
		"userId": session.User.Id,
		"email":  session.User.Email,
	}))
	return session, nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	return s.end(ctx, "logout")
}

func (s *sessionService) end(ctx context.Context, reason string) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := s.subscriptions.Invalidate(ctx); err != nil {
		return err
	}

	s.logger.Info("Session", "Signed out", map[string]interface{}{"reason": reason})
	publish(ctx, s.publisher, s.logger, events.New(events.SessionEnded, map[string]interface{}{
		"reason": reason,
	}))
	return nil
}

func (s *sessionService) HandleUnauthorized(ctx context.Context) {
	if err := s.end(ctx, "unauthorized"); err != nil {
		s.logger.Error("Session", "Failed to clear session after 401", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *sessionService) Profile(ctx context.Context) (*entity.User, error) {
	session, err := s.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	res, err := retry.Do(ctx, s.api.Profile, s.retryOpts...)
	if err != nil {
		return nil, err
	}
	user := s.userMapper.ToEntity(res)
	if user.Id == "" {
		user.Id = session.User.Id
	}

	session.User = *user
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *sessionService) CurrentSession(ctx context.Context) (*entity.Session, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		return nil, nil
	}
	return session, nil
}

func (s *sessionService) CurrentUser(ctx context.Context) (*entity.User, error) {
	session, err := s.CurrentSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	return &session.User, nil
}

func (s *sessionService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil || user == nil {
		return "", err
	}
	return user.Id, nil
}

func (s *sessionService) IsAuthenticated(ctx context.Context) bool {
	session, err := s.CurrentSession(ctx)
	return err == nil && session != nil
}
