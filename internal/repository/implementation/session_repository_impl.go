// FILE: internal/repository/implementation/session_repository_impl.go
// Session token + user stored as two JSON keys on top of any StorageRepository
package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"linkstride-client/internal/entity"
	"linkstride-client/internal/repository/contract"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

type storedUser struct {
	Id        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type SessionRepositoryImpl struct {
	store contract.StorageRepository
}

func NewSessionRepository(store contract.StorageRepository) contract.SessionRepository {
	return &SessionRepositoryImpl{store: store}
}

func (r *SessionRepositoryImpl) Load(ctx context.Context) (*entity.Session, error) {
	rawToken, err := r.store.Get(ctx, KeyToken)
	if errors.Is(err, contract.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var token string
	if err := json.Unmarshal([]byte(rawToken), &token); err != nil || token == "" {
		return nil, nil
	}

	session := &entity.Session{Token: token}

	rawUser, err := r.store.Get(ctx, KeyUser)
	if err != nil && !errors.Is(err, contract.ErrKeyNotFound) {
		return nil, err
	}
	if err == nil {
		var u storedUser
		if json.Unmarshal([]byte(rawUser), &u) == nil {
			session.User = entity.User{Id: u.Id, Email: u.Email, Name: u.Name}
			session.ExpiresAt = u.ExpiresAt
		}
	}
	return session, nil
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	token, err := json.Marshal(session.Token)
	if err != nil {
		return err
	}
	user, err := json.Marshal(storedUser{
		Id:        session.User.Id,
		Email:     session.User.Email,
		Name:      session.User.Name,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, KeyUser, string(user)); err != nil {
		return err
	}
	return r.store.Set(ctx, KeyToken, string(token))
}

func (r *SessionRepositoryImpl) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, KeyToken, KeyUser)
}
