package contract

import (
	"context"

	"linkstride-client/internal/entity"
)

// SessionRepository persists the bearer token and signed-in user.
// Load returns (nil, nil) when nobody is signed in.
type SessionRepository interface {
	Load(ctx context.Context) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
	Clear(ctx context.Context) error
}
