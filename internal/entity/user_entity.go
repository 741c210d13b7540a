// FILE: internal/entity/user_entity.go
package entity

import "time"

// User is the signed-in account as the remote API describes it.
type User struct {
	Id    string
	Email string
	Name  string
}

// Session is what survives between requests in the session store.
type Session struct {
	Token     string
	User      User
	ExpiresAt *time.Time
}

func (s *Session) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
