// FILE: internal/dto/auth_dto.go
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// --- Gateway requests ---

type RegisterRequest struct {
	Name          string `json:"name" validate:"required,min=1"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	TermsAccepted bool   `json:"terms" validate:"eq=true"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Remote API payloads ---

type RemoteLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RemoteRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	Id    FlexibleID `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
}

// ProfileResponse accepts both a bare user object and one nested under "user".
type ProfileResponse struct {
	UserDTO
	User *UserDTO `json:"user,omitempty"`
}

func (p ProfileResponse) Resolve() UserDTO {
	if p.User != nil {
		return *p.User
	}
	return p.UserDTO
}

// FlexibleID decodes identifiers the API sends either as numbers or strings.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// --- Gateway responses ---

type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *UserSummary `json:"user,omitempty"`
}

type UserSummary struct {
	Id    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
