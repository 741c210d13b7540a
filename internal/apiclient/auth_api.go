package apiclient

import (
	"context"
	"net/http"

	"linkstride-client/internal/dto"
)

func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var res dto.AuthResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   dto.RemoteLoginRequest{Email: email, Password: password},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &APIError{Kind: KindMalformed, Message: "login response", Err: errEmptyToken}
	}
	return &res, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*dto.AuthResponse, error) {
	var res dto.AuthResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   dto.RemoteRegisterRequest{Email: email, Password: password, Name: name},
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Profile(ctx context.Context) (*dto.UserDTO, error) {
	var res dto.ProfileResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/profile", authed: true}, &res); err != nil {
		return nil, err
	}
	user := res.Resolve()
	if user.Id == "" && user.Email == "" {
		return nil, &APIError{Kind: KindMalformed, Message: "profile response missing user"}
	}
	return &user, nil
}
