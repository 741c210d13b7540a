package apiclient

import (
	"context"
	"net/http"

	"linkstride-client/internal/dto"
)

func (c *Client) CreateShortURL(ctx context.Context, originalURL, customCode string) (*dto.URLResponse, error) {
	var res dto.URLResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/url",
		body:   dto.RemoteCreateURLRequest{OriginalURL: originalURL, CustomCode: customCode},
		authed: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Code == "" {
		return nil, &APIError{Kind: KindMalformed, Message: "create url response missing code"}
	}
	return &res, nil
}

func (c *Client) ListURLs(ctx context.Context) ([]dto.URLResponse, error) {
	var res dto.URLListResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/url/user", authed: true}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) URLStats(ctx context.Context, code string) (*dto.URLStatsResponse, error) {
	seg, err := pathSegment(code)
	if err != nil {
		return nil, err
	}
	var res dto.URLStatsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/url/" + seg + "/stats", authed: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteURL(ctx context.Context, code string) error {
	seg, err := pathSegment(code)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/url/" + seg, authed: true}, nil)
}

func (c *Client) DashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	var res dto.DashboardStatsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/url/dashboard-stats", authed: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
