package apiclient

import (
	"context"
	"net/http"

	"linkstride-client/internal/dto"
)

func (c *Client) GetSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	var res dto.SubscriptionResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/subscription", authed: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateSubscription starts a pro checkout and returns the Snap payment session.
func (c *Client) CreateSubscription(ctx context.Context) (*dto.CreateSubscriptionResponse, error) {
	var res dto.CreateSubscriptionResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/subscription", authed: true}, &res); err != nil {
		return nil, err
	}
	if res.Token == "" && res.RedirectURL == "" {
		return nil, &APIError{Kind: KindMalformed, Message: "checkout response has neither token nor redirect_url"}
	}
	return &res, nil
}

func (c *Client) GetPendingPayment(ctx context.Context) (*dto.PendingPaymentResponse, error) {
	var res dto.PendingPaymentResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/subscription/pending-payment", authed: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
