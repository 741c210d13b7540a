package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fixture struct {
	client *Client
	store  *memory.StorageRepository
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := memory.NewStorageRepository("")
	require.NoError(t, err)

	client := NewClient(Config{BaseURL: srv.URL, RequestTimeout: 2 * time.Second}, NewStoreTokenSource(store), logger.NewNopLogger())
	return &fixture{client: client, store: store}
}

func (f *fixture) signIn(t *testing.T, token string) {
	t.Helper()
	raw, _ := json.Marshal(token)
	require.NoError(t, f.store.Set(context.Background(), TokenStorageKey, string(raw)))
}

func TestLoginUsesPublicClient(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])

		w.Write([]byte(`{"token":"tok","user":{"id":12,"email":"ana@example.com","name":"Ana"}}`))
	})

	res, err := f.client.Login(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "12", res.User.Id.String())
}

func TestAuthenticatedRequestCarriesBearer(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		w.Write([]byte(`{"subscription":{"id":1,"plan_type":"free"},"limits":{"links_per_day":3,"links_created_today":0}}`))
	})
	f.signIn(t, token)

	res, err := f.client.GetSubscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "free", res.Subscription.PlanType)
	require.NotNil(t, res.Limits.LinksPerDay)
	assert.Equal(t, 3, *res.Limits.LinksPerDay)
}

func TestMissingTokenNeverReachesServer(t *testing.T) {
	var hits int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	var hookCalls int32
	f.client.OnUnauthorized(func(ctx context.Context) { atomic.AddInt32(&hookCalls, 1) })

	_, err := f.client.GetSubscription(context.Background())
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
}

func TestExpiredTokenIsUnauthorized(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server must not be called with an expired token")
	})
	f.signIn(t, signToken(t, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Minute).Unix()}))

	_, err := f.client.Profile(context.Background())
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    Kind
		wantUpgrade bool
		wantHook    bool
		retryable   bool
	}{
		{name: "unauthorized", status: 401, body: `{"message":"jwt expired"}`, wantKind: KindUnauthorized, wantHook: true},
		{name: "upgrade required", status: 403, body: `{"message":"Pro only","upgradeToPro":true}`, wantKind: KindForbidden, wantUpgrade: true},
		{name: "plain forbidden", status: 403, body: `{"error":"nope"}`, wantKind: KindForbidden},
		{name: "not found", status: 404, body: ``, wantKind: KindNotFound},
		{name: "validation", status: 400, body: `{"message":"Custom code taken"}`, wantKind: KindValidation},
		{name: "rate limited", status: 429, body: ``, wantKind: KindServer, retryable: true},
		{name: "server", status: 502, body: `<html>`, wantKind: KindServer, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			f.signIn(t, "opaque-token")

			var hook int32
			f.client.OnUnauthorized(func(ctx context.Context) { atomic.AddInt32(&hook, 1) })

			_, err := f.client.URLStats(context.Background(), "abc")
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.NotEmpty(t, apiErr.Message)
			assert.Equal(t, tt.wantUpgrade, IsUpgradeRequired(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.wantHook, atomic.LoadInt32(&hook) == 1)
		})
	}
}

func TestMalformedBodies(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/subscription":
			w.Write([]byte(`{"subscription":`))
		case "/api/url/dashboard-stats":
		}
	})
	f.signIn(t, "opaque-token")

	_, err := f.client.GetSubscription(context.Background())
	assert.True(t, IsKind(err, KindMalformed))
	assert.True(t, IsRetryable(err))

	_, err = f.client.DashboardStats(context.Background())
	assert.True(t, IsKind(err, KindMalformed))
}

func TestListURLsAcceptsBothShapes(t *testing.T) {
	bodies := []string{
		`[{"code":"a"},{"code":"b"}]`,
		`{"urls":[{"code":"a"},{"code":"b"}]}`,
	}
	for _, body := range bodies {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		f.signIn(t, "opaque-token")

		list, err := f.client.ListURLs(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[1].Code)
	}
}

func TestDeleteURLEscapesCode(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/url/a%20b", r.URL.EscapedPath())
		w.Write([]byte(`{"message":"deleted"}`))
	})
	f.signIn(t, "opaque-token")

	require.NoError(t, f.client.DeleteURL(context.Background(), "a b"))
	assert.True(t, IsKind(f.client.DeleteURL(context.Background(), " "), KindValidation))
}

func TestCreateSubscriptionDecodesSnapResponse(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"token":"snap-token","redirect_url":"https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token","order_id":"ORD-9"}`))
	})
	f.signIn(t, "opaque-token")

	res, err := f.client.CreateSubscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap-token", res.Token)
	assert.Equal(t, "ORD-9", res.OrderID)
	assert.Contains(t, res.RedirectURL, "snap-token")
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	store, err := memory.NewStorageRepository("")
	require.NoError(t, err)
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", RequestTimeout: time.Second}, NewStoreTokenSource(store), logger.NewNopLogger())

	_, err = client.Login(context.Background(), "a@b.co", "password1")
	require.Error(t, err)
	kind := KindOf(err)
	assert.Contains(t, []Kind{KindNetwork, KindTimeout}, kind)
	assert.True(t, IsRetryable(err))
}

func TestParseTokenClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	claims, err := ParseTokenClaims(signToken(t, jwt.MapClaims{"user_id": 42, "exp": exp.Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, exp.Equal(*claims.ExpiresAt))

	claims, err = ParseTokenClaims(signToken(t, jwt.MapClaims{"sub": "user-abc"}))
	require.NoError(t, err)
	assert.Equal(t, "user-abc", claims.UserID)
	assert.Nil(t, claims.ExpiresAt)

	_, err = ParseTokenClaims("not-a-jwt")
	assert.Error(t, err)
}
