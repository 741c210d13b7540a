package serverutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"linkstride-client/internal/apiclient"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Terms    bool   `json:"terms" validate:"eq=true"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(signupForm{Email: "a@b.co", Password: "12345678", Terms: true}))

	err := ValidateRequest(signupForm{Email: "nope", Password: "short"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 3)
	assert.Equal(t, "Email must be a valid email address", verr.Fields[0].Message)
	assert.Equal(t, "Password must be at least 8 characters", verr.Fields[1].Message)
	assert.Equal(t, "Terms must be accepted", verr.Fields[2].Message)
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar("url", "https://example.com/x", "required,url"))

	var verr *ValidationError
	require.ErrorAs(t, ValidateVar("url", "not a url", "required,url"), &verr)
	assert.Equal(t, "url must be a valid URL", verr.Fields[0].Message)
}

type decoded struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantData   string
	}{
		{name: "validation", err: &ValidationError{Fields: []FieldError{{Field: "url", Message: "url is required"}}}, wantStatus: 400, wantData: `[{"field":"url","message":"url is required"}]`},
		{name: "app error", err: NewAppError(429, "Daily limit reached"), wantStatus: 429},
		{name: "upstream unauthorized", err: &apiclient.APIError{Kind: apiclient.KindUnauthorized, Message: "expired"}, wantStatus: 401},
		{name: "upgrade required", err: &apiclient.APIError{Kind: apiclient.KindForbidden, Message: "Pro only", UpgradeRequired: true}, wantStatus: 403, wantData: `{"upgradeRequired":true}`},
		{name: "upstream conflict", err: &apiclient.APIError{Kind: apiclient.KindValidation, StatusCode: 409, Message: "taken"}, wantStatus: 409},
		{name: "upstream offline", err: apiclient.NewError(apiclient.KindNetwork, "network error", nil), wantStatus: 503},
		{name: "upstream malformed", err: apiclient.NewError(apiclient.KindMalformed, "bad body", nil), wantStatus: 502},
		{name: "fiber error", err: fiber.ErrNotFound, wantStatus: 404},
		{name: "unknown", err: errors.New("boom"), wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var out decoded
			require.NoError(t, json.Unmarshal(body, &out))
			assert.False(t, out.Success)
			assert.Equal(t, tt.wantStatus, out.Code)
			if tt.wantData != "" {
				assert.JSONEq(t, tt.wantData, string(out.Data))
			}
		})
	}
}

type staticSession bool

func (s staticSession) IsAuthenticated(ctx context.Context) bool { return bool(s) }

func TestSessionMiddleware(t *testing.T) {
	for _, signedIn := range []bool{true, false} {
		app := fiber.New()
		app.Get("/", SessionMiddleware(staticSession(signedIn)), func(ctx *fiber.Ctx) error {
			return ctx.JSON(SuccessResponse("ok", true))
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		if signedIn {
			assert.Equal(t, 200, resp.StatusCode)
		} else {
			assert.Equal(t, 401, resp.StatusCode)
		}
	}
}
