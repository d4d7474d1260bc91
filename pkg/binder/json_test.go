package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/pkg/binder"
)

type checkoutBody struct {
	ProviderID string `json:"providerId"`
	Amount     int64  `json:"amount"`
}

func request(contentType, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/billing/checkout", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes", func(t *testing.T) {
		t.Parallel()

		var v checkoutBody
		err := binder.JSON()(request("application/json; charset=utf-8", `{"providerId":"p1","amount":20,"extra":true}`), &v)
		require.NoError(t, err)
		assert.Equal(t, checkoutBody{ProviderID: "p1", Amount: 20}, v)
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		opts        []binder.JSONOption
		wantErr     error
	}{
		{"missing content type", "", `{}`, nil, binder.ErrMissingContentType},
		{"wrong media type", "text/plain", `{}`, nil, binder.ErrUnsupportedMediaType},
		{"empty body", "application/json", ``, nil, binder.ErrFailedToParseJSON},
		{"malformed", "application/json", `{"amount":`, nil, binder.ErrFailedToParseJSON},
		{"wrong type", "application/json", `{"amount":"twenty"}`, nil, binder.ErrFailedToParseJSON},
		{"trailing data", "application/json", `{"amount":1}{"amount":2}`, nil, binder.ErrFailedToParseJSON},
		{"unknown field in strict mode", "application/json", `{"extra":1}`, []binder.JSONOption{binder.Strict()}, binder.ErrFailedToParseJSON},
		{"too large", "application/json", `{"providerId":"` + strings.Repeat("x", 64) + `"}`, []binder.JSONOption{binder.WithMaxSize(32)}, binder.ErrBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var v checkoutBody
			err := binder.JSON(tt.opts...)(request(tt.contentType, tt.body), &v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
