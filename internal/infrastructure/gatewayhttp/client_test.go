package gatewayhttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/gateway"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/gatewayhttp"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayment() gateway.PaymentSpec {
	return gateway.PaymentSpec{
		Amount:      decimal.RequireFromString("150.00"),
		Currency:    "BRL",
		PayerRef:    uuid.New(),
		PayeeRef:    uuid.New(),
		Method:      valueobject.PaymentMethodPix,
		Reference:   "pay_01j9zq7m0000000000000000",
		CallbackURL: "http://localhost:8080/api/webhooks/payments",
	}
}

func TestClient_Initiate(t *testing.T) {
	spec := samplePayment()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, spec.Reference, r.Header.Get("Idempotency-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "150", body["amount"])
		assert.Equal(t, "pix", body["method"])
		assert.Equal(t, spec.PayeeRef.String(), body["payee_ref"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"external_ref":"gw_123","status":"processing","code":"00020126"}`))
	}))
	defer srv.Close()

	c := gatewayhttp.NewClient(srv.URL+"/", "secret", time.Second)
	res, err := c.Initiate(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "gw_123", res.ExternalRef)
	assert.Equal(t, "processing", res.Status)
	assert.Equal(t, "00020126", res.Code)
}

func TestClient_QueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/gw_123", r.URL.Path)
		_, _ = w.Write([]byte(`{"external_ref":"gw_123","status":"approved"}`))
	}))
	defer srv.Close()

	status, err := gatewayhttp.NewClient(srv.URL, "", time.Second).QueryStatus(context.Background(), "gw_123")
	require.NoError(t, err)
	assert.Equal(t, "approved", status)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"server error", http.StatusBadGateway, apperror.IsGatewayUnavailable},
		{"throttled", http.StatusTooManyRequests, apperror.IsGatewayUnavailable},
		{"bad request", http.StatusUnprocessableEntity, apperror.IsValidation},
		{"not found", http.StatusNotFound, apperror.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			_, err := gatewayhttp.NewClient(srv.URL, "", time.Second).Initiate(context.Background(), samplePayment())
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := gatewayhttp.NewClient(srv.URL, "", 20*time.Millisecond).Initiate(context.Background(), samplePayment())
	assert.True(t, apperror.IsGatewayUnavailable(err), "unexpected error: %v", err)
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := gatewayhttp.NewClient(addr, "", time.Second).QueryStatus(context.Background(), "gw_1")
	assert.True(t, apperror.IsGatewayUnavailable(err), "unexpected error: %v", err)
}
