package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/config"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/gateway"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/valueobject"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/handlers"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/middleware"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/router"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/memory"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/handler"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/service"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/escrow"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/ws"
)

const webhookSecret = "whsec-test"

type stubGateway struct {
	mu  sync.Mutex
	seq int
}

func (g *stubGateway) Initiate(ctx context.Context, spec gateway.PaymentSpec) (*gateway.InitiateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return &gateway.InitiateResult{ExternalRef: fmt.Sprintf("gw_%d", g.seq), Status: "processing", Code: "pix-code"}, nil
}

func (g *stubGateway) QueryStatus(ctx context.Context, externalRef string) (string, error) {
	return "processing", nil
}

type api struct {
	engine    *gin.Engine
	notifier  *notify.Dispatcher
	tokens    *service.TokenManager
	client    entity.Actor
	provider  entity.Actor
	operator  entity.Actor
	serviceID uuid.UUID
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	catalog := memory.NewCatalog()
	access := request.NewAccess(catalog)
	notifier := notify.NewDispatcher(nil, nil)
	ledger := escrow.NewLedger()
	gw := &stubGateway{}
	tokens := service.NewTokenManager("router-test-secret", time.Minute)

	cfg := &config.Config{
		Env:             "test",
		RateLimitLimit:  1000,
		RateLimitPeriod: time.Minute,
		Gateway:         config.GatewayConfig{WebhookSecret: webhookSecret},
	}
	limitStore, err := middleware.NewRateLimitStore(nil)
	require.NoError(t, err)

	h := router.Handlers{
		Requests: handler.NewRequestHandler(
			request.NewCreateRequestUseCase(store, catalog, notifier),
			request.NewUpdateStatusUseCase(store, access, notifier),
			request.NewGetRequestUseCase(store, access),
			request.NewListRequestsUseCase(store, access),
			request.NewDeleteRequestUseCase(store, notifier),
		),
		Payments: handler.NewPaymentHandler(
			payment.NewInitiatePaymentUseCase(store, gw, ledger, notifier, payment.Settings{Currency: "BRL"}),
			payment.NewReleasePaymentUseCase(store, ledger, notifier),
			payment.NewRefundPaymentUseCase(store, ledger, notifier),
			payment.NewGetEscrowUseCase(store, access),
		),
		Webhooks: handler.NewWebhookHandler(payment.NewHandleCallbackUseCase(store, ledger, notifier)),
		Health:   handlers.NewHealthHandler(nil),
		WS:       handlers.NewWSHandler(ws.NewHub(), tokens, nil),
	}

	a := &api{
		engine:    router.SetupRouter(cfg, h, tokens, limitStore),
		notifier:  notifier,
		tokens:    tokens,
		client:    entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient},
		provider:  entity.Actor{ID: uuid.New(), Role: valueobject.RoleProvider},
		operator:  entity.Actor{ID: uuid.New(), Role: valueobject.RoleOperator},
		serviceID: uuid.New(),
	}
	catalog.AddService(a.serviceID, a.provider.ID, uuid.New())
	t.Cleanup(notifier.Wait)
	return a
}

func (a *api) token(t *testing.T, actor entity.Actor) string {
	t.Helper()
	tok, err := a.tokens.Issue(actor)
	require.NoError(t, err)
	return tok
}

func (a *api) do(t *testing.T, method, path string, actor *entity.Actor, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(t, *actor))
	}
	return a.serve(t, req)
}

func (a *api) webhook(t *testing.T, externalRef, status string, signed bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return a.webhookWithContext(t, context.Background(), externalRef, status, signed)
}

func (a *api) webhookWithContext(t *testing.T, ctx context.Context, externalRef, status string, signed bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"external_ref": externalRef, "status": status})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(raw)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	if signed {
		req.Header.Set(middleware.SignatureHeader, middleware.Sign(webhookSecret, raw))
	}
	return a.serve(t, req)
}

func (a *api) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type requestView struct {
	ID                 uuid.UUID  `json:"id"`
	Status             string     `json:"status"`
	AcceptedProviderID *uuid.UUID `json:"accepted_provider_id"`
	ProposedValue      *string    `json:"proposed_value"`
}

func (a *api) createRequest(t *testing.T) requestView {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/requests", &a.client, map[string]interface{}{
		"offered_service_id": a.serviceID,
		"description":        "Покраска стен",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[requestView](t, env)
}

func (a *api) setStatus(t *testing.T, actor entity.Actor, id uuid.UUID, body map[string]interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return a.do(t, http.MethodPut, "/api/requests/"+id.String()+"/status", &actor, body)
}

func TestRouter_PaymentFlow(t *testing.T) {
	a := newAPI(t)
	req := a.createRequest(t)
	assert.Equal(t, "pending", req.Status)

	w, _ := a.setStatus(t, a.provider, req.ID, map[string]interface{}{"status": "proposed", "proposed_value": "150"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := a.setStatus(t, a.provider, req.ID, map[string]interface{}{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[requestView](t, env)
	require.NotNil(t, accepted.AcceptedProviderID)
	assert.Equal(t, a.provider.ID, *accepted.AcceptedProviderID)

	w, env = a.do(t, http.MethodPost, "/api/requests/"+req.ID.String()+"/payments", &a.client, map[string]string{
		"method": "pix",
		"amount": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	started := decode[struct {
		Request     requestView `json:"request"`
		Code        string      `json:"code"`
		Transaction struct {
			ExternalRef string `json:"external_ref"`
		} `json:"transaction"`
	}](t, env)
	assert.Equal(t, "awaiting_payment", started.Request.Status)
	assert.Equal(t, "pix-code", started.Code)

	w, env = a.webhook(t, started.Transaction.ExternalRef, "approved", true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "applied", decode[map[string]string](t, env)["outcome"])

	// Повторная доставка ничего не меняет.
	w, env = a.webhook(t, started.Transaction.ExternalRef, "approved", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", decode[map[string]string](t, env)["outcome"])

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String()+"/escrow", &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	held := decode[map[string]interface{}](t, env)
	assert.Equal(t, "held", held["status"])
	assert.Equal(t, "150", held["held_amount"])

	w, env = a.do(t, http.MethodPost, "/api/requests/"+req.ID.String()+"/release", &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	released := decode[map[string]interface{}](t, env)
	assert.Equal(t, "released", released["status"])
	assert.Equal(t, "0", released["held_amount"])

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String(), &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode[requestView](t, env).Status)

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String()+"/transactions", &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	txs := decode[[]map[string]interface{}](t, env)
	require.Len(t, txs, 2)
	assert.Equal(t, "client_to_escrow", txs[0]["direction"])
	assert.Equal(t, "escrow_to_provider", txs[1]["direction"])

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String()+"/history", &a.operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, env), 6)
}

func TestRouter_WebhookFailureAsksForRedelivery(t *testing.T) {
	a := newAPI(t)
	req := a.createRequest(t)

	w, _ := a.setStatus(t, a.provider, req.ID, map[string]interface{}{"status": "proposed", "proposed_value": "150"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = a.setStatus(t, a.provider, req.ID, map[string]interface{}{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := a.do(t, http.MethodPost, "/api/requests/"+req.ID.String()+"/payments", &a.client, map[string]string{
		"method": "pix",
		"amount": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	externalRef := decode[struct {
		Transaction struct {
			ExternalRef string `json:"external_ref"`
		} `json:"transaction"`
	}](t, env).Transaction.ExternalRef

	// Обработка прерывается: хранилище отказывает из-за отменённого контекста.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w, env = a.webhookWithContext(t, ctx, externalRef, "approved", true)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String()+"/transactions", &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	txs := decode[[]map[string]interface{}](t, env)
	require.Len(t, txs, 1)
	assert.Equal(t, "pending", txs[0]["status"])

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String(), &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "awaiting_payment", decode[requestView](t, env).Status)

	// Повторная доставка проходит.
	w, env = a.webhook(t, externalRef, "approved", true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "applied", decode[map[string]string](t, env)["outcome"])

	w, env = a.do(t, http.MethodGet, "/api/requests/"+req.ID.String(), &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", decode[requestView](t, env).Status)
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(t, http.MethodGet, "/api/requests", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w, _ = a.serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	req := a.createRequest(t)
	stranger := entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient}

	tests := []struct {
		name   string
		method string
		path   string
		actor  entity.Actor
		body   interface{}
		status int
		code   string
	}{
		{"invalid uuid", http.MethodGet, "/api/requests/not-a-uuid", a.client, nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown request", http.MethodGet, "/api/requests/" + uuid.NewString(), a.client, nil, http.StatusNotFound, "NOT_FOUND"},
		{"stranger", http.MethodGet, "/api/requests/" + req.ID.String(), stranger, nil, http.StatusForbidden, "FORBIDDEN"},
		{"client cannot accept", http.MethodPut, "/api/requests/" + req.ID.String() + "/status", a.client,
			map[string]string{"status": "accepted"}, http.StatusForbidden, "FORBIDDEN"},
		{"unknown status", http.MethodPut, "/api/requests/" + req.ID.String() + "/status", a.provider,
			map[string]string{"status": "done"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"pay pending request", http.MethodPost, "/api/requests/" + req.ID.String() + "/payments", a.client,
			map[string]string{"method": "pix", "amount": "150"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"bad status filter", http.MethodGet, "/api/requests?status=nope", a.client, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := tt.actor
			w, env := a.do(t, tt.method, tt.path, &actor, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRouter_ListAndDelete(t *testing.T) {
	a := newAPI(t)
	first := a.createRequest(t)
	a.createRequest(t)

	w, _ := a.do(t, http.MethodGet, "/api/requests?limit=1", &a.client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data       []requestView `json:"data"`
		Pagination struct {
			Total   int  `json:"total"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.True(t, page.Pagination.HasMore)

	w, _ = a.do(t, http.MethodDelete, "/api/requests/"+first.ID.String(), &a.provider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.do(t, http.MethodDelete, "/api/requests/"+first.ID.String(), &a.client, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/requests/"+first.ID.String(), &a.client, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_WebhookSignatureAndUnknownRef(t *testing.T) {
	a := newAPI(t)

	w, env := a.webhook(t, "gw_missing", "approved", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)

	w, env = a.webhook(t, "gw_missing", "approved", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown", decode[map[string]string](t, env)["outcome"])
}

func TestRouter_Health(t *testing.T) {
	a := newAPI(t)

	w, _ := a.serve(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}
