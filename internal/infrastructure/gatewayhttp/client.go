// Package gatewayhttp HTTP-клиент платёжного шлюза.
package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/gateway"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type initiateRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PayerRef    string          `json:"payer_ref"`
	PayeeRef    string          `json:"payee_ref"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	CallbackURL string          `json:"callback_url"`
	Description string          `json:"description,omitempty"`
}

type statusResponse struct {
	ExternalRef string `json:"external_ref"`
	Status      string `json:"status"`
}

// Initiate создаёт платёж. Reference уходит в Idempotency-Key, повтор запроса не создаёт второй платёж.
func (c *Client) Initiate(ctx context.Context, spec gateway.PaymentSpec) (*gateway.InitiateResult, error) {
	body, err := json.Marshal(initiateRequest{
		Amount:      spec.Amount,
		Currency:    spec.Currency,
		PayerRef:    spec.PayerRef.String(),
		PayeeRef:    spec.PayeeRef.String(),
		Method:      string(spec.Method),
		Reference:   spec.Reference,
		CallbackURL: spec.CallbackURL,
		Description: spec.Description,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать платёж")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать запрос к шлюзу")
	}
	req.Header.Set("Idempotency-Key", spec.Reference)

	var res gateway.InitiateResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) QueryStatus(ctx context.Context, externalRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+url.PathEscape(externalRef), nil)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать запрос к шлюзу")
	}

	var res statusResponse
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	return res.Status, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGatewayUnavailable, "платёжный шлюз недоступен, повторите позже")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperror.Wrap(statusError(resp), apperror.ErrCodeNotFound, "платёж не найден в шлюзе")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperror.Wrap(statusError(resp), apperror.ErrCodeGatewayUnavailable, "платёжный шлюз недоступен, повторите позже")
	case resp.StatusCode >= 400:
		return apperror.Wrap(statusError(resp), apperror.ErrCodeValidation, "шлюз отклонил запрос")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGatewayUnavailable, "некорректный ответ шлюза")
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return errors.New(resp.Status)
	}
	return fmt.Errorf("%s: %s", resp.Status, msg)
}
