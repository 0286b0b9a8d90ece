package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// Client makes one request per call and never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type request struct {
	method  string
	path    string
	creds   *Credentials
	body    any
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if r.creds != nil && r.creds.Token == "" {
		return apperrors.Unauthorized("Please sign in first")
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.creds != nil {
		req.Header.Set("Authorization", "Bearer "+r.creds.Token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransport, err, "Could not reach the server")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransport, err, "Could not read the server response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.FromHTTP(resp.StatusCode, errorMessage(payload))
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.Wrap(apperrors.KindTransport, fmt.Errorf("decode %s %s response: %w", r.method, r.path, err), "Unexpected response from the server")
	}
	return nil
}

// errorMessage prefers "error", then "message". Empty when neither is present.
func errorMessage(payload []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(payload, &envelope) != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Message
}

func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/signup", body: req}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   models.LoginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks the server to send a reset link. The returned message
// is the same whether or not the email is registered.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/forgot-password",
		body:   models.ForgotPasswordRequest{Email: email},
	}, &resp)
	return resp.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/reset-password", body: req}, nil)
}

// ListProducts reads the public catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products"}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, creds Credentials, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/products/%d", id), creds: &creds}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, creds Credentials, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, request{method: http.MethodPost, path: "/products", creds: &creds, body: in}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, creds Credentials, id int64, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, request{method: http.MethodPut, path: fmt.Sprintf("/products/%d", id), creds: &creds, body: in}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, creds Credentials, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/products/%d", id), creds: &creds}, nil)
}

func (c *Client) ListMyOrders(ctx context.Context, creds Credentials) ([]models.OrderResponse, error) {
	return c.listOrders(ctx, creds, "/orders")
}

func (c *Client) ListAllOrders(ctx context.Context, creds Credentials) ([]models.OrderResponse, error) {
	return c.listOrders(ctx, creds, "/orders/admin/orders")
}

func (c *Client) listOrders(ctx context.Context, creds Credentials, path string) ([]models.OrderResponse, error) {
	var orders []models.OrderResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: path, creds: &creds}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, creds Credentials, id int64) (*models.OrderResponse, error) {
	var o models.OrderResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/orders/%d", id), creds: &creds}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder sends one creation request. idempotencyKey may be empty.
func (c *Client) CreateOrder(ctx context.Context, creds Credentials, req models.CreateOrderRequest, idempotencyKey string) (*models.CreateOrderResponse, error) {
	r := request{method: http.MethodPost, path: "/orders", creds: &creds, body: req}
	if idempotencyKey != "" {
		r.headers = map[string]string{IdempotencyKeyHeader: idempotencyKey}
	}
	var resp models.CreateOrderResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SetStatus(ctx context.Context, creds Credentials, id int64, status models.OrderStatus) (*models.OrderResponse, error) {
	var o models.OrderResponse
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/orders/%d/status", id),
		creds:  &creds,
		body:   models.StatusRequest{Status: string(status)},
	}, &o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) CancelOrder(ctx context.Context, creds Credentials, id int64) (*models.OrderResponse, error) {
	var o models.OrderResponse
	if err := c.do(ctx, request{method: http.MethodPut, path: fmt.Sprintf("/orders/%d/cancel", id), creds: &creds}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
