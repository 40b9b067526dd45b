package rating

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
	"golang.org/x/time/rate"
)

const (
	defaultBackendTimeout = 10 * time.Second
	defaultBackendRPS     = 5
	defaultBackendBurst   = 10
	maxResponseBytes      = 1 << 20
)

// APIClient implements API over the backend REST endpoints.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     aqm.Logger
}

// NewAPIClient builds a client from services.backend.* configuration.
func NewAPIClient(config *aqm.Config, logger aqm.Logger) (*APIClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	baseURL, _ := config.GetString("services.backend.url")
	if baseURL == "" {
		return nil, fmt.Errorf("services.backend.url not configured")
	}

	timeout := defaultBackendTimeout
	if raw := config.GetStringOrDef("services.backend.timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid services.backend.timeout: %w", err)
		}
		timeout = d
	}

	rps := float64(defaultBackendRPS)
	if raw := config.GetStringOrDef("services.backend.rps", ""); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid services.backend.rps: %w", err)
		}
		rps = v
	}

	client := NewAPIClientWith(&http.Client{Timeout: timeout}, baseURL, logger)
	client.limiter = rate.NewLimiter(rate.Limit(rps), defaultBackendBurst)
	return client, nil
}

// NewAPIClientWith wires an existing http.Client; used by tests and callers
// that manage transports themselves.
func NewAPIClientWith(httpClient *http.Client, baseURL string, logger aqm.Logger) *APIClient {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultBackendTimeout}
	}
	return &APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Inf, defaultBackendBurst),
		logger:     logger,
	}
}

func (c *APIClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("missing order id")
	}

	var order Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *APIClient) RatedProducts(ctx context.Context, orderID string) (map[string]bool, error) {
	if orderID == "" {
		return nil, fmt.Errorf("missing order id")
	}

	var raw json.RawMessage
	path := fmt.Sprintf("/api/ratings/order/%s/products", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeRatedProducts(raw)
}

func (c *APIClient) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if productID == "" {
		return nil, fmt.Errorf("missing product id")
	}

	var product Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *APIClient) SubmitRating(ctx context.Context, sub RatingSubmission) error {
	return c.do(ctx, http.MethodPost, "/api/ratings", sub, nil)
}

func (c *APIClient) SkipOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("missing order id")
	}
	path := fmt.Sprintf("/api/ratings/order/%s/skip", url.PathEscape(orderID))
	return c.do(ctx, http.MethodPost, path, map[string]string{}, nil)
}

func (c *APIClient) ExistingRatings(ctx context.Context, orderID string) ([]ExistingRating, error) {
	if orderID == "" {
		return nil, fmt.Errorf("missing order id")
	}

	var raw json.RawMessage
	path := fmt.Sprintf("/api/ratings/order/%s/existing-ratings", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var ratings []ExistingRating
	if err := json.Unmarshal(raw, &ratings); err == nil {
		return ratings, nil
	}

	var wrapper struct {
		Ratings []ExistingRating `json:"ratings"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode existing ratings: %w", err)
	}
	return wrapper.Ratings, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("backend client not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := NewAPIError(resp.StatusCode, errorMessage(data))
		c.logger.Debug("backend request failed", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(unwrapData(data), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// unwrapData returns the "data" member of an enveloped response, or the
// whole body when the backend answered with a bare document.
func unwrapData(body []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if data, ok := envelope["data"]; ok && len(data) > 0 && string(data) != "null" {
		return data
	}
	return body
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}

	return payload.Message
}

func decodeRatedProducts(raw json.RawMessage) (map[string]bool, error) {
	rated := make(map[string]bool)
	if len(raw) == 0 || string(raw) == "null" {
		return rated, nil
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode rated products: %w", err)
	}

	if nested, ok := flat["ratedProducts"].(map[string]interface{}); ok {
		flat = nested
	}

	for id, v := range flat {
		if b, ok := v.(bool); ok && b {
			rated[BaseProductID(id)] = true
		}
	}
	return rated, nil
}
