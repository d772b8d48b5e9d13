package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

// HTTPFetcher reads queues from the API and posts advances. Every request
// carries the operator id in X-Employee-Id.
type HTTPFetcher struct {
	BaseURL    string
	EmployeeID string
	HTTP       *http.Client
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Meta  struct {
		Fallback bool `json:"fallback"`
		Applied  bool `json:"applied"`
	} `json:"meta"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

func (h *HTTPFetcher) client() *http.Client {
	if h.HTTP != nil {
		return h.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (h *HTTPFetcher) do(ctx context.Context, method, path string, body any) (envelope, error) {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(h.BaseURL, "/")+path, rd)
	if err != nil {
		return envelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.EmployeeID != "" {
		req.Header.Set("X-Employee-Id", h.EmployeeID)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode/100 != 2 {
			return envelope{}, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return envelope{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return envelope{}, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	return env, nil
}

func (h *HTTPFetcher) Queue(ctx context.Context, q Query) (fulfillment.QueueResult, error) {
	v := url.Values{}
	v.Set("status", string(q.Status))
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	if len(q.Employees) > 0 {
		v.Set("employees", strings.Join(q.Employees, ","))
	}
	env, err := h.do(ctx, http.MethodGet, "/sectors/"+url.PathEscape(q.SectorID)+"/queue?"+v.Encode(), nil)
	if err != nil {
		return fulfillment.QueueResult{}, err
	}
	var items []fulfillment.SaleItem
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return fulfillment.QueueResult{}, fmt.Errorf("decode queue: %w", err)
		}
	}
	return fulfillment.QueueResult{Items: items, Fallback: env.Meta.Fallback}, nil
}

func (h *HTTPFetcher) Advance(ctx context.Context, itemID string, next fulfillment.Status, units int) error {
	_, err := h.do(ctx, http.MethodPost, "/items/"+url.PathEscape(itemID)+"/advance", map[string]any{
		"status": next,
		"units":  units,
	})
	return err
}
