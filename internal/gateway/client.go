package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	client *resty.Client
}

type OrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

var (
	ErrBadRequest   = errors.New("gateway rejected request")
	ErrUnauthorized = errors.New("gateway credentials rejected")
	ErrUnavailable  = errors.New("gateway unavailable")
)

type ErrThrottle struct {
	RetryAfter int
}

func (e *ErrThrottle) Error() string {
	return fmt.Sprintf("gateway throttled, retry after %d seconds", e.RetryAfter)
}

func NewClient(address string, keyID string, keySecret string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(address).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{client: c}
}

// ToMinorUnits converts rupees to paise.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// CreateOrder registers an auto-captured order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	req.PaymentCapture = 1
	if req.Currency == "" {
		req.Currency = "INR"
	}

	var order Order
	var failure errorResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&order).
		SetError(&failure).
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("gateway request failed %w", err)
	}

	switch code := response.StatusCode(); {
	case code == http.StatusOK || code == http.StatusCreated:
		if order.ID == "" {
			return nil, fmt.Errorf("gateway returned order without id")
		}
		return &order, nil
	case code == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, failure.Error.Description)
	case code == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w", ErrUnauthorized)
	case code == http.StatusTooManyRequests:
		retry, err := strconv.Atoi(response.Header().Get("Retry-After"))
		if err != nil {
			retry = 1
		}
		return nil, fmt.Errorf("%w", &ErrThrottle{RetryAfter: retry})
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return nil, fmt.Errorf("Unexpected status %d", code)
	}
}
