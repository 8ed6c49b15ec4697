package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrSessionRejected    = errors.New("payment gateway rejected session")
	ErrAssetNotFound      = errors.New("boat not found")
)

const metadataReservationID = "reservation_id"

// Client is the subset of the hosted-checkout API the service needs.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*Session, error)
	Close()
}

type CheckoutSessionRequest struct {
	ReservationID string
	BoatID        uint
	ProductName   string
	Amount        int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPClient talks to a Stripe-compatible checkout sessions endpoint.
type HTTPClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.ReservationID)
	form.Set("metadata["+metadataReservationID+"]", req.ReservationID)
	form.Set("payment_intent_data[metadata]["+metadataReservationID+"]", req.ReservationID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.ProductName)
	form.Set("line_items[0][price_data][product_data][metadata][boat_id]", strconv.FormatUint(uint64(req.BoatID), 10))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status=%d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("%w: status=%d %s", ErrSessionRejected, resp.StatusCode, apiErr.Error.Message)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrGatewayUnavailable, err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("%w: session %q has no redirect url", ErrSessionRejected, session.ID)
	}
	return &session, nil
}

// Close releases pooled connections. The client must not be used afterwards.
func (c *HTTPClient) Close() {
	c.http.CloseIdleConnections()
}
