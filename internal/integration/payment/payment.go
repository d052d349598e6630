// Package payment provides booking.PaymentGateway implementations: a
// client for the payment service, a direct Stripe Checkout gateway and a
// disabled gateway for deployments without payments.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/integration/httpx"
)

// HTTPClient talks to the payment service over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewHTTPClient returns a client for the payment service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, http: httpx.NewClient(timeout), log: log}
}

type checkoutRequest struct {
	BookingID string `json:"bookingId"`
	UserID    int64  `json:"userId"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type checkoutResponse struct {
	ID          any    `json:"id"`
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
	Status      string `json:"status"`
}

// CreateCheckoutSession posts the booking amount to /checkout.
func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, req booking.CheckoutRequest) (booking.CheckoutSession, error) {
	c.log.InfoContext(ctx, "creating payment checkout session", slog.String("reservation_id", req.BookingID))
	var out checkoutResponse
	err := httpx.PostJSON(ctx, c.http, httpx.Join(c.baseURL, "/checkout"), checkoutRequest{
		BookingID: req.BookingID,
		UserID:    req.UserID,
		Amount:    req.Amount.Decimal(),
		Currency:  req.Amount.Currency,
	}, &out)
	if err != nil {
		return booking.CheckoutSession{}, fmt.Errorf("%w: %v", booking.ErrPaymentUnavailable, err)
	}
	if out.SessionID == "" {
		return booking.CheckoutSession{}, fmt.Errorf("%w: response without session id", booking.ErrPaymentUnavailable)
	}
	return booking.CheckoutSession{
		SessionReference:  out.SessionID,
		ProviderReference: httpx.IDString(out.ID),
		CheckoutURL:       out.CheckoutURL,
	}, nil
}

// Disabled always fails with booking.ErrPaymentUnavailable.
type Disabled struct{}

func (Disabled) CreateCheckoutSession(context.Context, booking.CheckoutRequest) (booking.CheckoutSession, error) {
	return booking.CheckoutSession{}, fmt.Errorf("%w: payments are disabled", booking.ErrPaymentUnavailable)
}
