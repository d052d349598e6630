package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v82"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

// checkoutSessions is the subset of the Stripe client used here.
type checkoutSessions interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// StripeConfig configures the Stripe Checkout gateway.
type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
}

// StripeGateway creates Stripe Checkout Sessions directly, with the
// reservation price as inline price data.
type StripeGateway struct {
	sessions checkoutSessions
	cfg      StripeConfig
	log      *slog.Logger
}

// NewStripeGateway builds a gateway around a new stripe.Client.
func NewStripeGateway(cfg StripeConfig, log *slog.Logger) *StripeGateway {
	sc := stripe.NewClient(cfg.SecretKey)
	return &StripeGateway{sessions: sc.V1CheckoutSessions, cfg: cfg, log: log}
}

// CreateCheckoutSession implements booking.PaymentGateway.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req booking.CheckoutRequest) (booking.CheckoutSession, error) {
	metadata := map[string]string{
		"bookingId": req.BookingID,
		"userId":    strconv.FormatInt(req.UserID, 10),
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		ClientReferenceID: stripe.String(req.BookingID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Amount.Currency)),
					UnitAmount: stripe.Int64(req.Amount.Cents),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String("Facility reservation " + req.BookingID),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if g.cfg.CancelURL != "" {
		params.CancelURL = stripe.String(g.cfg.CancelURL)
	}

	cs, err := g.sessions.Create(ctx, params)
	if err != nil {
		return booking.CheckoutSession{}, fmt.Errorf("%w: stripe: %v", booking.ErrPaymentUnavailable, err)
	}
	g.log.InfoContext(ctx, "stripe checkout session created",
		slog.String("reservation_id", req.BookingID),
		slog.String("session_id", cs.ID))

	out := booking.CheckoutSession{SessionReference: cs.ID, CheckoutURL: cs.URL}
	if cs.PaymentIntent != nil {
		out.ProviderReference = cs.PaymentIntent.ID
	}
	return out, nil
}
