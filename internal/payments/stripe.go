// README: Thin stripe wrapper; the core only needs an upfront intent for scheduled bookings.
package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"campusride/internal/types"
)

// Client wraps stripe-go. The platform never settles payments here; a
// scheduled booking just gets a PaymentIntent whose completion the CRUD
// layer observes to mark the booking activated.
type Client struct{}

func NewClient(apiKey string) *Client {
	stripe.Key = apiKey
	return &Client{}
}

// CreateBookingIntent creates a PaymentIntent for a scheduled booking total
// and returns its id and client secret.
func (c *Client) CreateBookingIntent(ctx context.Context, total types.Money, riderID types.ID) (id, clientSecret string, err error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(total.Amount),
		Currency: stripe.String(total.Currency),
	}
	params.AddMetadata("rider_id", string(riderID))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", err
	}
	return pi.ID, pi.ClientSecret, nil
}
