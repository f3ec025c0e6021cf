package lib

import (
	"context"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreateBookingPaymentSession opens a checkout session for a priced event
// type. The booking stays pending until the payment settles; the returned
// URL is the payment-continuation reference handed back to the invitee.
func CreateBookingPaymentSession(ctx context.Context, bookingUid, title string, amount uint, currency string) (string, error) {
	sc := GetStripeClient()
	params := stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(amount)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(title),
					},
				},
			},
		},
		ClientReferenceID: stripe.String(bookingUid),
		SuccessURL:        stripe.String(os.Getenv("PAYMENT_SUCCESS_URL")),
		CancelURL:         stripe.String(os.Getenv("PAYMENT_CANCEL_URL")),
	}
	session, err := sc.V1CheckoutSessions.Create(ctx, &params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}
