package billing

import (
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/subscription"
)

// Subscription is the part of a Stripe subscription the API returns.
type Subscription struct {
	ID           string
	Status       string
	ClientSecret string
}

// Gateway is the payment provider used by Service.
type Gateway interface {
	CreateCustomer(email, name string) (string, error)
	CreateSubscription(customerID, priceID string) (*Subscription, error)
	GetSubscription(id string) (*Subscription, error)
}

// StripeGateway talks to the Stripe API with the package-level client.
type StripeGateway struct{}

// NewStripeGateway sets the Stripe secret key and returns a gateway.
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

// CreateCustomer creates a Stripe customer and returns its id.
func (g *StripeGateway) CreateCustomer(email, name string) (string, error) {
	cust, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	})
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

// CreateSubscription starts an incomplete subscription awaiting the first payment.
func (g *StripeGateway) CreateSubscription(customerID, priceID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		Expand:          []*string{stripe.String("latest_invoice.payment_intent")},
	}
	sub, err := subscription.New(params)
	if err != nil {
		return nil, err
	}
	return toSubscription(sub), nil
}

// GetSubscription retrieves a subscription with its latest payment intent.
func (g *StripeGateway) GetSubscription(id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.AddExpand("latest_invoice.payment_intent")
	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toSubscription(sub), nil
}

func toSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out
}
