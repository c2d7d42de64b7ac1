package service

import (
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
)

// StripeClient is the subset of the Stripe API the billing services call.
type StripeClient interface {
	CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	UpdateSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

type stripeAPI struct{}

// NewStripeClient sets the global Stripe key and returns a client backed by the stripe-go resource packages.
func NewStripeClient(secretKey string) StripeClient {
	stripe.Key = secretKey
	return stripeAPI{}
}

func (stripeAPI) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return customerpkg.New(params)
}

func (stripeAPI) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return checkoutsession.New(params)
}

func (stripeAPI) CreatePortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return billingsession.New(params)
}

func (stripeAPI) GetSubscription(id string) (*stripe.Subscription, error) {
	return subscriptionpkg.Get(id, nil)
}

func (stripeAPI) UpdateSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return subscriptionpkg.Update(id, params)
}
