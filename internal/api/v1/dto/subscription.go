package dto

// SubscriptionCheckoutRequest selects the plan to buy
type SubscriptionCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

type URLResponse struct {
	URL string `json:"url"`
}
