package models

// CheckoutIntent is an ephemeral record of a single payment attempt.
// Created per attempt, discarded after redirect or failure.
type CheckoutIntent struct {
	ID                 string `json:"id"`
	PriceIdentifier    string `json:"price_identifier,omitempty"`
	AssociatedModelURL string `json:"associated_model_url,omitempty"`
	UserID             int    `json:"user_id"`
	CreatedAt          int64  `json:"created_at"`
}

// CheckoutRequest represents a request to create a checkout session
type CheckoutRequest struct {
	PriceID  string `json:"price_id"`
	ModelURL string `json:"model_url,omitempty"`
}

// CheckoutResponse represents a checkout session response
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// SubscriptionModelURL is the sentinel sent in place of an asset URL when
// the checkout is for a subscription rather than a one-time model purchase.
const SubscriptionModelURL = "subscription"

// PricingTier represents a pricing tier with details
type PricingTier struct {
	Name        string   `json:"name"`
	Price       int      `json:"price"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// PricingResponse represents pricing information
type PricingResponse struct {
	Tiers []PricingTier `json:"tiers"`
}
