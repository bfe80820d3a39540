package billing

import "github.com/modelforge/modelforge/pkg/models"

// GateDecision is the outcome of the payment gate. The gate is a pure
// decision table: every call is independent, nothing is remembered.
type GateDecision int

const (
	// NoActionNeeded: no price identifier was requested, nothing to pay for.
	NoActionNeeded GateDecision = iota
	// BlockedNeedsModel: a one-time purchase was requested before any
	// model was generated; there is nothing to sell yet.
	BlockedNeedsModel
	// BlockedNeedsSignIn: payment requires an authenticated identity.
	BlockedNeedsSignIn
	// ProceedToCheckout: dispatch the checkout flow.
	ProceedToCheckout
)

// String returns the wire name of the decision.
func (d GateDecision) String() string {
	switch d {
	case NoActionNeeded:
		return "no_action_needed"
	case BlockedNeedsModel:
		return "needs_model"
	case BlockedNeedsSignIn:
		return "needs_sign_in"
	case ProceedToCheckout:
		return "proceed"
	default:
		return "unknown"
	}
}

// Gate decides whether a checkout may be dispatched.
type Gate struct {
	// OneTimePriceID is the Stripe price for a single model download.
	// Requests for it are only valid once a model exists.
	OneTimePriceID string
}

// Evaluate applies the decision table, in order: absent price identifier,
// one-time purchase without a model, missing identity, then proceed.
func (g Gate) Evaluate(state models.UserPlanState, priceID string, hasModel bool) GateDecision {
	if priceID == "" {
		return NoActionNeeded
	}

	if priceID == g.OneTimePriceID && !hasModel {
		return BlockedNeedsModel
	}

	if state.Identity == nil {
		return BlockedNeedsSignIn
	}

	return ProceedToCheckout
}
