package models

// PlanTier is the subscription level gating download rights.
type PlanTier string

const (
	TierFree  PlanTier = "free"
	TierBasic PlanTier = "basic"
	TierPro   PlanTier = "pro"
)

// ValidPlanTier reports whether t is a known tier.
func ValidPlanTier(t PlanTier) bool {
	return t == TierFree || t == TierBasic || t == TierPro
}

// Identity is the authenticated user, as far as the core cares.
type Identity struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// UserPlanState is the session-scoped view of who the user is and what
// plan they are on. Refreshed on sign-in; reset to free on sign-out or
// any plan lookup failure.
type UserPlanState struct {
	Identity *Identity `json:"identity,omitempty"`
	PlanTier PlanTier  `json:"plan_tier"`
}

// SignedOut returns the state every session starts (and ends) in.
func SignedOut() UserPlanState {
	return UserPlanState{PlanTier: TierFree}
}
