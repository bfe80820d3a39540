package plans

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/users"
)

const cacheTTL = 5 * time.Minute

// Service answers "what plan is this user on". Lookups are cached in
// Redis; any failure anywhere degrades to the free tier, never to an
// error, so callers can rely on always getting a usable tier back.
type Service struct {
	users *users.Store
	cache *cache.Client
}

// NewService creates a new plan lookup service
func NewService(users *users.Store, cache *cache.Client) *Service {
	return &Service{
		users: users,
		cache: cache,
	}
}

func planKey(userID int) string { return fmt.Sprintf("plan:tier:%d", userID) }

// GetPlan returns the user's plan tier, or free on any failure.
func (s *Service) GetPlan(ctx context.Context, userID int) models.PlanTier {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, planKey(userID)); err == nil {
			if tier := models.PlanTier(raw); models.ValidPlanTier(tier) {
				return tier
			}
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Plan lookup failed for user %d, defaulting to free: %v", userID, err)
		return models.TierFree
	}

	tier := u.PlanTier
	if !models.ValidPlanTier(tier) {
		tier = models.TierFree
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, planKey(userID), string(tier), cacheTTL); err != nil {
			log.Printf("⚠️  Failed to cache plan tier for user %d: %v", userID, err)
		}
	}

	return tier
}

// Invalidate drops the cached tier, called after billing events change it.
func (s *Service) Invalidate(ctx context.Context, userID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, planKey(userID)); err != nil {
		log.Printf("⚠️  Failed to invalidate plan cache for user %d: %v", userID, err)
	}
}

// StateFor assembles the session's UserPlanState from an identity.
// A nil identity yields the signed-out state.
func (s *Service) StateFor(ctx context.Context, identity *models.Identity) models.UserPlanState {
	if identity == nil {
		return models.SignedOut()
	}

	return models.UserPlanState{
		Identity: identity,
		PlanTier: s.GetPlan(ctx, identity.ID),
	}
}
