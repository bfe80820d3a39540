package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/models"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// User is the stored account record.
type User struct {
	ID               int             `json:"id"`
	Email            string          `json:"email"`
	Name             string          `json:"name"`
	PasswordHash     string          `json:"password_hash"`
	PlanTier         models.PlanTier `json:"plan_tier"`
	StripeCustomerID string          `json:"stripe_customer_id,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

// Store keeps accounts in Redis. Identity is owned by an external
// provider in the original product; this store is the server-side mirror
// the billing and plan lookups read from.
type Store struct {
	cache *cache.Client
}

// NewStore creates a new user store
func NewStore(cache *cache.Client) *Store {
	return &Store{cache: cache}
}

func userKey(id int) string        { return fmt.Sprintf("user:id:%d", id) }
func emailKey(email string) string { return fmt.Sprintf("user:email:%s", email) }

// Create registers a new user. The email index is claimed first so two
// concurrent registrations of the same address cannot both succeed.
func (s *Store) Create(ctx context.Context, email, name, passwordHash string, createdAt int64) (*User, error) {
	id64, err := s.cache.Incr(ctx, "user:seq")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}
	id := int(id64)

	claimed, err := s.cache.SetNX(ctx, emailKey(email), strconv.Itoa(id), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return nil, ErrEmailTaken
	}

	u := &User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		PlanTier:     models.TierFree,
		CreatedAt:    createdAt,
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// GetByID fetches a user by id.
func (s *Store) GetByID(ctx context.Context, id int) (*User, error) {
	raw, err := s.cache.Get(ctx, userKey(id))
	if err != nil {
		if err == cache.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("failed to decode user %d: %w", id, err)
	}
	return &u, nil
}

// GetByEmail fetches a user through the email index.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	raw, err := s.cache.Get(ctx, emailKey(email))
	if err != nil {
		if err == cache.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}

	return s.GetByID(ctx, id)
}

// SetPlanTier updates the stored tier for a user.
func (s *Store) SetPlanTier(ctx context.Context, id int, tier models.PlanTier) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.PlanTier = tier
	return s.save(ctx, u)
}

// SetStripeCustomerID records the Stripe customer created for a user.
func (s *Store) SetStripeCustomerID(ctx context.Context, id int, customerID string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.StripeCustomerID = customerID
	return s.save(ctx, u)
}

func (s *Store) save(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user %d: %w", u.ID, err)
	}
	if err := s.cache.Set(ctx, userKey(u.ID), data, 0); err != nil {
		return fmt.Errorf("failed to save user %d: %w", u.ID, err)
	}
	return nil
}
