package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/users"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrCheckout marks checkout dispatch failures. The flow returns to Idle;
// there is no automatic retry.
var ErrCheckout = errors.New("checkout failed")

// EmailSender abstracts email sending for billing notifications.
type EmailSender interface {
	SendEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error
}

// PlanInvalidator abstracts dropping a user's cached plan tier after a
// billing event changes it.
type PlanInvalidator interface {
	Invalidate(ctx context.Context, userID int)
}

// StripeConfig holds Stripe configuration
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceBasic    string
	PricePro      string
	PriceOneTime  string
	SuccessURL    string
	CancelURL     string
	FrontendURL   string
}

// Service handles Stripe billing operations
type Service struct {
	users  *users.Store
	cache  *cache.Client
	config *StripeConfig
	email  EmailSender
	plans  PlanInvalidator
}

// NewService creates a new billing service
func NewService(userStore *users.Store, cache *cache.Client, config *StripeConfig) *Service {
	// Set Stripe API key
	stripe.Key = config.SecretKey

	return &Service{
		users:  userStore,
		cache:  cache,
		config: config,
	}
}

// SetEmailSender sets the email sender for billing notifications.
func (s *Service) SetEmailSender(e EmailSender) {
	s.email = e
}

// SetPlanInvalidator sets the plan cache invalidator.
func (s *Service) SetPlanInvalidator(p PlanInvalidator) {
	s.plans = p
}

// TierForPrice maps a subscription price identifier to its plan tier.
func (s *Service) TierForPrice(priceID string) (models.PlanTier, bool) {
	switch priceID {
	case s.config.PriceBasic:
		return models.TierBasic, true
	case s.config.PricePro:
		return models.TierPro, true
	}
	return "", false
}

// KnownPrice reports whether priceID is one the service sells.
func (s *Service) KnownPrice(priceID string) bool {
	if priceID == s.config.PriceOneTime && priceID != "" {
		return true
	}
	_, ok := s.TierForPrice(priceID)
	return ok
}

func intentKey(id string) string { return fmt.Sprintf("checkout:intent:%s", id) }

// storeIntent records the pending checkout attempt. The intent lives in
// Redis for an hour; the webhook deletes it on completion and the nightly
// sweep reports any that expired without completing.
func (s *Service) storeIntent(ctx context.Context, intent models.CheckoutIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to encode checkout intent: %w", err)
	}
	return s.cache.Set(ctx, intentKey(intent.ID), data, time.Hour)
}

// discardIntent drops an intent, on checkout failure or completion.
func (s *Service) discardIntent(ctx context.Context, intentID string) {
	if err := s.cache.Delete(ctx, intentKey(intentID)); err != nil {
		log.Printf("⚠️  Failed to discard checkout intent %s: %v", intentID, err)
	}
}

// CreateCheckoutSession creates a Stripe checkout session for either a
// one-time model purchase or a subscription. The gate has already run;
// this only dispatches. Any failure returns ErrCheckout and the flow is
// back at Idle.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID int, priceID, modelURL string) (*models.CheckoutResponse, error) {
	if !s.KnownPrice(priceID) {
		return nil, fmt.Errorf("%w: unknown price %q", ErrCheckout, priceID)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %v", ErrCheckout, err)
	}

	oneTime := priceID == s.config.PriceOneTime
	if !oneTime {
		modelURL = models.SubscriptionModelURL
	}

	intent := models.CheckoutIntent{
		ID:                 uuid.NewString(),
		PriceIdentifier:    priceID,
		AssociatedModelURL: modelURL,
		UserID:             userID,
		CreatedAt:          time.Now().Unix(),
	}
	if err := s.storeIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckout, err)
	}

	customerID, err := s.ensureCustomer(ctx, u)
	if err != nil {
		s.discardIntent(ctx, intent.ID)
		return nil, fmt.Errorf("%w: %v", ErrCheckout, err)
	}

	metadata := map[string]string{
		"user_id":   strconv.Itoa(userID),
		"intent_id": intent.ID,
		"price_id":  priceID,
		"model_url": modelURL,
	}

	mode := stripe.CheckoutSessionModeSubscription
	if oneTime {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.config.SuccessURL),
		CancelURL:  stripe.String(s.config.CancelURL),
		Metadata:   metadata,
	}

	if !oneTime {
		// Carry the user id on the subscription itself so lifecycle
		// webhooks can find the account without a session lookup.
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": strconv.Itoa(userID),
			},
		}
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.discardIntent(ctx, intent.ID)
		return nil, fmt.Errorf("%w: failed to create session: %v", ErrCheckout, err)
	}

	log.Printf("💳 Checkout session created: user_id=%d, price=%s, mode=%s", userID, priceID, mode)

	return &models.CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// ensureCustomer returns the user's Stripe customer ID, creating the
// customer on first checkout.
func (s *Service) ensureCustomer(ctx context.Context, u *users.User) (string, error) {
	if u.StripeCustomerID != "" {
		return u.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(u.Email),
		Name:  stripe.String(u.Name),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(u.ID),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	if err := s.users.SetStripeCustomerID(ctx, u.ID, cust.ID); err != nil {
		return "", fmt.Errorf("failed to save customer ID: %w", err)
	}

	return cust.ID, nil
}

// HandleWebhook processes Stripe webhook events
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	// Verify webhook signature
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		return fmt.Errorf("webhook signature verification failed: %w", err)
	}

	log.Printf("📨 Stripe webhook received: %s", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handleInvoicePaymentFailed(ctx, event)
	default:
		log.Printf("⚠️  Unhandled webhook event type: %s", event.Type)
	}

	return nil
}

// handleCheckoutCompleted handles checkout.session.completed event
func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}

	userIDStr, ok := sess.Metadata["user_id"]
	if !ok {
		return fmt.Errorf("user_id not found in metadata")
	}
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user_id in metadata: %w", err)
	}

	if intentID := sess.Metadata["intent_id"]; intentID != "" {
		s.discardIntent(ctx, intentID)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	priceID := sess.Metadata["price_id"]

	if priceID == s.config.PriceOneTime {
		modelURL := sess.Metadata["model_url"]
		log.Printf("✅ One-time model purchase completed: user_id=%d, model=%s", userID, modelURL)

		if s.email != nil {
			subject, html, plain := buildPurchaseReceiptEmail(u.Name, modelURL, s.config.FrontendURL)
			if err := s.email.SendEmail(u.Email, u.Name, subject, html, plain); err != nil {
				log.Printf("⚠️  Failed to send receipt email to %s: %v", u.Email, err)
			}
		}
		return nil
	}

	tier, ok := s.TierForPrice(priceID)
	if !ok {
		return fmt.Errorf("checkout completed with unknown price %q", priceID)
	}

	log.Printf("✅ Subscription checkout completed: user_id=%d, tier=%s", userID, tier)

	if err := s.users.SetPlanTier(ctx, userID, tier); err != nil {
		return fmt.Errorf("failed to update user tier: %w", err)
	}
	if s.plans != nil {
		s.plans.Invalidate(ctx, userID)
	}

	if s.email != nil {
		subject, html, plain := buildSubscriptionActivatedEmail(u.Name, string(tier), s.config.FrontendURL)
		if err := s.email.SendEmail(u.Email, u.Name, subject, html, plain); err != nil {
			log.Printf("⚠️  Failed to send activation email to %s: %v", u.Email, err)
		}
	}

	return nil
}

// handleSubscriptionUpdated handles customer.subscription.updated, which
// fires on plan changes made through the Stripe billing portal.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	userIDStr, ok := sub.Metadata["user_id"]
	if !ok {
		log.Printf("⚠️  Subscription %s has no user_id metadata, skipping update", sub.ID)
		return nil
	}
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user_id in subscription metadata: %w", err)
	}

	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil
	}

	tier, ok := s.TierForPrice(sub.Items.Data[0].Price.ID)
	if !ok {
		log.Printf("⚠️  Subscription %s carries unknown price %s, skipping update", sub.ID, sub.Items.Data[0].Price.ID)
		return nil
	}

	log.Printf("✅ Subscription updated: user_id=%d, tier=%s", userID, tier)

	if err := s.users.SetPlanTier(ctx, userID, tier); err != nil {
		return fmt.Errorf("failed to update user tier: %w", err)
	}
	if s.plans != nil {
		s.plans.Invalidate(ctx, userID)
	}

	return nil
}

// handleSubscriptionDeleted handles customer.subscription.deleted event
func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	log.Printf("❌ Subscription deleted: %s", sub.ID)

	userIDStr, ok := sub.Metadata["user_id"]
	if !ok {
		log.Printf("⚠️  Subscription %s has no user_id metadata, skipping downgrade", sub.ID)
		return nil
	}
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		return fmt.Errorf("invalid user_id in subscription metadata: %w", err)
	}

	if err := s.users.SetPlanTier(ctx, userID, models.TierFree); err != nil {
		return fmt.Errorf("failed to downgrade user: %w", err)
	}
	if s.plans != nil {
		s.plans.Invalidate(ctx, userID)
	}

	if s.email != nil {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			log.Printf("⚠️  Failed to get user %d for cancellation email: %v", userID, err)
			return nil
		}
		subject, html, plain := buildSubscriptionCancelledEmail(u.Name, s.config.FrontendURL)
		if err := s.email.SendEmail(u.Email, u.Name, subject, html, plain); err != nil {
			log.Printf("⚠️  Failed to send cancellation email to %s: %v", u.Email, err)
		}
	}

	return nil
}

// handleInvoicePaymentFailed handles invoice.payment_failed event
func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	log.Printf("⚠️  Invoice payment failed: %s", invoice.ID)

	if invoice.Subscription == nil || invoice.Subscription.Metadata == nil {
		return nil
	}

	userIDStr, ok := invoice.Subscription.Metadata["user_id"]
	if !ok {
		return nil
	}
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		return nil
	}

	if s.email != nil {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			log.Printf("⚠️  Failed to get user %d for payment failed notification: %v", userID, err)
			return nil
		}
		subject, html, plain := buildPaymentFailedEmail(u.Name, s.config.FrontendURL)
		if err := s.email.SendEmail(u.Email, u.Name, subject, html, plain); err != nil {
			log.Printf("⚠️  Failed to send payment failed email to %s: %v", u.Email, err)
		}
	}

	return nil
}

// GetPricing returns pricing information for all tiers
func (s *Service) GetPricing() *models.PricingResponse {
	return &models.PricingResponse{
		Tiers: []models.PricingTier{
			{
				Name:        "free",
				Price:       0,
				Description: "Preview models in the browser",
				Features: []string{
					"Unlimited previews",
					"Placeholder fallback",
					"Community support",
				},
			},
			{
				Name:        "basic",
				Price:       9,
				Description: "For occasional makers",
				Features: []string{
					"Everything in free",
					"10 print-ready downloads per month",
					"STL export",
					"Email support",
				},
			},
			{
				Name:        "pro",
				Price:       29,
				Description: "For workshops and power users",
				Features: []string{
					"Everything in basic",
					"Unlimited downloads",
					"Priority generation queue",
					"Priority support",
				},
			},
		},
	}
}
