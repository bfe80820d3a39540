package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/users"
)

func setupTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cacheClient := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	userStore := users.NewStore(cacheClient)

	config := &StripeConfig{
		SecretKey:    "sk_test_dummy",
		PriceBasic:   "price_basic_123",
		PricePro:     "price_pro_456",
		PriceOneTime: oneTimePrice,
		SuccessURL:   "https://modelforge.io/success",
		CancelURL:    "https://modelforge.io/cancel",
		FrontendURL:  "https://modelforge.io",
	}

	return NewService(userStore, cacheClient, config), mr
}

func TestService_TierForPrice(t *testing.T) {
	svc, _ := setupTestService(t)

	tier, ok := svc.TierForPrice("price_basic_123")
	require.True(t, ok)
	assert.Equal(t, models.TierBasic, tier)

	tier, ok = svc.TierForPrice("price_pro_456")
	require.True(t, ok)
	assert.Equal(t, models.TierPro, tier)

	// The one-time price is a purchase, not a tier
	_, ok = svc.TierForPrice(oneTimePrice)
	assert.False(t, ok)

	_, ok = svc.TierForPrice("price_unknown")
	assert.False(t, ok)
}

func TestService_KnownPrice(t *testing.T) {
	svc, _ := setupTestService(t)

	assert.True(t, svc.KnownPrice("price_basic_123"))
	assert.True(t, svc.KnownPrice("price_pro_456"))
	assert.True(t, svc.KnownPrice(oneTimePrice))
	assert.False(t, svc.KnownPrice("price_unknown"))
	assert.False(t, svc.KnownPrice(""))
}

func TestService_CreateCheckoutSession_UnknownPrice(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.CreateCheckoutSession(context.Background(), 1, "price_unknown", "")
	assert.ErrorIs(t, err, ErrCheckout)
}

func TestService_CreateCheckoutSession_UnknownUser(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.CreateCheckoutSession(context.Background(), 999, "price_basic_123", "")
	assert.ErrorIs(t, err, ErrCheckout)
}

func TestService_StoreAndDiscardIntent(t *testing.T) {
	svc, mr := setupTestService(t)
	ctx := context.Background()

	intent := models.CheckoutIntent{
		ID:                 "intent-1",
		PriceIdentifier:    oneTimePrice,
		AssociatedModelURL: "https://assets.modelforge.io/models/abc.stl",
		UserID:             7,
		CreatedAt:          time.Now().Unix(),
	}

	require.NoError(t, svc.storeIntent(ctx, intent))

	raw, err := svc.cache.Get(ctx, intentKey("intent-1"))
	require.NoError(t, err)

	var stored models.CheckoutIntent
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, intent, stored)

	// Intents expire on their own if the webhook never lands
	mr.FastForward(2 * time.Hour)
	_, err = svc.cache.Get(ctx, intentKey("intent-1"))
	assert.ErrorIs(t, err, cache.Nil)

	// Discarding a missing intent is harmless
	svc.discardIntent(ctx, "intent-1")
}

func TestService_GetPricing(t *testing.T) {
	svc, _ := setupTestService(t)

	pricing := svc.GetPricing()
	require.Len(t, pricing.Tiers, 3)

	assert.Equal(t, "free", pricing.Tiers[0].Name)
	assert.Equal(t, 0, pricing.Tiers[0].Price)
	assert.Equal(t, "basic", pricing.Tiers[1].Name)
	assert.Equal(t, 9, pricing.Tiers[1].Price)
	assert.Equal(t, "pro", pricing.Tiers[2].Name)
	assert.Equal(t, 29, pricing.Tiers[2].Price)

	for _, tier := range pricing.Tiers {
		assert.NotEmpty(t, tier.Description)
		assert.NotEmpty(t, tier.Features)
	}
}

func TestService_HandleWebhook_BadSignature(t *testing.T) {
	svc, _ := setupTestService(t)
	svc.config.WebhookSecret = "whsec_test"

	err := svc.HandleWebhook(context.Background(), []byte(`{"type":"checkout.session.completed"}`), "bad-signature")
	assert.Error(t, err)
}

func TestBuildBillingEmails(t *testing.T) {
	subject, html, plain := buildPurchaseReceiptEmail("Jordan", "https://assets.modelforge.io/models/abc.stl", "https://modelforge.io")
	assert.NotEmpty(t, subject)
	assert.Contains(t, html, "Jordan")
	assert.Contains(t, html, "https://assets.modelforge.io/models/abc.stl")
	assert.Contains(t, plain, "Jordan")

	subject, html, plain = buildSubscriptionActivatedEmail("Jordan", "pro", "https://modelforge.io")
	assert.NotEmpty(t, subject)
	assert.Contains(t, html, "pro")
	assert.Contains(t, plain, "pro")

	subject, html, plain = buildSubscriptionCancelledEmail("Jordan", "https://modelforge.io")
	assert.NotEmpty(t, subject)
	assert.Contains(t, html, "Jordan")
	assert.NotEmpty(t, plain)

	subject, html, plain = buildPaymentFailedEmail("Jordan", "https://modelforge.io")
	assert.NotEmpty(t, subject)
	assert.Contains(t, html, "Jordan")
	assert.NotEmpty(t, plain)
}
