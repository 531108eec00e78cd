package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/ReportStudio/internal/models"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
)

var (
	// ErrNoEmail is returned when a customer cannot be created without an email.
	ErrNoEmail = errors.New("No user email on file")
	// ErrWebhookDisabled is returned when no webhook secret is configured.
	ErrWebhookDisabled = errors.New("webhook secret not configured")
)

// Service moves users onto the premium subscription.
type Service struct {
	db            *gorm.DB
	gateway       Gateway
	priceID       string
	webhookSecret string
}

// NewService constructs a billing Service.
func NewService(db *gorm.DB, gateway Gateway, priceID, webhookSecret string) *Service {
	return &Service{db: db, gateway: gateway, priceID: priceID, webhookSecret: webhookSecret}
}

// CreateSubscription returns the user's existing subscription, or creates a
// customer and a premium subscription. The user is upgraded only once Stripe
// reports the subscription active, normally through HandleWebhook.
func (s *Service) CreateSubscription(ctx context.Context, user *models.User) (*Subscription, error) {
	if user == nil {
		return nil, fmt.Errorf("billing: nil user")
	}
	if user.StripeSubscriptionID != nil && *user.StripeSubscriptionID != "" {
		return s.gateway.GetSubscription(*user.StripeSubscriptionID)
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, ErrNoEmail
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		created, errCustomer := s.gateway.CreateCustomer(user.Email, user.DisplayName())
		if errCustomer != nil {
			return nil, errCustomer
		}
		customerID = created
		if errSave := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("stripe_customer_id", customerID).Error; errSave != nil {
			return nil, fmt.Errorf("billing: save customer: %w", errSave)
		}
		user.StripeCustomerID = &customerID
	}

	sub, errSub := s.gateway.CreateSubscription(customerID, s.priceID)
	if errSub != nil {
		return nil, errSub
	}
	updates := map[string]any{"stripe_subscription_id": sub.ID}
	paid := isPaidStatus(stripe.SubscriptionStatus(sub.Status))
	if paid {
		updates["subscription_tier"] = models.TierPremium
		updates["api_limit"] = internalsettings.TierLimit(models.TierPremium)
	}
	if errSave := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; errSave != nil {
		return nil, fmt.Errorf("billing: save subscription: %w", errSave)
	}
	user.StripeSubscriptionID = &sub.ID
	if paid {
		user.SubscriptionTier = models.TierPremium
		user.APILimit = internalsettings.TierLimit(models.TierPremium)
	}
	return sub, nil
}

// isPaidStatus reports whether a subscription in status grants premium.
func isPaidStatus(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}

// HandleWebhook verifies a Stripe event and applies subscription changes.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhookSecret == "" {
		return ErrWebhookDisabled
	}
	event, errEvent := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if errEvent != nil {
		return fmt.Errorf("webhook signature verification failed: %w", errEvent)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if errUnmarshal := json.Unmarshal(event.Data.Raw, &sub); errUnmarshal != nil {
			return fmt.Errorf("failed to unmarshal subscription: %w", errUnmarshal)
		}
		return s.applySubscription(ctx, &sub, event.Type == "customer.subscription.deleted")
	default:
		log.Debugf("billing: ignoring stripe event %s", event.Type)
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, sub *stripe.Subscription, deleted bool) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil
	}
	var user models.User
	if errFind := s.db.WithContext(ctx).
		Where("stripe_customer_id = ?", sub.Customer.ID).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("billing: find customer: %w", errFind)
	}

	updates := map[string]any{}
	switch {
	case deleted,
		sub.Status == stripe.SubscriptionStatusCanceled,
		sub.Status == stripe.SubscriptionStatusUnpaid,
		sub.Status == stripe.SubscriptionStatusIncompleteExpired:
		updates["subscription_tier"] = models.TierFree
		updates["api_limit"] = internalsettings.TierLimit(models.TierFree)
		updates["stripe_subscription_id"] = nil
	case isPaidStatus(sub.Status):
		updates["subscription_tier"] = models.TierPremium
		updates["api_limit"] = internalsettings.TierLimit(models.TierPremium)
		updates["stripe_subscription_id"] = sub.ID
	default:
		// past_due and incomplete leave the tier alone until Stripe settles.
		return nil
	}
	if errUpdate := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; errUpdate != nil {
		return fmt.Errorf("billing: apply subscription: %w", errUpdate)
	}
	log.WithField("user_id", user.ID).Infof("billing: subscription %s is %s", sub.ID, sub.Status)
	return nil
}
