package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionTier is the billing tier of a user account.
type SubscriptionTier string

// SubscriptionTier constants define the supported tiers.
const (
	// TierFree is the default tier for new accounts.
	TierFree SubscriptionTier = "free"
	// TierPremium is the paid Stripe tier.
	TierPremium SubscriptionTier = "premium"
	// TierEnterprise is assigned manually.
	TierEnterprise SubscriptionTier = "enterprise"
)

// Valid reports whether the tier is one of the known tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierEnterprise:
		return true
	default:
		return false
	}
}

// User represents an end-user account stored in the database.
type User struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Primary key (UUID).

	Username  string  `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email     string  `gorm:"type:text;not null;uniqueIndex"` // Unique email, used to sign in.
	Password  string  `gorm:"type:text;not null"`             // Hashed password.
	FirstName *string `gorm:"type:text"`                      // Optional first name.
	LastName  *string `gorm:"type:text"`                      // Optional last name.

	SubscriptionTier     SubscriptionTier `gorm:"type:varchar(32);not null;default:'free'"` // Billing tier.
	StripeCustomerID     *string          `gorm:"type:text"`                                // Stripe customer reference.
	StripeSubscriptionID *string          `gorm:"type:text"`                                // Stripe subscription reference.

	APIUsage         int        `gorm:"column:api_usage;not null;default:0"`   // Generation requests in the current period.
	APILimit         int        `gorm:"column:api_limit;not null;default:100"` // Allowed generation requests per period.
	UsagePeriodStart *time.Time `gorm:"column:usage_period_start"`             // Start of the current usage period.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// DisplayName returns "First Last" when available, else the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	first, last := "", ""
	if u.FirstName != nil {
		first = *u.FirstName
	}
	if u.LastName != nil {
		last = *u.LastName
	}
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return u.Username
	}
}
