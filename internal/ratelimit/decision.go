package ratelimit

import (
	"strings"

	"github.com/router-for-me/ReportStudio/internal/models"
)

// Caller identifies who a request is counted against. A zero Caller is an
// anonymous request.
type Caller struct {
	UserID string
	Tier   models.SubscriptionTier
}

// Scope is the dimension a request is counted in.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeUser
	ScopeClient
)

// Decision is the resolved rate of one request and the counter it lands in.
type Decision struct {
	Rate    int
	Scope   Scope
	Tier    models.SubscriptionTier
	Subject string
}

// Resolve picks the rate and counter for a request. Signed-in users get their
// tier's rate and a per-account counter; anonymous requests get the default
// rate per client address.
func Resolve(cfg SettingsConfig, caller Caller, clientIP string) Decision {
	if userID := strings.TrimSpace(caller.UserID); userID != "" {
		tier := caller.Tier
		if !tier.Valid() {
			tier = models.TierFree
		}
		return Decision{Rate: cfg.RateFor(tier), Scope: ScopeUser, Tier: tier, Subject: userID}
	}
	if clientIP = strings.TrimSpace(clientIP); clientIP != "" {
		return Decision{Rate: cfg.Rate, Scope: ScopeClient, Subject: clientIP}
	}
	return Decision{}
}

// Key returns the counter key, or "" when the request is not limited. User
// keys carry the tier so a plan change starts a fresh window.
func (d Decision) Key() string {
	if d.Rate <= 0 || d.Subject == "" {
		return ""
	}
	switch d.Scope {
	case ScopeUser:
		return "user:" + string(d.Tier) + ":" + d.Subject
	case ScopeClient:
		return "ip:" + d.Subject
	default:
		return ""
	}
}
